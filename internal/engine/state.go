package engine

import "image"

type State int

const (
	Idle State = iota
	Capturing
	Trimming
	Reconstructing
	Encoding
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Capturing:
		return "capturing"
	case Trimming:
		return "trimming"
	case Reconstructing:
		return "reconstructing"
	case Encoding:
		return "encoding"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// OutcomeKind tags the result of a rendering stage.
type OutcomeKind int

const (
	OutcomeFailed OutcomeKind = iota
	Captured
	Reconstructed
)

func (k OutcomeKind) String() string {
	switch k {
	case Captured:
		return "captured"
	case Reconstructed:
		return "reconstructed"
	}
	return "failed"
}

// Outcome is what a stage hands to the next: a buffer, or the reason there
// is none.
type Outcome struct {
	Kind   OutcomeKind
	Buffer *image.RGBA
	Err    error
}

func captured(buf *image.RGBA) Outcome      { return Outcome{Kind: Captured, Buffer: buf} }
func reconstructed(buf *image.RGBA) Outcome { return Outcome{Kind: Reconstructed, Buffer: buf} }
func failed(err error) Outcome              { return Outcome{Kind: OutcomeFailed, Err: err} }

// transitions lists the moves the exporter may make.
var transitions = map[State][]State{
	Idle:           {Capturing, Failed},
	Capturing:      {Trimming, Reconstructing, Failed},
	Trimming:       {Encoding},
	Reconstructing: {Encoding, Failed},
	Encoding:       {Done, Failed},
}

// CanTransition reports whether from → to is a legal move.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
