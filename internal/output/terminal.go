package output

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// TerminalSink shows the export inline using the iTerm2 image protocol.
type TerminalSink struct {
	Out *os.File
	// Force skips the terminal detection.
	Force bool
}

// IsCompatible reports whether the output is an iTerm2 terminal.
func (s *TerminalSink) IsCompatible() bool {
	if s.Force {
		return true
	}
	if os.Getenv("TERM_PROGRAM") != "iTerm.app" {
		return false
	}
	return s.Out != nil && term.IsTerminal(int(s.Out.Fd()))
}

// Emit writes the image escape sequence. On incompatible terminals it does
// nothing.
func (s *TerminalSink) Emit(ctx context.Context, data []byte, filename string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.IsCompatible() {
		return nil
	}

	width := "auto"
	if s.Out != nil {
		if cols, _, err := term.GetSize(int(s.Out.Fd())); err == nil && cols > 0 {
			// leave room for the prompt
			width = fmt.Sprintf("%d", cols/2)
		}
	}
	return writeImage(s.Out, data, filename, width)
}

func writeImage(w io.Writer, data []byte, filename, width string) error {
	name := base64.StdEncoding.EncodeToString([]byte(filename))
	if _, err := fmt.Fprintf(w, "\x1b]1337;File=name=%s;size=%d;width=%s;inline=1:", name, len(data), width); err != nil {
		return err
	}
	enc := base64.NewEncoder(base64.StdEncoding, w)
	if _, err := enc.Write(data); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := w.Write([]byte("\x07\n"))
	return err
}
