package capture

import "sync"

type shadowState struct {
	node  Node
	value string
}

// Guard records the presentation changes made by Conceal.
type Guard struct {
	once    sync.Once
	hidden  []Node
	shadows []shadowState
}

// Conceal hides every visible placeholder in the target's subtree and
// removes box-shadows from it. Call Restore, usually deferred, to undo.
func Conceal(t Target) *Guard {
	g := &Guard{}
	t.Walk(func(n Node) {
		if n.Placeholder() && n.Visible() {
			n.SetVisible(false)
			g.hidden = append(g.hidden, n)
		}
		if s := n.Shadow(); s != "" {
			g.shadows = append(g.shadows, shadowState{node: n, value: s})
			n.SetShadow("")
		}
	})
	return g
}

// Restore puts back everything Conceal changed. Only the first call has an
// effect.
func (g *Guard) Restore() {
	g.once.Do(func() {
		for i := len(g.shadows) - 1; i >= 0; i-- {
			g.shadows[i].node.SetShadow(g.shadows[i].value)
		}
		for i := len(g.hidden) - 1; i >= 0; i-- {
			g.hidden[i].SetVisible(true)
		}
	})
}

// Changed is the number of nodes whose state was altered.
func (g *Guard) Changed() int {
	return len(g.hidden) + len(g.shadows)
}
