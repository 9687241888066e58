// Package view is the retained presentation tree of a scene: the nodes the
// editor would put on screen, with their rectangles and paint properties.
package view

import (
	"github.com/ivlev/memeshot/internal/capture"
	"github.com/ivlev/memeshot/internal/layout"
	"github.com/ivlev/memeshot/internal/scene"
	"github.com/ivlev/memeshot/internal/source"
)

type Role string

const (
	RoleWrapper    Role = "wrapper"
	RoleHeader     Role = "header"
	RoleContainer  Role = "container"
	RoleBackground Role = "background"
	RoleText       Role = "text"
	RoleImage      Role = "image"
	RoleFooter     Role = "footer"
)

// WrapperShadow is the drop shadow the editor gives the export wrapper.
const WrapperShadow = "0 10px 15px -3px rgba(0,0,0,0.1)"

// Node is one presentation element. Rect is the on-screen bounding box in
// wrapper coordinates; BaseW/BaseH are the untransformed size of image
// nodes.
type Node struct {
	Role       Role
	FieldID    int
	Rect       layout.Rect
	BaseW      float64
	BaseH      float64
	Text       string
	FontSize   float64
	FontFamily string
	Color      string
	Fill       string
	Opacity    float64 // 0-1
	Rotation   float64
	Scale      float64
	Filter     string
	Image      *source.Image
	Children   []*Node

	visible     bool
	placeholder bool
	shadow      string
}

func (n *Node) Visible() bool              { return n.visible }
func (n *Node) SetVisible(v bool)          { n.visible = v }
func (n *Node) Placeholder() bool          { return n.placeholder }
func (n *Node) Shadow() string             { return n.shadow }
func (n *Node) SetShadow(s string)         { n.shadow = s }
func (n *Node) Size() (w, h float64)       { return n.Rect.W, n.Rect.H }
func (n *Node) add(c *Node)                { n.Children = append(n.Children, c) }
func (n *Node) Walk(fn func(capture.Node)) { n.walk(func(c *Node) { fn(c) }) }

func (n *Node) walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.walk(fn)
	}
}

// Find returns the first node with the given role, depth first.
func (n *Node) Find(role Role) *Node {
	var found *Node
	n.walk(func(c *Node) {
		if found == nil && c.Role == role {
			found = c
		}
	})
	return found
}

// Document is the tree for one scene.
type Document struct {
	Root *Node
}

// Target returns the wrapper when includeBars is set, otherwise the image
// container.
func (d *Document) Target(includeBars bool) (capture.Target, error) {
	if d == nil || d.Root == nil {
		return nil, capture.ErrNoTarget
	}
	if includeBars {
		return d.Root, nil
	}
	c := d.Root.Find(RoleContainer)
	if c == nil {
		return nil, capture.ErrNoTarget
	}
	return c, nil
}

// Build lays out the nodes for s using the reported metrics. Fields without
// metrics are not on screen and get no node.
func Build(s *scene.Scene, m layout.Metrics) *Document {
	wrapper := &Node{
		Role:    RoleWrapper,
		Rect:    layout.Rect{X: m.ImageArea.X, W: m.ImageArea.W, H: m.Height()},
		Fill:    "#ffffff",
		Opacity: 1,
		Scale:   1,
		visible: true,
		shadow:  WrapperShadow,
	}

	if f, ok := s.Header(); ok && m.Header != nil {
		wrapper.add(bar(RoleHeader, f, *m.Header))
	}

	container := &Node{Role: RoleContainer, Rect: m.ImageArea, Opacity: 1, Scale: 1, visible: true}
	if s.Background != nil {
		container.add(&Node{
			Role:    RoleBackground,
			Rect:    m.ImageArea,
			Image:   s.Background,
			Filter:  s.ImageStyle,
			Opacity: 1,
			Scale:   1,
			visible: true,
		})
	}

	for _, f := range s.RegularFields() {
		box, ok := m.Field(f.ID)
		if !ok {
			continue
		}
		text := f.Text
		if f.IsPlaceholder() {
			text = scene.PlaceholderLabel
		}
		container.add(&Node{
			Role:        RoleText,
			FieldID:     f.ID,
			Rect:        box.Rect,
			Text:        text,
			FontSize:    box.FontSize,
			FontFamily:  f.FontFamily,
			Color:       f.Color,
			Opacity:     f.Opacity / 100,
			Rotation:    f.Rotation,
			Scale:       f.Scale,
			visible:     true,
			placeholder: f.IsPlaceholder(),
		})
	}

	for _, f := range s.ImageFields {
		box, ok := m.Field(f.ID)
		if !ok {
			continue
		}
		container.add(&Node{
			Role:     RoleImage,
			FieldID:  f.ID,
			Rect:     box.Rect,
			BaseW:    f.Width * f.Scale,
			BaseH:    f.Height * f.Scale,
			Image:    f.Image,
			Opacity:  f.Opacity / 100,
			Rotation: f.Rotation,
			Scale:    1,
			visible:  true,
		})
	}
	wrapper.add(container)

	if f, ok := s.Footer(); ok && m.Footer != nil {
		wrapper.add(bar(RoleFooter, f, *m.Footer))
	}

	return &Document{Root: wrapper}
}

func bar(role Role, f scene.TextField, box layout.Box) *Node {
	return &Node{
		Role:       role,
		FieldID:    f.ID,
		Rect:       box.Rect,
		Text:       f.Text,
		FontSize:   box.FontSize,
		FontFamily: f.FontFamily,
		Color:      f.Color,
		Fill:       "#ffffff",
		Opacity:    f.Opacity / 100,
		Rotation:   f.Rotation,
		Scale:      f.Scale,
		visible:    true,
	}
}
