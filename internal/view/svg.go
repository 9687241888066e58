package view

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"strings"

	"github.com/ivlev/memeshot/internal/capture"
	"github.com/ivlev/memeshot/internal/layout"
)

const (
	barBorder   = layout.BarBorder
	defaultFont = "Arial, Helvetica, sans-serif"
	// baseline offset from the middle of a line box, as a fraction of the
	// font size
	middleToBaseline = 0.35
)

// MarshalSVG serialises the subtree rooted at n. The viewBox starts at the
// node's own corner so the rest of the tree keeps wrapper coordinates.
// Hidden nodes are left out together with their children.
func (n *Node) MarshalSVG(opts capture.Options) ([]byte, error) {
	w, h := opts.Width, opts.Height
	if w <= 0 || h <= 0 {
		w, h = n.Size()
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" width="%s" height="%s" viewBox="%s %s %s %s">`,
		num(w), num(h), num(n.Rect.X), num(n.Rect.Y), num(w), num(h))
	fmt.Fprintf(&buf, `<rect x="%s" y="%s" width="%s" height="%s" fill="%s"/>`,
		num(n.Rect.X), num(n.Rect.Y), num(w), num(h), hex(opts.Background))

	sw := &svgWriter{buf: &buf}
	if err := sw.node(n); err != nil {
		return nil, err
	}
	buf.WriteString("</svg>")
	return buf.Bytes(), nil
}

type svgWriter struct {
	buf *bytes.Buffer
}

func (w *svgWriter) node(n *Node) error {
	if !n.visible {
		return nil
	}
	if n.shadow != "" {
		w.shadow(n)
	}

	open := w.group(n)

	switch n.Role {
	case RoleWrapper, RoleContainer:
		if n.Fill != "" {
			w.rect(n.Rect, n.Fill)
		}
	case RoleHeader, RoleFooter:
		w.bar(n)
	case RoleBackground:
		if err := w.image(n, n.Rect); err != nil {
			return err
		}
	case RoleText:
		w.text(n)
	case RoleImage:
		cx, cy := n.Rect.Center()
		if err := w.image(n, layout.Centered(cx, cy, n.BaseW, n.BaseH)); err != nil {
			return err
		}
	}

	for _, c := range n.Children {
		if err := w.node(c); err != nil {
			return err
		}
	}

	if open {
		w.buf.WriteString("</g>")
	}
	return nil
}

// group opens a <g> carrying opacity and the rotate/scale transform about
// the node's centre. It reports whether a group was opened.
func (w *svgWriter) group(n *Node) bool {
	var attrs []string
	if n.Opacity < 1 {
		attrs = append(attrs, fmt.Sprintf(`opacity="%s"`, num(n.Opacity)))
	}
	scale := n.Scale
	if scale == 0 || n.Role == RoleImage {
		scale = 1
	}
	if n.Rotation != 0 || scale != 1 {
		cx, cy := n.Rect.Center()
		t := fmt.Sprintf("translate(%s %s) rotate(%s) scale(%s) translate(%s %s)",
			num(cx), num(cy), num(n.Rotation), num(scale), num(-cx), num(-cy))
		attrs = append(attrs, fmt.Sprintf(`transform="%s"`, t))
	}
	if len(attrs) == 0 {
		return false
	}
	fmt.Fprintf(w.buf, "<g %s>", strings.Join(attrs, " "))
	return true
}

func (w *svgWriter) rect(r layout.Rect, fill string) {
	fmt.Fprintf(w.buf, `<rect x="%s" y="%s" width="%s" height="%s" fill="%s"/>`,
		num(r.X), num(r.Y), num(r.W), num(r.H), attr(fill))
}

// bar paints a header or footer strip: white fill, 2px rule against the
// image area, left aligned text.
func (w *svgWriter) bar(n *Node) {
	w.rect(n.Rect, n.Fill)
	rule := layout.Rect{X: n.Rect.X, Y: n.Rect.Bottom() - barBorder, W: n.Rect.W, H: barBorder}
	if n.Role == RoleFooter {
		rule.Y = n.Rect.Y
	}
	w.rect(rule, "#000000")

	lh := n.FontSize * layout.LineHeight
	top := n.Rect.Y + layout.BarPaddingY
	if n.Role == RoleFooter {
		top += barBorder
	}
	for i, line := range strings.Split(n.Text, "\n") {
		y := top + float64(i)*lh + lh/2 + n.FontSize*middleToBaseline
		w.textLine(line, n, n.Rect.X+layout.BarPaddingX, y, "start")
	}
}

// text paints a regular field: lines centred on the node's box.
func (w *svgWriter) text(n *Node) {
	cx, cy := n.Rect.Center()
	lines := strings.Split(n.Text, "\n")
	lh := n.FontSize * layout.LineHeight
	mid := float64(len(lines)-1) / 2
	for i, line := range lines {
		y := cy + (float64(i)-mid)*lh + n.FontSize*middleToBaseline
		w.textLine(line, n, cx, y, "middle")
	}
}

func (w *svgWriter) textLine(s string, n *Node, x, y float64, anchor string) {
	if s == "" {
		return
	}
	fill := n.Color
	if fill == "" {
		fill = "#000000"
	}
	family := n.FontFamily
	if family == "" {
		family = defaultFont
	}
	fmt.Fprintf(w.buf, `<text x="%s" y="%s" font-size="%s" font-family="%s" font-weight="900" fill="%s" text-anchor="%s" xml:space="preserve">`,
		num(x), num(y), num(n.FontSize), attr(family), attr(fill), anchor)
	xml.EscapeText(w.buf, []byte(s))
	w.buf.WriteString("</text>")
}

// image embeds the node's raster, with the CSS filter applied, stretched
// into r. Images that are not usable are left out, as a broken <img> is.
func (w *svgWriter) image(n *Node, r layout.Rect) error {
	src := n.Image.Raster()
	if src == nil {
		return nil
	}
	if n.Filter != "" {
		src = ApplyFilter(src, n.Filter)
	}
	uri, err := dataURI(src)
	if err != nil {
		return err
	}
	fmt.Fprintf(w.buf, `<image x="%s" y="%s" width="%s" height="%s" preserveAspectRatio="none" xlink:href="%s"/>`,
		num(r.X), num(r.Y), num(r.W), num(r.H), uri)
	return nil
}

// shadow paints an approximation of a CSS box-shadow: the node's box,
// offset and grown by spread plus half the blur, in the shadow colour.
func (w *svgWriter) shadow(n *Node) {
	sh, ok := parseShadow(n.shadow)
	if !ok {
		return
	}
	grow := sh.spread + sh.blur/2
	r := layout.Rect{
		X: n.Rect.X + sh.dx - grow,
		Y: n.Rect.Y + sh.dy - grow,
		W: n.Rect.W + 2*grow,
		H: n.Rect.H + 2*grow,
	}
	if r.Empty() {
		return
	}
	fmt.Fprintf(w.buf, `<rect x="%s" y="%s" width="%s" height="%s" fill="%s" fill-opacity="%s"/>`,
		num(r.X), num(r.Y), num(r.W), num(r.H), attr(sh.color), num(sh.alpha))
}

func dataURI(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode embedded image: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func attr(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}
