package view

import (
	"strconv"
	"strings"
)

type boxShadow struct {
	dx, dy, blur, spread float64
	color                string
	alpha                float64
}

// parseShadow reads a single CSS box-shadow: up to four lengths followed by
// a colour. "none", inset shadows and lists are not painted.
func parseShadow(css string) (boxShadow, bool) {
	css = strings.TrimSpace(css)
	if css == "" || css == "none" || strings.Contains(css, "inset") {
		return boxShadow{}, false
	}

	sh := boxShadow{color: "#000000", alpha: 1}
	var lengths []float64
	for _, tok := range tokens(css) {
		if v, ok := length(tok); ok {
			lengths = append(lengths, v)
			continue
		}
		sh.color, sh.alpha = cssColor(tok)
	}
	if len(lengths) < 2 {
		return boxShadow{}, false
	}
	sh.dx, sh.dy = lengths[0], lengths[1]
	if len(lengths) > 2 {
		sh.blur = lengths[2]
	}
	if len(lengths) > 3 {
		sh.spread = lengths[3]
	}
	return sh, true
}

// tokens splits on spaces outside parentheses.
func tokens(s string) []string {
	var out []string
	depth, start := 0, -1
	for i, r := range s {
		switch {
		case r == '(':
			depth++
		case r == ')':
			depth--
		case r == ' ' && depth == 0:
			if start >= 0 {
				out = append(out, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, s[start:])
	}
	return out
}

func length(tok string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSuffix(tok, "px"), 64)
	return v, err == nil
}

// cssColor splits rgba() into an opaque SVG colour and its alpha.
func cssColor(tok string) (string, float64) {
	if !strings.HasPrefix(tok, "rgba(") || !strings.HasSuffix(tok, ")") {
		return tok, 1
	}
	parts := strings.Split(tok[len("rgba("):len(tok)-1], ",")
	if len(parts) != 4 {
		return tok, 1
	}
	a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
	if err != nil {
		return tok, 1
	}
	rgb := "rgb(" + strings.TrimSpace(parts[0]) + "," + strings.TrimSpace(parts[1]) + "," + strings.TrimSpace(parts[2]) + ")"
	return rgb, a
}
