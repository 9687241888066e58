package view

import (
	"image"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
)

// colorMatrix is a 3×3 RGB transform in linear 0-1 space.
type colorMatrix [9]float64

type filterOp struct {
	matrix   *colorMatrix
	slope    float64 // brightness/contrast: c*slope + intercept
	offset   float64
	invert   float64
	opacity  float64
	isLinear bool
}

// ApplyFilter applies a CSS filter list (grayscale, sepia, saturate,
// hue-rotate, invert, brightness, contrast, opacity) to a copy of img.
// Unknown functions such as blur are ignored.
func ApplyFilter(img image.Image, css string) image.Image {
	ops := parseFilter(css)
	if len(ops) == 0 {
		return img
	}

	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)

	for i := 0; i < len(out.Pix); i += 4 {
		a := float64(out.Pix[i+3]) / 255
		if a == 0 {
			continue
		}
		// work on unpremultiplied values
		r := float64(out.Pix[i]) / 255 / a
		g := float64(out.Pix[i+1]) / 255 / a
		bl := float64(out.Pix[i+2]) / 255 / a

		for _, op := range ops {
			switch {
			case op.matrix != nil:
				m := op.matrix
				r, g, bl = m[0]*r+m[1]*g+m[2]*bl, m[3]*r+m[4]*g+m[5]*bl, m[6]*r+m[7]*g+m[8]*bl
			case op.isLinear:
				r, g, bl = r*op.slope+op.offset, g*op.slope+op.offset, bl*op.slope+op.offset
			case op.invert > 0:
				k := op.invert
				r, g, bl = k*(1-r)+(1-k)*r, k*(1-g)+(1-k)*g, k*(1-bl)+(1-k)*bl
			default:
				a *= op.opacity
			}
			r, g, bl = clamp01(r), clamp01(g), clamp01(bl)
		}

		out.Pix[i] = uint8(math.Round(r * a * 255))
		out.Pix[i+1] = uint8(math.Round(g * a * 255))
		out.Pix[i+2] = uint8(math.Round(bl * a * 255))
		out.Pix[i+3] = uint8(math.Round(a * 255))
	}
	return out
}

func parseFilter(css string) []filterOp {
	var ops []filterOp
	for _, fn := range splitFunctions(css) {
		name, arg := fn[0], fn[1]
		switch name {
		case "grayscale":
			a := 1 - clamp01(amount(arg, 1))
			ops = append(ops, filterOp{matrix: &colorMatrix{
				0.2126 + 0.7874*a, 0.7152 - 0.7152*a, 0.0722 - 0.0722*a,
				0.2126 - 0.2126*a, 0.7152 + 0.2848*a, 0.0722 - 0.0722*a,
				0.2126 - 0.2126*a, 0.7152 - 0.7152*a, 0.0722 + 0.9278*a,
			}})
		case "sepia":
			a := 1 - clamp01(amount(arg, 1))
			ops = append(ops, filterOp{matrix: &colorMatrix{
				0.393 + 0.607*a, 0.769 - 0.769*a, 0.189 - 0.189*a,
				0.349 - 0.349*a, 0.686 + 0.314*a, 0.168 - 0.168*a,
				0.272 - 0.272*a, 0.534 - 0.534*a, 0.131 + 0.869*a,
			}})
		case "saturate":
			s := amount(arg, 1)
			ops = append(ops, filterOp{matrix: &colorMatrix{
				0.213 + 0.787*s, 0.715 - 0.715*s, 0.072 - 0.072*s,
				0.213 - 0.213*s, 0.715 + 0.285*s, 0.072 - 0.072*s,
				0.213 - 0.213*s, 0.715 - 0.715*s, 0.072 + 0.928*s,
			}})
		case "hue-rotate":
			rad := angle(arg) * math.Pi / 180
			c, s := math.Cos(rad), math.Sin(rad)
			ops = append(ops, filterOp{matrix: &colorMatrix{
				0.213 + c*0.787 - s*0.213, 0.715 - c*0.715 - s*0.715, 0.072 - c*0.072 + s*0.928,
				0.213 - c*0.213 + s*0.143, 0.715 + c*0.285 + s*0.140, 0.072 - c*0.072 - s*0.283,
				0.213 - c*0.213 - s*0.787, 0.715 - c*0.715 + s*0.715, 0.072 + c*0.928 + s*0.072,
			}})
		case "brightness":
			ops = append(ops, filterOp{isLinear: true, slope: amount(arg, 1)})
		case "contrast":
			c := amount(arg, 1)
			ops = append(ops, filterOp{isLinear: true, slope: c, offset: 0.5 - 0.5*c})
		case "invert":
			if k := clamp01(amount(arg, 1)); k > 0 {
				ops = append(ops, filterOp{invert: k})
			}
		case "opacity":
			ops = append(ops, filterOp{opacity: clamp01(amount(arg, 1))})
		}
	}
	return ops
}

// splitFunctions turns "a(1) b(2%)" into [[a 1] [b 2%]].
func splitFunctions(css string) [][2]string {
	var out [][2]string
	rest := strings.TrimSpace(css)
	for rest != "" {
		open := strings.IndexByte(rest, '(')
		end := strings.IndexByte(rest, ')')
		if open < 0 || end < open {
			break
		}
		name := strings.ToLower(strings.TrimSpace(rest[:open]))
		out = append(out, [2]string{name, strings.TrimSpace(rest[open+1 : end])})
		rest = strings.TrimSpace(rest[end+1:])
	}
	return out
}

// amount parses "0.5" or "50%"; empty means def.
func amount(s string, def float64) float64 {
	if s == "" {
		return def
	}
	pct := strings.HasSuffix(s, "%")
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil || v < 0 {
		return def
	}
	if pct {
		v /= 100
	}
	return v
}

// angle parses "90deg", "0.5turn" or "1rad" into degrees.
func angle(s string) float64 {
	units := []struct {
		suffix string
		factor float64
	}{
		{"deg", 1},
		{"turn", 360},
		{"rad", 180 / math.Pi},
	}
	for _, u := range units {
		if strings.HasSuffix(s, u.suffix) {
			v, err := strconv.ParseFloat(strings.TrimSuffix(s, u.suffix), 64)
			if err != nil {
				return 0
			}
			return v * u.factor
		}
	}
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
