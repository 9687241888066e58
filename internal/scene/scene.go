// Package scene holds the read-only snapshot of what the editor shows:
// a background, ordered text fields and ordered image fields.
package scene

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/ivlev/memeshot/internal/source"
)

type Kind string

const (
	KindHeader  Kind = "header"
	KindFooter  Kind = "footer"
	KindRegular Kind = "text"
)

// PlaceholderLabel is shown on screen for an empty regular field. It never
// reaches an export.
const PlaceholderLabel = "Place your text here"

// Scene is built fresh for each export and discarded afterwards.
type Scene struct {
	BackgroundSrc string       `yaml:"background"`
	ImageStyle    string       `yaml:"image_style,omitempty"`
	TextFields    []TextField  `yaml:"text_fields"`
	ImageFields   []ImageField `yaml:"image_fields,omitempty"`

	Background *source.Image `yaml:"-"`
}

type TextField struct {
	ID         int     `yaml:"id"`
	Kind       Kind    `yaml:"kind"`
	Text       string  `yaml:"text"`
	X          float64 `yaml:"x"` // percent of the image area
	Y          float64 `yaml:"y"`
	FontSize   float64 `yaml:"font_size"`
	Color      string  `yaml:"color,omitempty"`
	FontFamily string  `yaml:"font_family,omitempty"`
	Opacity    float64 `yaml:"opacity"` // 0-100
	Rotation   float64 `yaml:"rotation,omitempty"`
	Scale      float64 `yaml:"scale,omitempty"`
}

// UnmarshalYAML fills the editor defaults (fully opaque, unscaled) for keys
// missing from a snapshot file.
func (f *TextField) UnmarshalYAML(value *yaml.Node) error {
	type plain TextField
	p := plain{Opacity: 100, Scale: 1}
	if err := value.Decode(&p); err != nil {
		return err
	}
	*f = TextField(p)
	return nil
}

// IsPlaceholder reports whether the editor shows the placeholder label
// instead of the field's text.
func (f TextField) IsPlaceholder() bool {
	return f.Text == ""
}

// HasText reports whether the field has any non-whitespace text.
func (f TextField) HasText() bool {
	return strings.TrimSpace(f.Text) != ""
}

type ImageField struct {
	ID       int     `yaml:"id"`
	Src      string  `yaml:"src"`
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
	Width    float64 `yaml:"width"`
	Height   float64 `yaml:"height"`
	Scale    float64 `yaml:"scale,omitempty"`
	Opacity  float64 `yaml:"opacity"`
	Rotation float64 `yaml:"rotation,omitempty"`

	Image *source.Image `yaml:"-"`
}

func (f *ImageField) UnmarshalYAML(value *yaml.Node) error {
	type plain ImageField
	p := plain{Opacity: 100, Scale: 1}
	if err := value.Decode(&p); err != nil {
		return err
	}
	*f = ImageField(p)
	return nil
}

// Header returns the header field, if any.
func (s *Scene) Header() (TextField, bool) {
	return s.bar(KindHeader)
}

// Footer returns the footer field, if any.
func (s *Scene) Footer() (TextField, bool) {
	return s.bar(KindFooter)
}

func (s *Scene) bar(k Kind) (TextField, bool) {
	for _, f := range s.TextFields {
		if f.Kind == k {
			return f, true
		}
	}
	return TextField{}, false
}

// HasHeaderText is true iff the header's trimmed text is non-empty.
func (s *Scene) HasHeaderText() bool {
	f, ok := s.Header()
	return ok && f.HasText()
}

// HasFooterText is true iff the footer's trimmed text is non-empty.
func (s *Scene) HasFooterText() bool {
	f, ok := s.Footer()
	return ok && f.HasText()
}

// RegularFields returns the regular text fields in scene order.
func (s *Scene) RegularFields() []TextField {
	var out []TextField
	for _, f := range s.TextFields {
		if f.Kind == KindRegular {
			out = append(out, f)
		}
	}
	return out
}

// Validate checks the snapshot invariants, fills zero-valued multipliers and
// normalises field text to NFC.
func (s *Scene) Validate() error {
	ids := make(map[int]bool)
	bars := make(map[Kind]int)

	for i := range s.TextFields {
		f := &s.TextFields[i]
		if ids[f.ID] {
			return fmt.Errorf("duplicate field id %d", f.ID)
		}
		ids[f.ID] = true

		switch f.Kind {
		case KindHeader, KindFooter:
			bars[f.Kind]++
			if bars[f.Kind] > 1 {
				return fmt.Errorf("more than one %s field", f.Kind)
			}
		case KindRegular:
		case "":
			f.Kind = KindRegular
		default:
			return fmt.Errorf("field %d: unknown kind %q", f.ID, f.Kind)
		}

		if f.Opacity < 0 || f.Opacity > 100 {
			return fmt.Errorf("field %d: opacity %g out of range 0-100", f.ID, f.Opacity)
		}
		if f.Scale == 0 {
			f.Scale = 1
		}
		// fonts carry precomposed glyphs; combining marks would measure apart
		f.Text = norm.NFC.String(f.Text)
	}

	for i := range s.ImageFields {
		f := &s.ImageFields[i]
		if ids[f.ID] {
			return fmt.Errorf("duplicate field id %d", f.ID)
		}
		ids[f.ID] = true

		if f.Opacity < 0 || f.Opacity > 100 {
			return fmt.Errorf("image %d: opacity %g out of range 0-100", f.ID, f.Opacity)
		}
		if f.Width < 0 || f.Height < 0 {
			return fmt.Errorf("image %d: negative size", f.ID)
		}
		if f.Scale == 0 {
			f.Scale = 1
		}
	}
	return nil
}
