// Package fonts loads the typeface used to measure and draw exported text.
//
// A parsed Family is safe for concurrent use. Faces are not: each goroutine
// that draws or measures keeps its own FaceCache.
package fonts

import (
	"fmt"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// maxFontFileSize limits the size of font files loaded into memory.
const maxFontFileSize = 20 << 20 // 20 MB

type Family struct {
	Name string
	font *opentype.Font
}

// Bold returns the embedded Go Bold face, the stand-in for the editor's
// "bold Arial" that is available on every machine.
func Bold() *Family {
	f, err := opentype.Parse(gobold.TTF)
	if err != nil {
		panic(fmt.Sprintf("fonts: embedded gobold: %v", err))
	}
	return &Family{Name: "Go Bold", font: f}
}

// LoadFile parses a TrueType/OpenType file.
func LoadFile(path string) (*Family, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > maxFontFileSize {
		return nil, fmt.Errorf("font file too large: %d bytes (max %d)", info.Size(), maxFontFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	return &Family{Name: path, font: f}, nil
}

// NewFaceCache returns an empty cache of faces for this family.
func (fam *Family) NewFaceCache() *FaceCache {
	return &FaceCache{family: fam, faces: make(map[float64]font.Face)}
}

// FaceCache caches faces by pixel size. Not safe for concurrent use.
type FaceCache struct {
	family *Family
	faces  map[float64]font.Face
}

// Face returns a face whose em size is px pixels (72 DPI, so points equal
// pixels).
func (c *FaceCache) Face(px float64) font.Face {
	if face, ok := c.faces[px]; ok {
		return face
	}
	face, err := opentype.NewFace(c.family.font, &opentype.FaceOptions{
		Size:    px,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		// only fails for a non-positive size
		face, _ = opentype.NewFace(c.family.font, &opentype.FaceOptions{Size: 1, DPI: 72})
	}
	c.faces[px] = face
	return face
}

// Measure returns the advance width of s in pixels.
func (c *FaceCache) Measure(px float64, s string) float64 {
	return fixedToFloat(font.MeasureString(c.Face(px), s))
}

// Close releases every cached face.
func (c *FaceCache) Close() error {
	for k, face := range c.faces {
		face.Close()
		delete(c.faces, k)
	}
	return nil
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
