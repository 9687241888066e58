package source

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/skip2/go-qrcode"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Loader decodes an image reference into a raster.
type Loader interface {
	Load(ctx context.Context, src string) (image.Image, error)
}

// FileLoader resolves the reference forms a scene may use:
//
//	path/to/file.png    any registered raster format
//	doc.pdf#2           page 2 of a PDF, rendered at DPI
//	data:image/png;...  inline data URI
//	qr:payload          generated QR code
type FileLoader struct {
	BaseDir string
	DPI     int
	QRSize  int
}

func NewFileLoader(baseDir string) *FileLoader {
	return &FileLoader{BaseDir: baseDir, DPI: 150, QRSize: 256}
}

func (l *FileLoader) Load(ctx context.Context, src string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch {
	case src == "":
		return nil, fmt.Errorf("empty image reference")
	case strings.HasPrefix(src, "data:"):
		return decodeDataURI(src)
	case strings.HasPrefix(src, "qr:"):
		return l.renderQR(strings.TrimPrefix(src, "qr:"))
	}

	path, page := splitPage(src)
	if !filepath.IsAbs(path) && l.BaseDir != "" {
		path = filepath.Join(l.BaseDir, path)
	}
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return l.renderPDFPage(path, page)
	}
	return decodeFile(path)
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

func decodeDataURI(src string) (image.Image, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("malformed data URI")
	}

	var data []byte
	if strings.HasSuffix(meta, ";base64") {
		b, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("data URI payload: %w", err)
		}
		data = b
	} else {
		s, err := url.PathUnescape(payload)
		if err != nil {
			return nil, fmt.Errorf("data URI payload: %w", err)
		}
		data = []byte(s)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode data URI: %w", err)
	}
	return img, nil
}

func (l *FileLoader) renderQR(payload string) (image.Image, error) {
	if payload == "" {
		return nil, fmt.Errorf("empty QR payload")
	}
	q, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	size := l.QRSize
	if size <= 0 {
		size = 256
	}
	return q.Image(size), nil
}

// renderPDFPage открывает свой документ, чтобы параллельные загрузки не
// делили контекст MuPDF.
func (l *FileLoader) renderPDFPage(path string, page int) (image.Image, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	if page < 1 || page > doc.NumPage() {
		return nil, fmt.Errorf("page %d out of range (1-%d) in %s", page, doc.NumPage(), path)
	}
	dpi := l.DPI
	if dpi <= 0 {
		dpi = 150
	}
	return doc.ImageDPI(page-1, float64(dpi))
}

// splitPage отделяет необязательный суффикс "#страница" (с 1).
func splitPage(src string) (string, int) {
	i := strings.LastIndex(src, "#")
	if i < 0 {
		return src, 1
	}
	n, err := strconv.Atoi(src[i+1:])
	if err != nil {
		return src, 1
	}
	return src[:i], n
}
