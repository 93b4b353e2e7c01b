package extract

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"

	"manualqa/internal/util"
)

// pdfDocument reads the text layer through ledongthuc/pdf and rasterizes
// pages through go-fitz.
type pdfDocument struct {
	reader *pdf.Reader
	raster *fitz.Document
	pages  int
}

// OpenPDF loads a PDF from memory, mapping open failures onto the pipeline
// error taxonomy.
func OpenPDF(data []byte) (doc Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("%w: parser panic: %v", util.ErrCorrupted, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, mapOpenError(err)
	}
	raster, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, mapOpenError(err)
	}
	return &pdfDocument{
		reader: reader,
		raster: raster,
		pages:  reader.NumPage(),
	}, nil
}

func (d *pdfDocument) PageCount() int { return d.pages }

func (d *pdfDocument) PageText(i int) (text string, err error) {
	// ledongthuc/pdf panics on some malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("text layer panic on page %d: %v", i+1, r)
		}
	}()

	p := d.reader.Page(i + 1)
	if p.V.IsNull() {
		return "", fmt.Errorf("page %d is missing", i+1)
	}
	return p.GetPlainText(nil)
}

func (d *pdfDocument) PageFragments(i int) (frags []Fragment, err error) {
	defer func() {
		if r := recover(); r != nil {
			frags = nil
			err = fmt.Errorf("content panic on page %d: %v", i+1, r)
		}
	}()

	p := d.reader.Page(i + 1)
	if p.V.IsNull() {
		return nil, fmt.Errorf("page %d is missing", i+1)
	}
	content := p.Content()
	out := make([]Fragment, 0, len(content.Text))
	for _, t := range content.Text {
		out = append(out, Fragment{Text: t.S, Y: t.Y})
	}
	return out, nil
}

func (d *pdfDocument) PageImage(i int, scale float64) (image.Image, error) {
	if scale <= 0 {
		scale = 2.0
	}
	// go-fitz renders at 72 DPI per unit scale.
	img, err := d.raster.ImageDPI(i, 72*scale)
	if err != nil {
		return nil, fmt.Errorf("rasterize page %d: %w", i+1, err)
	}
	return img, nil
}

func (d *pdfDocument) Close() error {
	return d.raster.Close()
}

func mapOpenError(err error) error {
	low := strings.ToLower(err.Error())
	switch {
	case strings.Contains(low, "encrypt"), strings.Contains(low, "password"):
		return fmt.Errorf("%w: %v", util.ErrPasswordProtected, err)
	case strings.Contains(low, "timeout"), strings.Contains(low, "connection"), strings.Contains(low, "unreachable"):
		return fmt.Errorf("%w: %v", util.ErrNetwork, err)
	default:
		return fmt.Errorf("%w: %v", util.ErrCorrupted, err)
	}
}
