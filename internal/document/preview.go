package document

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/gen2brain/go-fitz"
	xdraw "golang.org/x/image/draw"
)

// ErrPageRange is returned when a preview asks for a page the document does not have
var ErrPageRange = errors.New("page out of range")

// Preview renders one page of a PDF to a PNG scaled to width pixels.
// A width of zero keeps the native render size.
func Preview(pdfData []byte, page, width int) ([]byte, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	if page < 0 || page >= doc.NumPage() {
		return nil, fmt.Errorf("%w: page %d, document has %d", ErrPageRange, page+1, doc.NumPage())
	}

	img, err := doc.Image(page)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}

	var out image.Image = img
	bounds := img.Bounds()
	if width > 0 && width < bounds.Dx() {
		height := bounds.Dy() * width / bounds.Dx()
		scaled := image.NewRGBA(image.Rect(0, 0, width, height))
		xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), img, bounds, xdraw.Over, nil)
		out = scaled
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}
