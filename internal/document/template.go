package document

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/gen2brain/go-fitz"
	"github.com/phpdave11/gofpdi"
)

// PageSize is the size of a template page in PDF points
type PageSize struct {
	Width  float64
	Height float64
}

// Template is a fixed background document loaded into memory
type Template struct {
	Path  string
	Data  []byte
	Pages []PageSize
}

// TemplateError reports a missing, unreadable or mismatched template.
// It is fatal for the render that hit it.
type TemplateError struct {
	Path string
	Err  error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template %s: %v", e.Path, e.Err)
}

func (e *TemplateError) Unwrap() error {
	return e.Err
}

// LoadTemplate reads a template PDF and checks it has the expected number of pages
func LoadTemplate(path string, pages int) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &TemplateError{Path: path, Err: err}
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, &TemplateError{Path: path, Err: fmt.Errorf("opening PDF: %w", err)}
	}
	defer doc.Close()

	n := doc.NumPage()
	if n != pages {
		return nil, &TemplateError{Path: path, Err: fmt.Errorf("expected %d pages, found %d", pages, n)}
	}

	sizes, err := pageSizes(data, n)
	if err != nil {
		return nil, &TemplateError{Path: path, Err: err}
	}

	return &Template{Path: path, Data: data, Pages: sizes}, nil
}

// pageSizes reads each page's MediaBox, resolving inherited boxes, in fractional points
func pageSizes(data []byte, pages int) (sizes []PageSize, err error) {
	// the reader panics on malformed input
	defer func() {
		if r := recover(); r != nil {
			sizes = nil
			err = fmt.Errorf("reading page boxes: %v", r)
		}
	}()

	imp := gofpdi.NewImporter()
	rs := io.ReadSeeker(bytes.NewReader(data))
	imp.SetSourceStream(&rs)
	boxes := imp.GetPageSizes()

	sizes = make([]PageSize, 0, pages)
	for i := 1; i <= pages; i++ {
		box := boxes[i]["/MediaBox"]
		if box["w"] <= 0 || box["h"] <= 0 {
			return nil, fmt.Errorf("page %d has no media box", i)
		}
		sizes = append(sizes, PageSize{Width: box["w"], Height: box["h"]})
	}
	return sizes, nil
}
