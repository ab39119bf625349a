package document

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"time"

	"github.com/gen2brain/go-fitz"
	"github.com/go-pdf/fpdf"
	xdraw "golang.org/x/image/draw"

	"github.com/zombor/paysheet/internal/record"
)

// Renderer turns a timesheet record into a PDF document
type Renderer interface {
	// Render fills the template with the record. A non-nil error means no document
	// was produced; blank fields are reported on the Result instead.
	Render(rec *record.Record) (*Result, error)
}

// Result is a rendered timesheet
type Result struct {
	PDF   []byte
	Blank []FieldIssue
}

// Degraded reports whether some fields were left blank
func (r *Result) Degraded() bool {
	return len(r.Blank) > 0
}

// PDFRenderer overlays text onto a template PDF
type PDFRenderer struct {
	templatePath string
	layout       *Layout
}

// NewPDFRenderer creates a renderer and checks the template can be loaded
func NewPDFRenderer(templatePath string, layout *Layout) (*PDFRenderer, error) {
	if layout == nil {
		var err error
		layout, err = DefaultLayout()
		if err != nil {
			return nil, fmt.Errorf("loading default layout: %w", err)
		}
	}
	if _, err := LoadTemplate(templatePath, layout.Pages); err != nil {
		return nil, err
	}
	return &PDFRenderer{templatePath: templatePath, layout: layout}, nil
}

// Layout returns the layout the renderer draws with
func (p *PDFRenderer) Layout() *Layout {
	return p.layout
}

// Render loads the template and draws the record onto it.
// The template file is only ever read.
func (p *PDFRenderer) Render(rec *record.Record) (*Result, error) {
	tpl, err := LoadTemplate(p.templatePath, p.layout.Pages)
	if err != nil {
		return nil, err
	}

	for _, c := range rec.Coerced() {
		slog.Warn("Non-numeric hours counted as zero", "field", c.Field, "raw", c.Raw, "wnum", rec.WNum)
	}

	stamps, issues := Plan(rec, p.layout)
	for _, issue := range issues {
		slog.Warn("Rendering field blank", "field", issue.Field, "reason", issue.Reason, "wnum", rec.WNum)
	}

	data, err := Compose(tpl, p.layout, stamps, documentDate(rec))
	if err != nil {
		return nil, err
	}

	return &Result{PDF: data, Blank: issues}, nil
}

// documentDate is stamped as the PDF creation date so output depends only on the record
func documentDate(rec *record.Record) time.Time {
	return rec.PayPeriodEndDate.In(time.UTC)
}

// backgroundImage names the rasterised template inside the composed PDF
const backgroundImage = "template"

// Compose draws stamps over the template pages and returns the resulting PDF.
// The output is a function of its arguments alone: rendering the same record
// twice yields identical bytes.
func Compose(tpl *Template, l *Layout, stamps []Stamp, created time.Time) ([]byte, error) {
	dpi := l.Resolution()
	sheet, offsets, err := rasterise(tpl, dpi)
	if err != nil {
		return nil, err
	}
	var sheetPNG bytes.Buffer
	if err := png.Encode(&sheetPNG, sheet); err != nil {
		return nil, fmt.Errorf("encoding template background: %w", err)
	}

	first := tpl.Pages[0]
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: first.Width, Ht: first.Height},
	})
	pdf.SetCreationDate(created)
	pdf.SetModificationDate(created)
	pdf.SetCatalogSort(true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(backgroundImage, opts, &sheetPNG)

	// pixels to points
	scale := 72 / dpi
	sheetW := float64(sheet.Bounds().Dx()) * scale
	sheetH := float64(sheet.Bounds().Dy()) * scale

	for i, size := range tpl.Pages {
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: size.Width, Ht: size.Height})
		// shift the sheet up so this page's band fills the media box
		pdf.ImageOptions(backgroundImage, 0, -float64(offsets[i])*scale, sheetW, sheetH, false, opts, 0, "")
		pdf.SetTextColor(l.Color[0], l.Color[1], l.Color[2])
		for _, s := range stamps {
			if s.Page != i {
				continue
			}
			pdf.SetFont(l.Font, "", s.Size)
			// layout y is measured from the bottom edge, fpdf from the top
			pdf.Text(s.X, size.Height-s.Y, tr(s.Text))
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// rasterise renders every template page and stacks them top to bottom on one
// white sheet. offsets holds the first pixel row of each page.
//
// A single image keeps the object order fixed: fpdf orders images of equal
// width by map iteration.
func rasterise(tpl *Template, dpi float64) (*image.RGBA, []int, error) {
	doc, err := fitz.NewFromMemory(tpl.Data)
	if err != nil {
		return nil, nil, &TemplateError{Path: tpl.Path, Err: fmt.Errorf("opening PDF: %w", err)}
	}
	defer doc.Close()

	pages := make([]*image.RGBA, len(tpl.Pages))
	offsets := make([]int, len(tpl.Pages))
	width, height := 0, 0
	for i := range tpl.Pages {
		img, err := doc.ImageDPI(i, dpi)
		if err != nil {
			return nil, nil, &TemplateError{Path: tpl.Path, Err: fmt.Errorf("rendering page %d: %w", i+1, err)}
		}
		pages[i] = img
		offsets[i] = height
		height += img.Bounds().Dy()
		width = max(width, img.Bounds().Dx())
	}

	sheet := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.Draw(sheet, sheet.Bounds(), image.White, image.Point{}, xdraw.Src)
	for i, img := range pages {
		b := img.Bounds()
		dst := image.Rect(0, offsets[i], b.Dx(), offsets[i]+b.Dy())
		xdraw.Draw(sheet, dst, img, b.Min, xdraw.Over)
	}
	return sheet, offsets, nil
}
