package preview

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/a3tai/mcp-pdf-forms/internal/diagnostics"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/acroform"
)

// maxPixels bounds either side of a rendered page
const maxPixels = 8192

var (
	paperColor  = color.RGBA{0xff, 0xff, 0xff, 0xff}
	borderColor = color.RGBA{0x99, 0x99, 0x99, 0xff}
	fieldFill   = color.RGBA{0xdd, 0xe8, 0xff, 0xff}
	fieldEdge   = color.RGBA{0x33, 0x66, 0xcc, 0xff}
	textColor   = color.RGBA{0x22, 0x22, 0x22, 0xff}
)

// Document is a loaded PDF that can rasterise its pages
type Document interface {
	NumPages() int
	RenderPage(ctx context.Context, page int, scale float64) (image.Image, error)
}

// Opener turns PDF bytes into a Document
type Opener func(data []byte) (Document, error)

// OpenWireframe is the default Opener
func OpenWireframe(data []byte) (Document, error) {
	return NewWireframeDocument(data)
}

// WireframeDocument draws each page as its box, the form widget rectangles
// and the positioned text runs. It does not interpret vector graphics or
// images.
type WireframeDocument struct {
	dims    []types.Dim
	widgets map[int][]acroform.FieldDescriptor

	mu   sync.Mutex // text reader is not safe for concurrent use
	text *pdf.Reader
}

// NewWireframeDocument parses data. Unreadable documents are PDFParse errors.
func NewWireframeDocument(data []byte) (doc *WireframeDocument, err error) {
	defer func() {
		if p := recover(); p != nil {
			doc, err = nil, diagnostics.WrapError(diagnostics.KindPDFParse, "failed to open PDF for preview",
				fmt.Errorf("panic: %v", p))
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, diagnostics.WrapError(diagnostics.KindPDFParse, "failed to open PDF for preview", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, diagnostics.WrapError(diagnostics.KindPDFParse, "failed to count pages", err)
	}
	dims, err := ctx.PageDims()
	if err != nil {
		return nil, diagnostics.WrapError(diagnostics.KindPDFParse, "failed to read page sizes", err)
	}

	doc = &WireframeDocument{
		dims:    dims,
		widgets: make(map[int][]acroform.FieldDescriptor),
	}

	// Widgets and text are decoration; a document without them still renders.
	if fields, err := acroform.ExtractFormFields(data); err == nil {
		for _, f := range fields {
			if f.Rect != nil && f.Page > 0 {
				doc.widgets[f.Page] = append(doc.widgets[f.Page], f)
			}
		}
	}
	if r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data))); err == nil {
		doc.text = r
	}
	return doc, nil
}

// NumPages returns the page count
func (d *WireframeDocument) NumPages() int {
	return len(d.dims)
}

// RenderPage rasterises page (1-based) at scale pixels per point
func (d *WireframeDocument) RenderPage(ctx context.Context, page int, scale float64) (img image.Image, err error) {
	if page < 1 || page > len(d.dims) {
		return nil, fmt.Errorf("page %d out of range [1,%d]", page, len(d.dims))
	}
	if scale <= 0 {
		return nil, fmt.Errorf("invalid scale %.2f", scale)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	defer func() {
		if p := recover(); p != nil {
			img, err = nil, fmt.Errorf("render page %d: panic: %v", page, p)
		}
	}()

	dim := d.dims[page-1]
	w := int(math.Ceil(dim.Width * scale))
	h := int(math.Ceil(dim.Height * scale))
	if w < 1 || h < 1 || w > maxPixels || h > maxPixels {
		return nil, fmt.Errorf("page %d: %dx%d pixels out of bounds", page, w, h)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(paperColor), image.Point{}, draw.Src)
	outline(canvas, canvas.Bounds(), borderColor)

	// PDF space has its origin bottom left.
	toPixels := func(x, y float64) (int, int) {
		return int(math.Round(x * scale)), int(math.Round((dim.Height - y) * scale))
	}

	for _, f := range d.widgets[page] {
		x0, y1 := toPixels(f.Rect.X, f.Rect.Y)
		x1, y0 := toPixels(f.Rect.X+f.Rect.Width, f.Rect.Y+f.Rect.Height)
		r := image.Rect(x0, y0, x1, y1).Intersect(canvas.Bounds())
		if r.Empty() {
			continue
		}
		draw.Draw(canvas, r, image.NewUniform(fieldFill), image.Point{}, draw.Over)
		outline(canvas, r, fieldEdge)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	drawer := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(textColor),
		Face: basicfont.Face7x13,
	}
	for _, run := range d.textRuns(page) {
		x, y := toPixels(run.X, run.Y)
		drawer.Dot = fixed.P(x, y)
		drawer.DrawString(run.S)
	}

	return canvas, nil
}

// textRuns returns the positioned text of page, or nothing when the text
// layer cannot be read
func (d *WireframeDocument) textRuns(page int) (runs []pdf.Text) {
	if d.text == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	defer func() {
		if recover() != nil {
			runs = nil
		}
	}()

	if page > d.text.NumPage() {
		return nil
	}
	p := d.text.Page(page)
	if p.V.IsNull() {
		return nil
	}
	return p.Content().Text
}

func outline(img *image.RGBA, r image.Rectangle, c color.Color) {
	if r.Empty() {
		return
	}
	for x := r.Min.X; x < r.Max.X; x++ {
		img.Set(x, r.Min.Y, c)
		img.Set(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.Set(r.Min.X, y, c)
		img.Set(r.Max.X-1, y, c)
	}
}

// EncodePNG encodes a rendered page as PNG
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}
