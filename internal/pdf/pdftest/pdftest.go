// Package pdftest builds small AcroForm PDFs for tests.
package pdftest

import (
	"fmt"
	"sort"
	"strings"
)

// Field types as written into /FT
const (
	Text      = "Tx"
	Button    = "Btn"
	Choice    = "Ch"
	Signature = "Sig"
)

// Field flag bits
const (
	FlagReadOnly   = 1 << 0
	FlagRequired   = 1 << 1
	FlagRadio      = 1 << 15
	FlagPushbutton = 1 << 16
	FlagCombo      = 1 << 17
)

// Field describes one form field with a single widget.
//
// A dotted Name ("address.street") is written as a parent field "address"
// with a kid field "street".
type Field struct {
	Name    string
	Type    string
	Flags   int
	Value   string
	Options []string
	Page    int // 1-based, defaults to 1
	Rect    [4]float64
	// Appearance adds /AP << /N << /Yes .. /Off .. >> >> for button fields
	Appearance bool
	// Orphan leaves the widget off the AcroForm /Fields array
	Orphan bool
}

// Form is a document description
type Form struct {
	Pages  int
	Text   string // drawn on every page
	Fields []Field
	// NoAcroForm omits the /AcroForm entry from the catalog
	NoAcroForm bool
}

type object struct {
	num  int
	body string
}

type builder struct {
	objects []object
}

func (b *builder) reserve() int {
	b.objects = append(b.objects, object{num: len(b.objects) + 1})
	return len(b.objects)
}

func (b *builder) set(num int, body string) {
	b.objects[num-1].body = body
}

func (b *builder) add(body string) int {
	num := b.reserve()
	b.set(num, body)
	return num
}

func (b *builder) stream(dict, content string) int {
	return b.add(fmt.Sprintf("<< %s /Length %d >>\nstream\n%s\nendstream", dict, len(content), content))
}

func ref(num int) string {
	return fmt.Sprintf("%d 0 R", num)
}

func refs(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = ref(n)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Literal escapes s as a PDF literal string
func Literal(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return "(" + r.Replace(s) + ")"
}

// Bytes renders the form as a complete PDF file with a classic xref table
func (f Form) Bytes() []byte {
	pages := f.Pages
	if pages < 1 {
		pages = 1
	}
	text := f.Text
	if text == "" {
		text = "Bestellformular"
	}

	b := &builder{}
	catalog := b.reserve()
	pagesNum := b.reserve()
	acroForm := b.reserve()
	font := b.add("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	pageNums := make([]int, pages)
	for i := range pageNums {
		pageNums[i] = b.reserve()
	}

	annots := make(map[int][]int)
	var topLevel []int
	parents := make(map[string]int)
	kids := make(map[string][]int)
	var parentOrder []string

	for _, fld := range f.Fields {
		page := fld.Page
		if page < 1 || page > pages {
			page = 1
		}
		rect := fld.Rect
		if rect == [4]float64{} {
			rect = [4]float64{72, 700, 272, 720}
		}

		parentName, partial := "", fld.Name
		if i := strings.LastIndex(fld.Name, "."); i >= 0 {
			parentName, partial = fld.Name[:i], fld.Name[i+1:]
		}

		var d strings.Builder
		fmt.Fprintf(&d, "<< /Type /Annot /Subtype /Widget /FT /%s /T %s /F 4", fld.Type, Literal(partial))
		fmt.Fprintf(&d, " /Rect [%g %g %g %g] /P %s", rect[0], rect[1], rect[2], rect[3], ref(pageNums[page-1]))
		if fld.Flags != 0 {
			fmt.Fprintf(&d, " /Ff %d", fld.Flags)
		}
		switch fld.Type {
		case Text, Choice:
			d.WriteString(" /DA (/Helv 10 Tf 0 g)")
			if fld.Value != "" {
				fmt.Fprintf(&d, " /V %s", Literal(fld.Value))
			}
		case Button:
			if fld.Value != "" {
				fmt.Fprintf(&d, " /V /%s /AS /%s", fld.Value, fld.Value)
			} else if fld.Appearance {
				d.WriteString(" /AS /Off")
			}
		}
		if len(fld.Options) > 0 {
			opts := make([]string, len(fld.Options))
			for i, o := range fld.Options {
				opts[i] = Literal(o)
			}
			fmt.Fprintf(&d, " /Opt [%s]", strings.Join(opts, " "))
		}
		if fld.Appearance {
			w, h := rect[2]-rect[0], rect[3]-rect[1]
			bbox := fmt.Sprintf("/Type /XObject /Subtype /Form /BBox [0 0 %g %g]", w, h)
			on := b.stream(bbox, "0 0 1 rg 1 1 m 4 4 l S")
			off := b.stream(bbox, "")
			fmt.Fprintf(&d, " /AP << /N << /Yes %s /Off %s >> >>", ref(on), ref(off))
		}

		num := b.reserve()
		if parentName != "" {
			p, ok := parents[parentName]
			if !ok {
				p = b.reserve()
				parents[parentName] = p
				parentOrder = append(parentOrder, parentName)
				if !fld.Orphan {
					topLevel = append(topLevel, p)
				}
			}
			fmt.Fprintf(&d, " /Parent %s", ref(p))
			kids[parentName] = append(kids[parentName], num)
		} else if !fld.Orphan {
			topLevel = append(topLevel, num)
		}
		d.WriteString(" >>")
		b.set(num, d.String())
		annots[page] = append(annots[page], num)
	}

	for _, name := range parentOrder {
		b.set(parents[name], fmt.Sprintf("<< /T %s /Kids %s >>", Literal(name), refs(kids[name])))
	}

	for i, pn := range pageNums {
		content := b.stream("", fmt.Sprintf("BT /F1 12 Tf 72 800 Td %s Tj ET", Literal(text)))
		var d strings.Builder
		fmt.Fprintf(&d, "<< /Type /Page /Parent %s /MediaBox [0 0 595 842]", ref(pagesNum))
		fmt.Fprintf(&d, " /Resources << /Font << /F1 %s >> >> /Contents %s", ref(font), ref(content))
		if a := annots[i+1]; len(a) > 0 {
			fmt.Fprintf(&d, " /Annots %s", refs(a))
		}
		d.WriteString(" >>")
		b.set(pn, d.String())
	}

	b.set(pagesNum, fmt.Sprintf("<< /Type /Pages /Kids %s /Count %d >>", refs(pageNums), pages))
	b.set(acroForm, fmt.Sprintf("<< /Fields %s /DA (/Helv 0 Tf 0 g) /DR << /Font << /Helv %s >> >> >>",
		refs(topLevel), ref(font)))
	if f.NoAcroForm {
		b.set(catalog, fmt.Sprintf("<< /Type /Catalog /Pages %s >>", ref(pagesNum)))
	} else {
		b.set(catalog, fmt.Sprintf("<< /Type /Catalog /Pages %s /AcroForm %s >>", ref(pagesNum), ref(acroForm)))
	}

	return b.render(catalog)
}

func (b *builder) render(root int) []byte {
	var out strings.Builder
	out.WriteString("%PDF-1.7\n")

	offsets := make([]int, len(b.objects))
	for i, o := range b.objects {
		offsets[i] = out.Len()
		fmt.Fprintf(&out, "%d 0 obj\n%s\nendobj\n", o.num, o.body)
	}

	xref := out.Len()
	fmt.Fprintf(&out, "xref\n0 %d\n", len(b.objects)+1)
	out.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&out, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&out, "trailer\n<< /Size %d /Root %s >>\nstartxref\n%d\n%%%%EOF\n",
		len(b.objects)+1, ref(root), xref)
	return []byte(out.String())
}

// OrderForm returns a one-page order form with the fields most tests need
func OrderForm() Form {
	return Form{
		Fields: []Field{
			{Name: "Projekt", Type: Text, Rect: [4]float64{72, 700, 300, 720}},
			{Name: "Bestellnummer", Type: Text, Rect: [4]float64{72, 670, 300, 690}, Flags: FlagRequired},
			{Name: "Datum", Type: Text, Rect: [4]float64{320, 700, 520, 720}, Value: "01.01.2024"},
			{Name: "Pos1_Artikel", Type: Text, Rect: [4]float64{72, 600, 300, 620}},
			{Name: "Pos1_Menge", Type: Text, Rect: [4]float64{320, 600, 400, 620}, Flags: FlagReadOnly},
			{Name: "Express", Type: Button, Rect: [4]float64{72, 560, 84, 572}, Appearance: true},
			{Name: "Lieferart", Type: Choice, Flags: FlagCombo, Options: []string{"Abholung", "Lieferung"},
				Rect: [4]float64{320, 560, 520, 580}},
			{Name: "Ingenieur.Name", Type: Text, Rect: [4]float64{72, 500, 300, 520}},
			{Name: "Ingenieur.Ort", Type: Text, Rect: [4]float64{320, 500, 520, 520}},
		},
	}
}

// FieldNames returns the qualified names of f's fields, sorted
func (f Form) FieldNames() []string {
	names := make([]string, 0, len(f.Fields))
	for _, fld := range f.Fields {
		names = append(names, fld.Name)
	}
	sort.Strings(names)
	return names
}
