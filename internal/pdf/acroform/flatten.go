package acroform

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Resource names used for flattened content
const (
	flattenFontName = "FfmHelv"
	flattenXObjPre  = "FfmAP"
	defaultFontSize = 10.0
	minAutoFontSize = 6.0
	maxAutoFontSize = 12.0
)

// flatten draws field values and appearances into page content, then removes
// the widget annotations and the AcroForm dictionary.
func (f *form) flatten(filled map[*formField]string) error {
	ops := make(map[int]*strings.Builder)
	xobjects := make(map[int]map[string]types.IndirectRef)
	removed := make(map[int]bool)

	opsFor := func(page int) *strings.Builder {
		if ops[page] == nil {
			ops[page] = &strings.Builder{}
		}
		return ops[page]
	}

	for _, fld := range f.fields {
		for _, w := range fld.widgets {
			if w.objNr > 0 {
				removed[w.objNr] = true
			}
			if w.page == 0 || w.rect == nil {
				continue
			}

			if fld.typ == FieldTypeText {
				text, ok := filled[fld]
				if !ok {
					text = f.value(fld)
				}
				if text != "" {
					f.drawText(opsFor(w.page), fld, w, text)
				}
				continue
			}

			ref, ok := f.appearance(w.dict)
			if !ok {
				continue
			}
			if xobjects[w.page] == nil {
				xobjects[w.page] = make(map[string]types.IndirectRef)
			}
			name := fmt.Sprintf("%s%d", flattenXObjPre, int(ref.ObjectNumber))
			xobjects[w.page][name] = ref
			fmt.Fprintf(opsFor(w.page), "q 1 0 0 1 %s %s cm /%s Do Q\n", num(w.rect.X), num(w.rect.Y), name)
		}
	}

	var fontRef *types.IndirectRef
	for pageNr := 1; pageNr <= f.ctx.PageCount; pageNr++ {
		pageDict, _, _, err := f.ctx.PageDict(pageNr, false)
		if err != nil || pageDict == nil {
			continue
		}

		if b := ops[pageNr]; b != nil && b.Len() > 0 {
			res, err := f.pageResources(pageDict)
			if err != nil {
				return fmt.Errorf("page %d resources: %w", pageNr, err)
			}
			if strings.Contains(b.String(), "/"+flattenFontName+" ") {
				if fontRef == nil {
					if fontRef, err = f.newFont(); err != nil {
						return err
					}
				}
				if err := f.addResource(res, "Font", flattenFontName, *fontRef); err != nil {
					return fmt.Errorf("page %d font: %w", pageNr, err)
				}
			}
			for name, ref := range xobjects[pageNr] {
				if err := f.addResource(res, "XObject", name, ref); err != nil {
					return fmt.Errorf("page %d appearance: %w", pageNr, err)
				}
			}
			if err := f.appendContent(pageDict, "Q\n"+b.String()); err != nil {
				return fmt.Errorf("page %d content: %w", pageNr, err)
			}
		}

		f.removeWidgets(pageNr, pageDict, removed)
	}

	f.catalog.Delete("AcroForm")
	return nil
}

// drawText renders text left-aligned and vertically centred in the widget box
func (f *form) drawText(b *strings.Builder, fld *formField, w *widget, text string) {
	size := f.fontSize(fld, w)
	if size <= 0 {
		size = math.Max(minAutoFontSize, math.Min(maxAutoFontSize, w.rect.Height*0.7))
	}
	x := w.rect.X + 2
	y := w.rect.Y + (w.rect.Height-size)/2 + size*0.22

	fmt.Fprintf(b, "q %s %s %s %s re W n BT /%s %s Tf 0 g %s %s Td %s Tj ET Q\n",
		num(w.rect.X), num(w.rect.Y), num(w.rect.Width), num(w.rect.Height),
		flattenFontName, num(size), num(x), num(y), winAnsiLiteral(text))
}

// fontSize reads the size operand of "Tf" from the widget, field or form /DA.
// It returns 0 for auto-size and defaultFontSize when no DA is found.
func (f *form) fontSize(fld *formField, w *widget) float64 {
	for _, d := range []types.Dict{w.dict, fld.dict, f.acroForm} {
		if d == nil {
			continue
		}
		if da := f.stringEntry(d, "DA"); da != "" {
			if size, ok := parseDAFontSize(da); ok {
				return size
			}
		}
	}
	return defaultFontSize
}

func parseDAFontSize(da string) (float64, bool) {
	tokens := strings.Fields(da)
	for i, tok := range tokens {
		if tok == "Tf" && i > 0 {
			size, err := strconv.ParseFloat(tokens[i-1], 64)
			if err != nil {
				return 0, false
			}
			return size, true
		}
	}
	return 0, false
}

// appearance picks the normal appearance stream of a widget, honouring /AS
func (f *form) appearance(d types.Dict) (types.IndirectRef, bool) {
	apObj, found := d.Find("AP")
	if !found {
		return types.IndirectRef{}, false
	}
	ap, err := f.ctx.DereferenceDict(apObj)
	if err != nil || ap == nil {
		return types.IndirectRef{}, false
	}
	n, found := ap.Find("N")
	if !found {
		return types.IndirectRef{}, false
	}

	if ref, ok := n.(types.IndirectRef); ok {
		if obj, err := f.ctx.Dereference(ref); err == nil {
			if _, isStream := obj.(types.StreamDict); isStream {
				return ref, true
			}
		}
	}

	states, err := f.ctx.DereferenceDict(n)
	if err != nil || states == nil {
		return types.IndirectRef{}, false
	}
	state := "Off"
	if asObj, found := d.Find("AS"); found {
		if as, err := f.ctx.DereferenceName(asObj, model.V10, nil); err == nil {
			state = string(as)
		}
	}
	if ref, ok := states[state].(types.IndirectRef); ok {
		return ref, true
	}
	return types.IndirectRef{}, false
}

// pageResources returns the page's own resource dictionary, copying inherited
// resources onto the page when it has none.
func (f *form) pageResources(pageDict types.Dict) (types.Dict, error) {
	if obj, found := pageDict.Find("Resources"); found {
		return f.ctx.DereferenceDict(obj)
	}

	res := types.NewDict()
	cur := pageDict
	for i := 0; i < maxFieldDepth; i++ {
		pObj, found := cur.Find("Parent")
		if !found {
			break
		}
		parent, err := f.ctx.DereferenceDict(pObj)
		if err != nil || parent == nil {
			break
		}
		if obj, found := parent.Find("Resources"); found {
			if inherited, err := f.ctx.DereferenceDict(obj); err == nil && inherited != nil {
				for k, v := range inherited {
					res.Insert(k, v)
				}
			}
			break
		}
		cur = parent
	}
	pageDict.Insert("Resources", res)
	return res, nil
}

func (f *form) addResource(res types.Dict, category, name string, ref types.IndirectRef) error {
	obj, found := res.Find(category)
	if !found {
		sub := types.NewDict()
		sub.Insert(name, ref)
		res.Insert(category, sub)
		return nil
	}
	sub, err := f.ctx.DereferenceDict(obj)
	if err != nil {
		return err
	}
	if sub == nil {
		sub = types.NewDict()
		res.Update(category, sub)
	}
	sub.Update(name, ref)
	return nil
}

func (f *form) newFont() (*types.IndirectRef, error) {
	d := types.NewDict()
	d.InsertName("Type", "Font")
	d.InsertName("Subtype", "Type1")
	d.InsertName("BaseFont", "Helvetica")
	d.InsertName("Encoding", "WinAnsiEncoding")
	return f.ctx.IndRefForNewObject(d)
}

func (f *form) newContentStream(content string) (types.IndirectRef, error) {
	sd := types.StreamDict{Dict: types.NewDict(), Content: []byte(content)}
	if err := sd.Encode(); err != nil {
		return types.IndirectRef{}, err
	}
	ref, err := f.ctx.IndRefForNewObject(sd)
	if err != nil {
		return types.IndirectRef{}, err
	}
	return *ref, nil
}

// appendContent wraps the existing page content in q/Q and appends content
func (f *form) appendContent(pageDict types.Dict, content string) error {
	var existing types.Array
	if obj, found := pageDict.Find("Contents"); found {
		switch c := obj.(type) {
		case types.IndirectRef:
			deref, err := f.ctx.Dereference(c)
			if err != nil {
				return err
			}
			if arr, ok := deref.(types.Array); ok {
				existing = append(existing, arr...)
			} else {
				existing = append(existing, c)
			}
		case types.Array:
			existing = append(existing, c...)
		}
	}

	save, err := f.newContentStream("q\n")
	if err != nil {
		return err
	}
	added, err := f.newContentStream(content)
	if err != nil {
		return err
	}

	contents := make(types.Array, 0, len(existing)+2)
	contents = append(contents, save)
	contents = append(contents, existing...)
	contents = append(contents, added)
	pageDict.Update("Contents", contents)
	return nil
}

// removeWidgets drops the form's widget annotations from the page
func (f *form) removeWidgets(pageNr int, pageDict types.Dict, removed map[int]bool) {
	annots, ok := f.pageAnnots[pageNr]
	if !ok {
		return
	}
	kept := make(types.Array, 0, len(annots))
	for _, a := range annots {
		if n := objectNumber(a); n > 0 && removed[n] {
			continue
		}
		kept = append(kept, a)
	}
	if len(kept) == 0 {
		pageDict.Delete("Annots")
		return
	}
	pageDict.Update("Annots", kept)
}

// num formats a content stream number without trailing zeros
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
