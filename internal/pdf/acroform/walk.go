package acroform

import (
	"bytes"
	"fmt"
	"math"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/a3tai/mcp-pdf-forms/internal/diagnostics"
)

// maxFieldDepth bounds the field tree walk
const maxFieldDepth = 32

// formField is a terminal field with its widget annotations
type formField struct {
	name    string
	typ     FieldType
	flags   int
	dict    types.Dict
	widgets []*widget
	orphan  bool
}

type widget struct {
	dict  types.Dict
	objNr int
	page  int
	rect  *Rect
}

// form is the walked field tree of one document
type form struct {
	ctx      *model.Context
	catalog  types.Dict
	acroForm types.Dict
	fields   []*formField
	byName   map[string]*formField

	visited     map[int]bool
	widgetPage  map[int]int // widget object number -> page
	pageByObj   map[int]int // page object number -> page
	pageAnnots  map[int]types.Array
	seenWidgets map[int]bool
}

// readContext parses pdfBytes. Fill paths validate and optimize so the context
// can be written back.
func readContext(pdfBytes []byte, forWriting bool) (ctx *model.Context, err error) {
	defer func() {
		if p := recover(); p != nil {
			ctx, err = nil, diagnostics.WrapError(diagnostics.KindPDFParse, "failed to read PDF context",
				fmt.Errorf("panic: %v", p))
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	rs := bytes.NewReader(pdfBytes)
	if forWriting {
		ctx, err = api.ReadValidateAndOptimize(rs, conf)
	} else {
		ctx, err = api.ReadContext(rs, conf)
	}
	if err != nil {
		return nil, diagnostics.WrapError(diagnostics.KindPDFParse, "failed to read PDF context", err)
	}

	if err := ctx.EnsurePageCount(); err != nil {
		return nil, diagnostics.WrapError(diagnostics.KindPDFParse, "failed to ensure page count", err)
	}
	return ctx, nil
}

// loadForm walks the AcroForm field tree and the page annotations
func loadForm(ctx *model.Context) (*form, error) {
	catalog, err := ctx.Catalog()
	if err != nil {
		return nil, diagnostics.WrapError(diagnostics.KindPDFParse, "failed to get catalog", err)
	}

	f := &form{
		ctx:         ctx,
		catalog:     catalog,
		byName:      make(map[string]*formField),
		visited:     make(map[int]bool),
		widgetPage:  make(map[int]int),
		pageByObj:   make(map[int]int),
		pageAnnots:  make(map[int]types.Array),
		seenWidgets: make(map[int]bool),
	}
	f.indexPages()

	if obj, found := catalog.Find("AcroForm"); found {
		acroForm, err := ctx.DereferenceDict(obj)
		if err != nil {
			return nil, diagnostics.WrapError(diagnostics.KindPDFParse, "failed to dereference AcroForm", err)
		}
		f.acroForm = acroForm
	}

	if f.acroForm != nil {
		if fieldsObj, found := f.acroForm.Find("Fields"); found {
			fields, err := ctx.DereferenceArray(fieldsObj)
			if err != nil {
				return nil, diagnostics.WrapError(diagnostics.KindPDFParse, "failed to dereference Fields array", err)
			}
			for _, obj := range fields {
				f.visit(obj, "", inherited{}, 0)
			}
		}
	}

	f.collectOrphans()
	return f, nil
}

// inherited carries the inheritable field attributes down the tree
type inherited struct {
	ft    string
	flags int
}

func (f *form) inherit(d types.Dict, inh inherited) inherited {
	if obj, found := d.Find("FT"); found {
		if name, err := f.ctx.DereferenceName(obj, model.V10, nil); err == nil {
			inh.ft = string(name)
		}
	}
	if obj, found := d.Find("Ff"); found {
		if flags, err := f.ctx.DereferenceInteger(obj); err == nil && flags != nil {
			inh.flags = int(*flags)
		}
	}
	return inh
}

func (f *form) visit(obj types.Object, parent string, inh inherited, depth int) {
	if depth > maxFieldDepth {
		return
	}
	objNr := objectNumber(obj)
	if objNr > 0 {
		if f.visited[objNr] {
			return
		}
		f.visited[objNr] = true
	}

	d, err := f.ctx.DereferenceDict(obj)
	if err != nil || d == nil {
		return
	}

	name := parent
	if partial := f.stringEntry(d, "T"); partial != "" {
		if parent != "" {
			name = parent + "." + partial
		} else {
			name = partial
		}
	}
	if name == "" {
		name = fmt.Sprintf("field_%d", objNr)
	}
	inh = f.inherit(d, inh)

	var childFields, widgetKids types.Array
	if kidsObj, found := d.Find("Kids"); found {
		kids, _ := f.ctx.DereferenceArray(kidsObj)
		for _, kid := range kids {
			kd, err := f.ctx.DereferenceDict(kid)
			if err != nil || kd == nil {
				continue
			}
			if _, hasT := kd.Find("T"); hasT {
				childFields = append(childFields, kid)
			} else {
				widgetKids = append(widgetKids, kid)
			}
		}
	}

	if len(childFields) > 0 {
		for _, kid := range childFields {
			f.visit(kid, name, inh, depth+1)
		}
		return
	}

	fld := f.field(name, inh, d)
	if len(widgetKids) == 0 {
		// Field and widget share one dictionary.
		fld.widgets = append(fld.widgets, f.newWidget(d, objNr))
		return
	}
	for _, kid := range widgetKids {
		kd, _ := f.ctx.DereferenceDict(kid)
		fld.widgets = append(fld.widgets, f.newWidget(kd, objectNumber(kid)))
	}
}

// field returns the field registered under name, creating it on first use
func (f *form) field(name string, inh inherited, d types.Dict) *formField {
	if existing, ok := f.byName[name]; ok {
		return existing
	}
	fld := &formField{
		name:  name,
		typ:   classify(inh.ft, inh.flags),
		flags: inh.flags,
		dict:  d,
	}
	f.fields = append(f.fields, fld)
	f.byName[name] = fld
	return fld
}

func (f *form) newWidget(d types.Dict, objNr int) *widget {
	w := &widget{dict: d, objNr: objNr, rect: f.rectEntry(d)}
	if objNr > 0 {
		f.seenWidgets[objNr] = true
		w.page = f.widgetPage[objNr]
	}
	if w.page == 0 {
		if pObj, found := d.Find("P"); found {
			w.page = f.pageByObj[objectNumber(pObj)]
		}
	}
	return w
}

// indexPages records which page each annotation sits on
func (f *form) indexPages() {
	for pageNr := 1; pageNr <= f.ctx.PageCount; pageNr++ {
		pageDict, pageRef, _, err := f.ctx.PageDict(pageNr, false)
		if err != nil || pageDict == nil {
			continue
		}
		if pageRef != nil {
			f.pageByObj[int(pageRef.ObjectNumber)] = pageNr
		}
		annotsObj, found := pageDict.Find("Annots")
		if !found {
			continue
		}
		annots, err := f.ctx.DereferenceArray(annotsObj)
		if err != nil {
			continue
		}
		f.pageAnnots[pageNr] = annots
		for _, a := range annots {
			if n := objectNumber(a); n > 0 {
				f.widgetPage[n] = pageNr
			}
		}
	}
}

// collectOrphans adds widget annotations that sit on pages but are not
// reachable from the AcroForm field tree.
func (f *form) collectOrphans() {
	for pageNr := 1; pageNr <= f.ctx.PageCount; pageNr++ {
		for _, a := range f.pageAnnots[pageNr] {
			objNr := objectNumber(a)
			if objNr == 0 || f.seenWidgets[objNr] {
				continue
			}
			d, err := f.ctx.DereferenceDict(a)
			if err != nil || d == nil || !f.isWidget(d) {
				continue
			}
			name, inh := f.qualify(d)
			if name == "" {
				continue
			}
			fld := f.field(name, inh, d)
			fld.orphan = true
			fld.widgets = append(fld.widgets, f.newWidget(d, objNr))
		}
	}
}

// qualify derives a widget's qualified name and inherited attributes from its Parent chain
func (f *form) qualify(d types.Dict) (string, inherited) {
	chain := []types.Dict{d}
	cur := d
	for i := 0; i < maxFieldDepth; i++ {
		pObj, found := cur.Find("Parent")
		if !found {
			break
		}
		parent, err := f.ctx.DereferenceDict(pObj)
		if err != nil || parent == nil {
			break
		}
		chain = append(chain, parent)
		cur = parent
	}

	var name string
	var inh inherited
	for i := len(chain) - 1; i >= 0; i-- {
		inh = f.inherit(chain[i], inh)
		if partial := f.stringEntry(chain[i], "T"); partial != "" {
			if name != "" {
				name += "."
			}
			name += partial
		}
	}
	return name, inh
}

func (f *form) isWidget(d types.Dict) bool {
	obj, found := d.Find("Subtype")
	if !found {
		return false
	}
	name, err := f.ctx.DereferenceName(obj, model.V10, nil)
	return err == nil && string(name) == "Widget"
}

func (f *form) stringEntry(d types.Dict, key string) string {
	obj, found := d.Find(key)
	if !found {
		return ""
	}
	s, err := f.ctx.DereferenceStringOrHexLiteral(obj, model.V10, nil)
	if err != nil {
		return ""
	}
	return s
}

func (f *form) rectEntry(d types.Dict) *Rect {
	obj, found := d.Find("Rect")
	if !found {
		return nil
	}
	arr, err := f.ctx.DereferenceArray(obj)
	if err != nil || len(arr) != 4 {
		return nil
	}
	var c [4]float64
	for i, o := range arr {
		n, err := f.ctx.DereferenceNumber(o)
		if err != nil {
			return nil
		}
		c[i] = n
	}
	return &Rect{
		X:      math.Min(c[0], c[2]),
		Y:      math.Min(c[1], c[3]),
		Width:  math.Abs(c[2] - c[0]),
		Height: math.Abs(c[3] - c[1]),
	}
}

// classify maps FT and Ff to a FieldType
func classify(ft string, flags int) FieldType {
	switch ft {
	case "Btn":
		if flags&flagRadio != 0 {
			return FieldTypeRadio
		}
		if flags&flagPushbutton != 0 {
			return FieldTypeButton
		}
		return FieldTypeCheckbox
	case "Tx":
		return FieldTypeText
	case "Ch":
		return FieldTypeDropdown
	case "Sig":
		return FieldTypeSignature
	default:
		return FieldTypeUnknown
	}
}

func objectNumber(obj types.Object) int {
	switch ir := obj.(type) {
	case types.IndirectRef:
		return int(ir.ObjectNumber)
	case *types.IndirectRef:
		if ir != nil {
			return int(ir.ObjectNumber)
		}
	}
	return 0
}
