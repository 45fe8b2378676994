package schema

import (
	"fmt"

	"github.com/hazyhaar/ds160fill/dom"
	"github.com/hazyhaar/ds160fill/record"
)

// Naming derives client ids and control names from a server control name.
// ASP.NET WebForms renders a control "tbxX" inside the form view as id
// "<IDPrefix>tbxX" and name "<NamePrefix>tbxX".
type Naming struct {
	IDPrefix   string `json:"idPrefix"`
	NamePrefix string `json:"namePrefix"`
}

// FormView is the naming container every application page uses.
var FormView = Naming{
	IDPrefix:   "ctl00_SiteContentPlaceHolder_FormView1_",
	NamePrefix: "ctl00$SiteContentPlaceHolder$FormView1$",
}

func (n Naming) ID(ctrl string) string   { return n.IDPrefix + ctrl }
func (n Naming) Name(ctrl string) string { return n.NamePrefix + ctrl }

// RowGroup describes a repeating list rendered as rows ctl00, ctl01, ...
type RowGroup struct {
	List   string `json:"list"`   // list control, e.g. "DListAlias"
	Probe  string `json:"probe"`  // control present in every row
	Insert string `json:"insert"` // add-another control of a row
	Naming Naming `json:"naming"`
}

// ID returns the client id of ctrl in the given row.
func (g RowGroup) ID(row int, ctrl string) string {
	return g.Naming.ID(fmt.Sprintf("%s_ctl%02d_%s", g.List, row, ctrl))
}

// ControlName returns the form name of ctrl in the given row.
func (g RowGroup) ControlName(row int, ctrl string) string {
	return g.Naming.Name(fmt.Sprintf("%s$ctl%02d$%s", g.List, row, ctrl))
}

// RowPrefix is the id prefix shared by every control of a row.
func (g RowGroup) RowPrefix(row int) string {
	return g.Naming.ID(fmt.Sprintf("%s_ctl%02d_", g.List, row))
}

// TriggerID is the add-another control rendered in row.
func (g RowGroup) TriggerID(row int) string { return g.ID(row, g.Insert) }

// TriggerTarget is the postback target of the add-another control in row.
func (g RowGroup) TriggerTarget(row int) string { return g.ControlName(row, g.Insert) }

func group(list, probe, insert string) RowGroup {
	return RowGroup{List: list, Probe: probe, Insert: insert, Naming: FormView}
}

func control(kind Kind, n Naming, path, ctrl string) Instruction {
	return Instruction{
		Path:      path,
		Locator:   dom.ID(n.ID(ctrl)),
		Fallbacks: []dom.Locator{dom.Name(n.Name(ctrl))},
		Kind:      kind,
	}
}

func text(path, ctrl string) Instruction     { return control(KindText, FormView, path, ctrl) }
func choose(path, ctrl string) Instruction   { return control(KindSelect, FormView, path, ctrl) }
func checkbox(path, ctrl string) Instruction { return control(KindCheckbox, FormView, path, ctrl).With(BoolOrFalse) }

// radio addresses a Yes/No group by its shared name. The positional
// fallbacks are the Yes (_0) and No (_1) buttons.
func radio(path, ctrl string) Instruction {
	return Instruction{
		Path:    path,
		Locator: dom.Name(FormView.Name(ctrl)),
		Fallbacks: []dom.Locator{
			dom.ID(FormView.ID(ctrl) + "_0"),
			dom.ID(FormView.ID(ctrl) + "_1"),
		},
		Kind: KindRadio,
	}
}

func rowControl(kind Kind, g RowGroup, row int, path, ctrl string) Instruction {
	return Instruction{
		Path:      path,
		Locator:   dom.ID(g.ID(row, ctrl)),
		Fallbacks: []dom.Locator{dom.Name(g.ControlName(row, ctrl))},
		Kind:      kind,
	}
}

func rowRadio(g RowGroup, row int, path, ctrl string) Instruction {
	id := g.ID(row, ctrl)
	return Instruction{
		Path:      path,
		Locator:   dom.Name(g.ControlName(row, ctrl)),
		Fallbacks: []dom.Locator{dom.ID(id + "_0"), dom.ID(id + "_1")},
		Kind:      KindRadio,
	}
}

func expand(g RowGroup, row int, path string) Instruction {
	return Instruction{
		Path:    fmt.Sprintf("%s.%d", path, row),
		Locator: dom.ID(g.TriggerID(row - 1)),
		Kind:    KindExpand,
		Row:     &RowAction{Group: g, Index: row},
	}
}

// array fills a whole repeating group from one list value.
func array(path string, g RowGroup, t Transform) Instruction {
	return Instruction{
		Path:    path,
		Locator: dom.ID(g.ID(0, g.Probe)),
		Kind:    KindArray,
		Group:   &g,
	}.With(t)
}

// build accumulates a section's instructions.
type build struct {
	d   record.Data
	out []Instruction
}

func newBuild(d record.Data) *build { return &build{d: d} }

func (b *build) add(ins ...Instruction) { b.out = append(b.out, ins...) }

func (b *build) yes(path string) bool {
	v, _ := record.Lookup(b.d, path)
	return record.YesNo(v) == "Y"
}

func (b *build) no(path string) bool {
	v, _ := record.Lookup(b.d, path)
	return record.YesNo(v) == "N"
}

func (b *build) truthy(path string) bool {
	v, _ := record.Lookup(b.d, path)
	return record.Bool(v)
}

// naPair emits either the "does not apply" checkbox or the value control,
// never both.
func (b *build) naPair(value Instruction, naPath string, na Instruction) {
	if b.truthy(naPath) {
		b.add(na)
		return
	}
	b.add(value)
}

// list emits row 0, then for every further item an expand marker followed
// by that row's controls. row receives the item index and its path prefix
// ("otherNames.2.").
func (b *build) list(path string, g RowGroup, row func(i int, p string) []Instruction) {
	for i := range record.List(b.d, path) {
		if i > 0 {
			b.add(expand(g, i, path))
		}
		b.add(row(i, fmt.Sprintf("%s.%d.", path, i))...)
	}
}
