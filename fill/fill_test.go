package fill

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/ds160fill/dom"
	"github.com/hazyhaar/ds160fill/dom/htmldoc"
	"github.com/hazyhaar/ds160fill/record"
	"github.com/hazyhaar/ds160fill/schema"
)

const aliasTrigger0 = namep + "DListAlias$ctl00$InsertButtonAlias"

func testOrchestrator() *Orchestrator {
	return New(Config{Delays: NoDelay})
}

func value(t *testing.T, d *htmldoc.Document, id string) string {
	t.Helper()
	el, err := d.ElementByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, el, "element %s", id)
	v, err := el.Value(context.Background())
	require.NoError(t, err)
	return v
}

func checked(t *testing.T, d *htmldoc.Document, id string) bool {
	t.Helper()
	el, err := d.ElementByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, el, "element %s", id)
	on, _ := el.Checked(context.Background())
	return on
}

func fillPersonal1(t *testing.T, page *htmldoc.Document) *Result {
	t.Helper()
	data := personal1Record(t)
	ins, err := schema.Default().Build(schema.PersonalInfo1, data)
	require.NoError(t, err)
	res, err := testOrchestrator().FillSection(context.Background(), page, schema.PersonalInfo1, data, ins)
	require.NoError(t, err)
	return res
}

func TestFillSectionPersonalInfo1(t *testing.T) {
	page := newPage(t, personal1Page())
	page.OnPostback(growList("DListAlias", "aliases", aliasRow))

	res := fillPersonal1(t, page)

	assert.Empty(t, res.Errors)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, 18, res.FilledCount)

	assert.Equal(t, "DOE", value(t, page, idp+"tbxAPP_SURNAME"))
	assert.Equal(t, "JOHN", value(t, page, idp+"tbxAPP_GIVEN_NAME"))
	assert.True(t, checked(t, page, idp+"cbexAPP_FULL_NAME_NATIVE_NA"))
	assert.True(t, checked(t, page, idp+"rblOtherNames_0"))
	assert.False(t, checked(t, page, idp+"rblOtherNames_1"))

	assert.Equal(t, "SMITH", value(t, page, idp+"DListAlias_ctl00_tbxSURNAME"))
	assert.Equal(t, "JANE", value(t, page, idp+"DListAlias_ctl00_tbxGIVEN_NAME"))
	assert.Equal(t, "JONES", value(t, page, idp+"DListAlias_ctl01_tbxSURNAME"))
	assert.Equal(t, "JANET", value(t, page, idp+"DListAlias_ctl01_tbxGIVEN_NAME"))
	assert.Equal(t, 1, page.Count(aliasTrigger0, "postback"), "exactly one expansion")

	assert.True(t, checked(t, page, idp+"rblTelecodeQuestion_1"))
	assert.Equal(t, "M", value(t, page, idp+"ddlAPP_GENDER"))
	assert.Equal(t, "S", value(t, page, idp+"ddlAPP_MARITAL_STATUS"))
	assert.Equal(t, "04", value(t, page, idp+"ddlDOBDay"))
	assert.Equal(t, "JUL", value(t, page, idp+"ddlDOBMonth"))
	assert.Equal(t, "1990", value(t, page, idp+"tbxDOBYear"))
	assert.Equal(t, "Paris", value(t, page, idp+"tbxAPP_POB_CITY"))
	assert.True(t, checked(t, page, idp+"cbexAPP_POB_ST_PROVINCE_NA"))
	assert.Equal(t, "FRAN", value(t, page, idp+"ddlAPP_POB_CNTRY"))

	// Text writes fire input and change on the control.
	assert.Equal(t, 1, page.Count(idp+"tbxAPP_SURNAME", "input"))
	assert.Equal(t, 1, page.Count(idp+"tbxAPP_SURNAME", "change"))
}

func TestFillSectionIsIdempotent(t *testing.T) {
	page := newPage(t, personal1Page())
	page.OnPostback(growList("DListAlias", "aliases", aliasRow))

	first := fillPersonal1(t, page)
	events := len(page.Events())
	second := fillPersonal1(t, page)

	assert.Equal(t, first.FilledCount, second.FilledCount)
	assert.Equal(t, 1, page.Count(aliasTrigger0, "postback"), "no row growth on re-run")
	assert.Equal(t, 1, page.Count(idp+"tbxAPP_SURNAME", "input"), "no redundant text write")
	assert.Equal(t, 1, page.Count(idp+"rblOtherNames_0", "click"), "no repeated radio activation")
	assert.Equal(t, 1, page.Count(idp+"cbexAPP_FULL_NAME_NATIVE_NA", "click"), "no repeated checkbox activation")

	// Only unguarded selects dispatch again.
	for _, e := range page.Events()[events:] {
		assert.Equal(t, "change", e.Type, "unexpected %s on %s", e.Type, e.Target)
	}
}

func TestOtherNamesScenarioCount(t *testing.T) {
	page := newPage(t, personal1Page())
	page.OnPostback(growList("DListAlias", "aliases", aliasRow))

	rec, err := record.Parse([]byte(`{"personalInfo1": {
		"surname": "Lee",
		"hasOtherNames": "Y",
		"otherNames": [{"surname": "Li", "givenName": "Wei"}, {"surname": "L", "givenName": "W"}]
	}}`))
	require.NoError(t, err)
	data := rec.Section(schema.PersonalInfo1)
	ins, err := schema.Default().Build(schema.PersonalInfo1, data)
	require.NoError(t, err)

	res, err := testOrchestrator().FillSection(context.Background(), page, schema.PersonalInfo1, data, ins)
	require.NoError(t, err)

	// surname + hasOtherNames + expand marker + four name fields.
	assert.Equal(t, 7, res.FilledCount)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 1, page.Count(aliasTrigger0, "postback"))
	assert.Equal(t, "Li", value(t, page, idp+"DListAlias_ctl00_tbxSURNAME"))
	assert.Equal(t, "Wei", value(t, page, idp+"DListAlias_ctl00_tbxGIVEN_NAME"))
	assert.Equal(t, "L", value(t, page, idp+"DListAlias_ctl01_tbxSURNAME"))
	assert.Equal(t, "W", value(t, page, idp+"DListAlias_ctl01_tbxGIVEN_NAME"))
}

func TestMissingControlIsSkipped(t *testing.T) {
	page := newPage(t, personal1Page())
	page.OnPostback(growList("DListAlias", "aliases", aliasRow))
	require.NoError(t, page.Remove(idp+"tbxAPP_GIVEN_NAME"))

	res := fillPersonal1(t, page)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 17, res.FilledCount)
	assert.Equal(t, "DOE", value(t, page, idp+"tbxAPP_SURNAME"))
}

func TestRowExpansionManualFallback(t *testing.T) {
	page := newPage(t, personal1Page())
	// No postback function on the page: the native trigger fails and the
	// controller submits the form itself.
	page.OnSubmit(growList("DListAlias", "aliases", aliasRow))

	res := fillPersonal1(t, page)
	assert.Empty(t, res.Errors)
	assert.Equal(t, "JONES", value(t, page, idp+"DListAlias_ctl01_tbxSURNAME"))
	assert.Equal(t, aliasTrigger0, value(t, page, "__EVENTTARGET"))
	assert.Equal(t, 1, page.Count("aspnetForm", "submit"))
}

func TestRowExpansionAbandoned(t *testing.T) {
	page := newPage(t, personal1Page())
	page.OnPostback(func(*htmldoc.Document, string, string) error { return nil })

	res := fillPersonal1(t, page)

	require.Len(t, res.Errors, 1)
	assert.Equal(t, "otherNames.1", res.Errors[0].Path)
	assert.Contains(t, res.Errors[0].Message, ErrRowsNotGrown.Error())
	assert.Equal(t, 1, page.Count(aliasTrigger0, "postback"))
	assert.Equal(t, 1, page.Count("aspnetForm", "submit"))
	// Row 1 fields are not found and skipped; everything after still fills.
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, "FRAN", value(t, page, idp+"ddlAPP_POB_CNTRY"))
}

func TestAbandonedListIsNotRetried(t *testing.T) {
	page := newPage(t, personal1Page())
	page.OnPostback(func(*htmldoc.Document, string, string) error { return nil })

	data := personal1Record(t)
	data["otherNames"] = []any{
		map[string]any{"surname": "SMITH", "givenName": "JANE"},
		map[string]any{"surname": "JONES", "givenName": "JANET"},
		map[string]any{"surname": "BROWN", "givenName": "JOAN"},
		map[string]any{"surname": "GREEN", "givenName": "JUNE"},
	}
	ins, err := schema.Default().Build(schema.PersonalInfo1, data)
	require.NoError(t, err)

	res, err := testOrchestrator().FillSection(context.Background(), page, schema.PersonalInfo1, data, ins)
	require.NoError(t, err)

	require.Len(t, res.Errors, 1, "one abandonment for the list")
	assert.Equal(t, "otherNames.1", res.Errors[0].Path)
	assert.Equal(t, 1, page.Count(aliasTrigger0, "postback"), "one native attempt")
	assert.Equal(t, 1, page.Count("aspnetForm", "submit"), "one manual submit")
	// Rows 1-3 fields are not found, the two later expand markers are skipped.
	assert.Equal(t, 8, res.Skipped)
	assert.Equal(t, 15, res.FilledCount)
	assert.Equal(t, "SMITH", value(t, page, idp+"DListAlias_ctl00_tbxSURNAME"))
	assert.Equal(t, "FRAN", value(t, page, idp+"ddlAPP_POB_CNTRY"))
}

func TestRowsEnsureOneAttemptPerRow(t *testing.T) {
	page := newPage(t, personal1Page())
	triggers := 0
	grow := growList("DListAlias", "aliases", aliasRow)
	page.OnPostback(func(d *htmldoc.Document, target, arg string) error {
		triggers++
		return grow(d, target, arg)
	})

	g := schema.RowGroup{List: "DListAlias", Probe: "tbxSURNAME", Insert: "InsertButtonAlias", Naming: schema.FormView}
	rows := NewRows(NoDelay, nil)
	n, err := rows.Ensure(context.Background(), page, g, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 3, triggers)

	n, err = rows.Ensure(context.Background(), page, g, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 3, triggers, "no growth when enough rows exist")
}

func TestArrayKind(t *testing.T) {
	page := newPage(t, personal1Page())
	page.OnPostback(growList("dtlAddPhone", "phones", phoneRow))

	g := schema.RowGroup{List: "dtlAddPhone", Probe: "tbxAddPhoneInfo", Insert: "InsertButtonAddPhone", Naming: schema.FormView}
	ins := []schema.Instruction{{
		Path:      "otherPhones",
		Locator:   dom.ID(g.ID(0, g.Probe)),
		Kind:      schema.KindArray,
		Group:     &g,
		Transform: schema.Columns(""),
	}}
	data := record.Data{"otherPhones": []any{"555-0100", "555-0101", "555-0102"}}

	res, err := testOrchestrator().FillSection(context.Background(), page, "addressAndPhone", data, ins)
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 3, res.FilledCount)
	assert.Equal(t, "555-0100", value(t, page, idp+"dtlAddPhone_ctl00_tbxAddPhoneInfo"))
	assert.Equal(t, "555-0102", value(t, page, idp+"dtlAddPhone_ctl02_tbxAddPhoneInfo"))
}

func TestArrayKindSkipsEmptyCells(t *testing.T) {
	page := newPage(t, personal1Page())
	page.OnPostback(growList("dtlAddPhone", "phones", phoneRow))

	g := schema.RowGroup{List: "dtlAddPhone", Probe: "tbxAddPhoneInfo", Insert: "InsertButtonAddPhone", Naming: schema.FormView}
	ins := []schema.Instruction{{
		Path:      "otherPhones",
		Locator:   dom.ID(g.ID(0, g.Probe)),
		Kind:      schema.KindArray,
		Group:     &g,
		Transform: schema.Columns(""),
	}}
	data := record.Data{"otherPhones": []any{"555-0100", "", "555-0102"}}

	res, err := testOrchestrator().FillSection(context.Background(), page, "addressAndPhone", data, ins)
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 2, res.FilledCount, "empty cell is not counted")
	assert.Equal(t, "", value(t, page, idp+"dtlAddPhone_ctl01_tbxAddPhoneInfo"))
	assert.Equal(t, "555-0102", value(t, page, idp+"dtlAddPhone_ctl02_tbxAddPhoneInfo"))
}

func checkboxInstruction(ctrl string) *schema.Instruction {
	return &schema.Instruction{Path: "x", Locator: dom.ID(idp + ctrl), Kind: schema.KindCheckbox}
}

func TestCheckboxVetoRetried(t *testing.T) {
	ctx := context.Background()
	page := newPage(t, personal1Page())
	id := idp + "cbexAPP_FULL_NAME_NATIVE_NA"

	vetoes := 1
	page.On(id, "click", func(_ *htmldoc.Document, el *htmldoc.Element) error {
		if vetoes > 0 {
			vetoes--
			el.SetChecked(false)
		}
		return nil
	})

	el, _ := page.ElementByID(ctx, id)
	f := NewFiller(NewRows(NoDelay, nil), NoDelay, 3, nil)
	n, err := f.Fill(ctx, page, el, true, checkboxInstruction("cbexAPP_FULL_NAME_NATIVE_NA"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, checked(t, page, id))
	assert.Equal(t, 2, page.Count(id, "click"))
}

func TestCheckboxStuck(t *testing.T) {
	ctx := context.Background()
	page := newPage(t, personal1Page())
	id := idp + "cbexAPP_FULL_NAME_NATIVE_NA"
	page.On(id, "click", func(_ *htmldoc.Document, el *htmldoc.Element) error {
		el.SetChecked(false)
		return nil
	})

	el, _ := page.ElementByID(ctx, id)
	f := NewFiller(NewRows(NoDelay, nil), NoDelay, 3, nil)
	_, err := f.Fill(ctx, page, el, true, checkboxInstruction("cbexAPP_FULL_NAME_NATIVE_NA"))
	require.ErrorIs(t, err, ErrCheckboxStuck)
	assert.Equal(t, 3, page.Count(id, "click"))
}

func TestCheckboxAlreadyInState(t *testing.T) {
	ctx := context.Background()
	page := newPage(t, personal1Page())
	id := idp + "cbexAPP_FULL_NAME_NATIVE_NA"
	el, _ := page.ElementByID(ctx, id)

	f := NewFiller(NewRows(NoDelay, nil), NoDelay, 3, nil)
	n, err := f.Fill(ctx, page, el, false, checkboxInstruction("cbexAPP_FULL_NAME_NATIVE_NA"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, page.Count(id, "click"))
}

func TestRadioPositionalFallback(t *testing.T) {
	ctx := context.Background()
	page := newPage(t, `<html><body><form>
<input type="radio" id="yesBtn" name="plain">
<input type="radio" id="noBtn" name="plain">
</form></body></html>`)

	ins := &schema.Instruction{
		Path:      "flag",
		Locator:   dom.Name("plain"),
		Fallbacks: []dom.Locator{dom.ID("yesBtn"), dom.ID("noBtn")},
		Kind:      schema.KindRadio,
	}
	el, err := Resolve(ctx, page, ins.Locator)
	require.NoError(t, err)
	require.NotNil(t, el)

	f := NewFiller(NewRows(NoDelay, nil), NoDelay, 3, nil)
	n, err := f.Fill(ctx, page, el, false, ins)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, checked(t, page, "noBtn"))
	assert.False(t, checked(t, page, "yesBtn"))
}

func TestRadioDerivedID(t *testing.T) {
	ctx := context.Background()
	page := newPage(t, `<html><body><form>
<input type="radio" id="g_rbl_0" name="g$rbl">
<input type="radio" id="g_rbl_1" name="g$rbl">
</form></body></html>`)

	ins := &schema.Instruction{Path: "flag", Locator: dom.Name("g$rbl"), Kind: schema.KindRadio}
	el, _ := Resolve(ctx, page, ins.Locator)
	f := NewFiller(NewRows(NoDelay, nil), NoDelay, 3, nil)
	_, err := f.Fill(ctx, page, el, "yes", ins)
	require.NoError(t, err)
	assert.True(t, checked(t, page, "g_rbl_0"))
}

func TestRadioNoMatch(t *testing.T) {
	ctx := context.Background()
	page := newPage(t, `<html><body><input type="radio" id="only" name="solo"></body></html>`)
	ins := &schema.Instruction{Path: "flag", Locator: dom.Name("solo"), Kind: schema.KindRadio}
	el, _ := Resolve(ctx, page, ins.Locator)
	f := NewFiller(NewRows(NoDelay, nil), NoDelay, 3, nil)
	_, err := f.Fill(ctx, page, el, "Y", ins)
	require.ErrorIs(t, err, ErrNoRadio)
}

func TestMatchOption(t *testing.T) {
	opts := []dom.Option{
		{Value: "", Text: "- SELECT ONE -"},
		{Value: "USA", Text: "UNITED STATES OF AMERICA"},
		{Value: "FRAN", Text: "FRANCE"},
		{Value: "GER", Text: "GERMANY"},
	}
	tests := []struct {
		want string
		idx  int
	}{
		{"FRAN", 2},
		{"FRANCE", 2},
		{"united states", 1},
		{"Germ", 3},
		{"ATLANTIS", -1},
		{"", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.idx, MatchOption(opts, tt.want), tt.want)
	}
}

func TestSelectWithoutMatchIsNoop(t *testing.T) {
	page := newPage(t, personal1Page())
	ins := []schema.Instruction{{Path: "gender", Locator: dom.ID(idp + "ddlAPP_GENDER"), Kind: schema.KindSelect}}
	res, err := testOrchestrator().FillSection(context.Background(), page, "x", record.Data{"gender": "OTHER"}, ins)
	require.NoError(t, err)
	assert.Zero(t, res.FilledCount)
	assert.Empty(t, res.Errors)
	assert.Equal(t, "", value(t, page, idp+"ddlAPP_GENDER"))
}

func TestGuardedSelect(t *testing.T) {
	page := newPage(t, personal1Page())
	id := idp + "ddlAPP_GENDER"
	ins := []schema.Instruction{{Path: "gender", Locator: dom.ID(id), Kind: schema.KindSelect, Policy: schema.PolicyPreventRedundantWrite}}
	data := record.Data{"gender": "F"}

	for range 2 {
		_, err := testOrchestrator().FillSection(context.Background(), page, "x", data, ins)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, page.Count(id, "change"))
}

func TestTextDateAndMaxLength(t *testing.T) {
	page := newPage(t, personal1Page())
	ins := []schema.Instruction{
		{Path: "when", Locator: dom.ID(idp + "tbxAPP_SURNAME"), Kind: schema.KindText},
		{Path: "long", Locator: dom.ID(idp + "tbxAPP_GIVEN_NAME"), Kind: schema.KindText, MaxLength: 5},
	}
	data := record.Data{"when": "2024-05-01", "long": "ABCDEFGHIJ"}
	res, err := testOrchestrator().FillSection(context.Background(), page, "x", data, ins)
	require.NoError(t, err)
	assert.Equal(t, 2, res.FilledCount)
	assert.Equal(t, "05/01/2024", value(t, page, idp+"tbxAPP_SURNAME"))
	assert.Equal(t, "ABCDE", value(t, page, idp+"tbxAPP_GIVEN_NAME"))
}

func TestNullAndAbsentValuesSkipped(t *testing.T) {
	page := newPage(t, personal1Page())
	ins := []schema.Instruction{
		{Path: "missing", Locator: dom.ID(idp + "tbxAPP_SURNAME"), Kind: schema.KindText},
		{Path: "nullish", Locator: dom.ID(idp + "tbxAPP_GIVEN_NAME"), Kind: schema.KindText},
	}
	res, err := testOrchestrator().FillSection(context.Background(), page, "x", record.Data{"nullish": nil}, ins)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Skipped)
	assert.Zero(t, res.FilledCount)
	assert.Empty(t, page.Events())
}

func TestPanicIsolatedToField(t *testing.T) {
	page := newPage(t, personal1Page())
	boom := func(any, bool) (any, bool) { panic("bad transform") }
	ins := []schema.Instruction{
		{Path: "a", Locator: dom.ID(idp + "tbxAPP_SURNAME"), Kind: schema.KindText, Transform: boom},
		{Path: "b", Locator: dom.ID(idp + "tbxAPP_GIVEN_NAME"), Kind: schema.KindText},
	}
	res, err := testOrchestrator().FillSection(context.Background(), page, "x", record.Data{"a": "1", "b": "2"}, ins)
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Message, "bad transform")
	assert.Equal(t, 1, res.FilledCount)
}

func TestCancelledContextStopsRun(t *testing.T) {
	page := newPage(t, personal1Page())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	data := personal1Record(t)
	ins, _ := schema.Default().Build(schema.PersonalInfo1, data)
	res, err := testOrchestrator().FillSection(ctx, page, schema.PersonalInfo1, data, ins)
	require.True(t, errors.Is(err, context.Canceled))
	require.NotNil(t, res)
	assert.Zero(t, res.FilledCount)
}

func TestResolveFallbackOrder(t *testing.T) {
	ctx := context.Background()
	page := newPage(t, personal1Page())

	el, err := Resolve(ctx, page, dom.ID("absent"), dom.XPath("//input[@"), dom.Name(namep+"tbxAPP_SURNAME"))
	require.NoError(t, err)
	require.NotNil(t, el)
	id, _ := el.Attribute(ctx, "id")
	assert.Equal(t, idp+"tbxAPP_SURNAME", id)

	// Both fallbacks resolve: the first one listed wins.
	el, err = Resolve(ctx, page, dom.ID("absent"), dom.Name(namep+"tbxAPP_GIVEN_NAME"), dom.Name(namep+"tbxAPP_SURNAME"))
	require.NoError(t, err)
	require.NotNil(t, el)
	id, _ = el.Attribute(ctx, "id")
	assert.Equal(t, idp+"tbxAPP_GIVEN_NAME", id)

	el, err = Resolve(ctx, page, dom.ID("absent"), dom.Name("absent"))
	require.NoError(t, err)
	assert.Nil(t, el)
}

func TestResolveValue(t *testing.T) {
	data := record.Data{"a": map[string]any{"b": "x"}}
	v, ok := ResolveValue(data, "a.b", nil)
	assert.True(t, ok)
	assert.Equal(t, "x", v)

	v, ok = ResolveValue(data, "a.c", schema.DefaultTo("NONE"))
	assert.True(t, ok)
	assert.Equal(t, "NONE", v)

	_, ok = ResolveValue(nil, "a.b", nil)
	assert.False(t, ok)
}

func TestDelayPolicyHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := DefaultDelays().Wait(ctx, OpRowExpand)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, NoDelay.Wait(context.Background(), OpRowExpand))
}
