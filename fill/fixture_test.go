package fill

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/ds160fill/dom/htmldoc"
	"github.com/hazyhaar/ds160fill/record"
)

const (
	idp   = "ctl00_SiteContentPlaceHolder_FormView1_"
	namep = "ctl00$SiteContentPlaceHolder$FormView1$"
)

func textInput(ctrl string) string {
	return fmt.Sprintf(`<input type="text" id="%s%s" name="%s%s">`, idp, ctrl, namep, ctrl)
}

func checkInput(ctrl string) string {
	return fmt.Sprintf(`<input type="checkbox" id="%s%s" name="%s%s">`, idp, ctrl, namep, ctrl)
}

func radios(ctrl string) string {
	return fmt.Sprintf(`<input type="radio" id="%[1]s%[3]s_0" name="%[2]s%[3]s" value="Y">`+
		`<input type="radio" id="%[1]s%[3]s_1" name="%[2]s%[3]s" value="N">`, idp, namep, ctrl)
}

// selectBox renders a select; opts are "value|text" pairs.
func selectBox(ctrl string, opts ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<select id="%s%s" name="%s%s"><option value="">- SELECT ONE -</option>`, idp, ctrl, namep, ctrl)
	for _, o := range opts {
		v, t, _ := strings.Cut(o, "|")
		fmt.Fprintf(&b, `<option value="%s">%s</option>`, v, t)
	}
	b.WriteString(`</select>`)
	return b.String()
}

func rowText(list string, row int, ctrl string) string {
	return fmt.Sprintf(`<input type="text" id="%s%s_ctl%02d_%s" name="%s%s$ctl%02d$%s">`,
		idp, list, row, ctrl, namep, list, row, ctrl)
}

func insertLink(list string, row int, ctrl string) string {
	return fmt.Sprintf(`<a id="%s%s_ctl%02d_%s" href="javascript:__doPostBack('%s%s$ctl%02d$%s','')">Add Another</a>`,
		idp, list, row, ctrl, namep, list, row, ctrl)
}

func aliasRow(i int) string {
	return `<div class="row">` +
		rowText("DListAlias", i, "tbxSURNAME") +
		rowText("DListAlias", i, "tbxGIVEN_NAME") +
		insertLink("DListAlias", i, "InsertButtonAlias") +
		`</div>`
}

func phoneRow(i int) string {
	return `<div class="row">` + rowText("dtlAddPhone", i, "tbxAddPhoneInfo") +
		insertLink("dtlAddPhone", i, "InsertButtonAddPhone") + `</div>`
}

func options(from, to int) []string {
	var out []string
	for i := from; i <= to; i++ {
		out = append(out, fmt.Sprintf("%02d|%02d", i, i))
	}
	return out
}

var months = []string{"JAN|JAN", "FEB|FEB", "MAR|MAR", "APR|APR", "MAY|MAY", "JUN|JUN",
	"JUL|JUL", "AUG|AUG", "SEP|SEP", "OCT|OCT", "NOV|NOV", "DEC|DEC"}

func personal1Page() string {
	return `<!DOCTYPE html><html><head><title>Personal Information 1</title></head><body>
<form id="aspnetForm" method="post" action="complete_personal.aspx">` +
		textInput("tbxAPP_SURNAME") +
		textInput("tbxAPP_GIVEN_NAME") +
		textInput("tbxAPP_FULL_NAME_NATIVE") +
		checkInput("cbexAPP_FULL_NAME_NATIVE_NA") +
		radios("rblOtherNames") +
		`<div id="aliases">` + aliasRow(0) + `</div>` +
		radios("rblTelecodeQuestion") +
		textInput("tbxAPP_TelecodeSURNAME") +
		textInput("tbxAPP_TelecodeGIVEN_NAME") +
		selectBox("ddlAPP_GENDER", "M|MALE", "F|FEMALE") +
		selectBox("ddlAPP_MARITAL_STATUS", "M|MARRIED", "S|SINGLE", "D|DIVORCED") +
		selectBox("ddlDOBDay", options(1, 31)...) +
		selectBox("ddlDOBMonth", months...) +
		textInput("tbxDOBYear") +
		textInput("tbxAPP_POB_CITY") +
		textInput("tbxAPP_POB_ST_PROVINCE") +
		checkInput("cbexAPP_POB_ST_PROVINCE_NA") +
		selectBox("ddlAPP_POB_CNTRY", "FRAN|FRANCE", "USA|UNITED STATES OF AMERICA") +
		`<div id="phones">` + phoneRow(0) + `</div>` +
		`</form></body></html>`
}

func personal1Record(t *testing.T) record.Data {
	t.Helper()
	rec, err := record.Parse([]byte(`{"personalInfo1": {
		"surname": "DOE",
		"givenName": "JOHN",
		"fullNameNative_na": true,
		"hasOtherNames": "Y",
		"otherNames": [
			{"surname": "SMITH", "givenName": "JANE"},
			{"surname": "JONES", "givenName": "JANET"}
		],
		"hasTelecode": "N",
		"gender": "M",
		"maritalStatus": "S",
		"dob": {"day": "4", "month": 7, "year": 1990},
		"birthCity": "Paris",
		"birthState_na": true,
		"birthCountry": "FRANCE"
	}}`))
	require.NoError(t, err)
	return rec.Section("personalInfo1")
}

func newPage(t *testing.T, src string) *htmldoc.Document {
	t.Helper()
	d, err := htmldoc.ParseString(src, "https://ceac.state.gov/GenNIV/General/complete/complete_personal.aspx")
	require.NoError(t, err)
	return d
}

// growList makes the page's postback append a row to container for every
// insert target of list.
func growList(list, container string, row func(int) string) htmldoc.PostbackHandler {
	next := 1
	return func(d *htmldoc.Document, target, _ string) error {
		if !strings.HasPrefix(target, namep+list+"$") {
			return nil
		}
		err := d.AppendHTML(container, row(next))
		next++
		return err
	}
}
