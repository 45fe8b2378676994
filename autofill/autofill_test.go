package autofill

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/hazyhaar/ds160fill/dom/htmldoc"
	"github.com/hazyhaar/ds160fill/fill"
	"github.com/hazyhaar/ds160fill/record"
	"github.com/hazyhaar/ds160fill/store"
)

const personalURL = "https://ceac.state.gov/GenNIV/General/complete/complete_personal.aspx"

const personalPage = `<!DOCTYPE html><html><head><title>Personal Information 1</title></head><body>
<form id="aspnetForm" method="post">
<input type="text" id="ctl00_SiteContentPlaceHolder_FormView1_tbxAPP_SURNAME" name="ctl00$SiteContentPlaceHolder$FormView1$tbxAPP_SURNAME">
<input type="text" id="ctl00_SiteContentPlaceHolder_FormView1_tbxAPP_GIVEN_NAME" name="ctl00$SiteContentPlaceHolder$FormView1$tbxAPP_GIVEN_NAME">
</form></body></html>`

const clientJSON = `{"personalInfo1": {"surname": "DOE", "givenName": "JOHN"}}`

func loadPage(t *testing.T, src, u string) *htmldoc.Document {
	t.Helper()
	d, err := htmldoc.ParseString(src, u)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func clientRecord(t *testing.T) record.Record {
	t.Helper()
	rec, err := record.Parse([]byte(clientJSON))
	if err != nil {
		t.Fatal(err)
	}
	return rec
}

// testEngine returns an engine over a fresh personal page, backed by an
// in-memory store.
func testEngine(t *testing.T) (*Engine, *htmldoc.Document, *store.Store) {
	t.Helper()
	page := loadPage(t, personalPage, personalURL)
	st := store.OpenMemory(t)
	e := New(StaticPage{Page: page}, Config{
		Fill:  fill.Config{Delays: fill.NoDelay},
		Store: st,
	})
	return e, page, st
}

func inputValue(t *testing.T, page *htmldoc.Document, id string) string {
	t.Helper()
	el, err := page.ElementByID(context.Background(), id)
	if err != nil || el == nil {
		t.Fatalf("element %s: %v", id, err)
	}
	v, _ := el.Value(context.Background())
	return v
}

func TestFillPage(t *testing.T) {
	e, page, st := testEngine(t)
	ctx := context.Background()

	reply, err := e.FillPage(ctx, page, clientRecord(t), "")
	if err != nil {
		t.Fatal(err)
	}
	if !reply.Success {
		t.Fatalf("reply: %+v", reply)
	}
	if reply.Section != "personalInfo1" {
		t.Errorf("section: got %q", reply.Section)
	}
	if reply.FilledCount != 2 {
		t.Errorf("filledCount: got %d, want 2", reply.FilledCount)
	}
	if reply.Message != "Filled 2 fields in the personalInfo1 section" {
		t.Errorf("message: got %q", reply.Message)
	}
	if got := inputValue(t, page, "ctl00_SiteContentPlaceHolder_FormView1_tbxAPP_SURNAME"); got != "DOE" {
		t.Errorf("surname: got %q", got)
	}

	runs, err := st.ListRuns(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != reply.RunID || runs[0].FilledCount != 2 || runs[0].PageURL != personalURL {
		t.Fatalf("runs: %+v", runs)
	}
}

func TestFillPageUnknownSection(t *testing.T) {
	e, _, st := testEngine(t)
	page := loadPage(t, `<html><head><title>Welcome</title></head><body></body></html>`, "https://example.com/start")

	reply, err := e.FillPage(context.Background(), page, clientRecord(t), "")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Success || reply.Error != "Could not detect form section" {
		t.Fatalf("reply: %+v", reply)
	}
	runs, _ := st.ListRuns(context.Background(), 0)
	if len(runs) != 1 || runs[0].Success {
		t.Fatalf("failed run should be recorded: %+v", runs)
	}
}

func TestFillPageUnmappedSection(t *testing.T) {
	e, _, _ := testEngine(t)
	page := loadPage(t, `<html><head><title>Security and Background: Part 1</title></head><body><form></form></body></html>`,
		"https://ceac.state.gov/GenNIV/General/complete/complete_securityandbackground1.aspx")

	reply, err := e.FillPage(context.Background(), page, clientRecord(t), "")
	if err != nil {
		t.Fatal(err)
	}
	if !reply.Success || reply.Section != "securityInfo" || reply.FilledCount != 0 {
		t.Fatalf("reply: %+v", reply)
	}
}

func TestFillPageBusy(t *testing.T) {
	e, page, _ := testEngine(t)
	e.busy.Lock()
	defer e.busy.Unlock()

	if _, err := e.FillPage(context.Background(), page, clientRecord(t), ""); !errors.Is(err, ErrBusy) {
		t.Fatalf("got %v, want ErrBusy", err)
	}
}

func TestFillPageIgnoresCancel(t *testing.T) {
	e, page, st := testEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reply, err := e.FillPage(ctx, page, clientRecord(t), "")
	if err != nil {
		t.Fatal(err)
	}
	if !reply.Success || reply.FilledCount != 2 {
		t.Fatalf("reply: %+v", reply)
	}
	if got := inputValue(t, page, "ctl00_SiteContentPlaceHolder_FormView1_tbxAPP_SURNAME"); got != "DOE" {
		t.Errorf("surname: got %q", got)
	}
	runs, err := st.ListRuns(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != reply.RunID {
		t.Fatalf("runs: %+v", runs)
	}
}

func TestFillByRecordID(t *testing.T) {
	e, page, _ := testEngine(t)
	ctx := context.Background()

	saved, err := e.SaveRecord(ctx, &store.ClientRecord{Label: "Doe", Data: clientRecord(t)})
	if err != nil {
		t.Fatal(err)
	}
	reply, err := e.Fill(ctx, FillRequest{RecordID: saved.ID})
	if err != nil {
		t.Fatal(err)
	}
	if reply.FilledCount != 2 {
		t.Fatalf("reply: %+v", reply)
	}
	if got := inputValue(t, page, "ctl00_SiteContentPlaceHolder_FormView1_tbxAPP_GIVEN_NAME"); got != "JOHN" {
		t.Errorf("given name: got %q", got)
	}

	runs, err := e.ListRuns(ctx, saved.ID, 0)
	if err != nil || len(runs) != 1 {
		t.Fatalf("runs for record: %v %+v", err, runs)
	}

	if _, err := e.Fill(ctx, FillRequest{RecordID: "rec_missing"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing record: got %v", err)
	}
	if _, err := e.Fill(ctx, FillRequest{}); !errors.Is(err, ErrNoData) {
		t.Fatalf("empty request: got %v", err)
	}
}

func TestWithoutStore(t *testing.T) {
	page := loadPage(t, personalPage, personalURL)
	e := New(StaticPage{Page: page}, Config{Fill: fill.Config{Delays: fill.NoDelay}})

	reply, err := e.Fill(context.Background(), FillRequest{ClientData: clientRecord(t)})
	if err != nil {
		t.Fatal(err)
	}
	if reply.RunID != "" {
		t.Errorf("no store, no run id: got %q", reply.RunID)
	}
	if _, err := e.ListRuns(context.Background(), "", 0); !errors.Is(err, ErrNoStore) {
		t.Errorf("ListRuns: got %v, want ErrNoStore", err)
	}
}

func TestDetectAndPlan(t *testing.T) {
	e, _, _ := testEngine(t)
	ctx := context.Background()

	d, err := e.Detect(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if d.Section != "personalInfo1" || !d.Mapped || d.Title != "Personal Information 1" {
		t.Fatalf("detection: %+v", d)
	}

	p, err := e.Plan(ctx, PlanRequest{FillRequest: FillRequest{ClientData: clientRecord(t)}})
	if err != nil {
		t.Fatal(err)
	}
	if p.Section != "personalInfo1" || p.Version == "" || len(p.Steps) == 0 {
		t.Fatalf("plan: %+v", p)
	}
	first := p.Steps[0]
	if first.Path != "surname" || !first.Present || first.Value != "DOE" {
		t.Fatalf("first step: %+v", first)
	}

	if _, err := e.Plan(ctx, PlanRequest{Section: "nope", FillRequest: FillRequest{ClientData: clientRecord(t)}}); err == nil {
		t.Fatal("unknown section should error")
	}
}

func TestRouter(t *testing.T) {
	e, page, _ := testEngine(t)
	r := e.Router()
	ctx := context.Background()

	resp, err := r.Call(ctx, []byte(`{"action":"ping"}`))
	if err != nil {
		t.Fatal(err)
	}
	if string(resp) != `{"loaded":true}` {
		t.Fatalf("ping: got %s", resp)
	}

	resp, err = r.Call(ctx, []byte(`{"action":"fillForm","clientData":`+clientJSON+`}`))
	if err != nil {
		t.Fatal(err)
	}
	var reply Reply
	if err := json.Unmarshal(resp, &reply); err != nil {
		t.Fatal(err)
	}
	if !reply.Success || reply.FilledCount != 2 {
		t.Fatalf("fillForm: %s", resp)
	}
	if got := inputValue(t, page, "ctl00_SiteContentPlaceHolder_FormView1_tbxAPP_SURNAME"); got != "DOE" {
		t.Errorf("surname: got %q", got)
	}

	if _, err := r.Call(ctx, []byte(`{"action":"launchMissiles"}`)); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("unknown action: got %v", err)
	}
	if _, err := r.Call(ctx, []byte(`not json`)); err == nil {
		t.Fatal("bad message should error")
	}

	want := []string{"detectSection", "fillForm", "listRuns", "ping", "plan", "saveRecord"}
	if got := strings.Join(r.Actions(), ","); got != strings.Join(want, ",") {
		t.Fatalf("actions: got %s", got)
	}
}

func TestRouterSaveAndListRuns(t *testing.T) {
	e, _, _ := testEngine(t)
	r := e.Router()
	ctx := context.Background()

	resp, err := r.Call(ctx, []byte(`{"action":"saveRecord","label":"Doe","clientData":`+clientJSON+`}`))
	if err != nil {
		t.Fatal(err)
	}
	var saved store.ClientRecord
	json.Unmarshal(resp, &saved)
	if !strings.HasPrefix(saved.ID, "rec_") {
		t.Fatalf("saveRecord: %s", resp)
	}

	if _, err := r.Call(ctx, []byte(`{"action":"fillForm","recordId":"`+saved.ID+`"}`)); err != nil {
		t.Fatal(err)
	}
	resp, err = r.Call(ctx, []byte(`{"action":"listRuns","recordId":"`+saved.ID+`"}`))
	if err != nil {
		t.Fatal(err)
	}
	var runs RunsReply
	json.Unmarshal(resp, &runs)
	if len(runs.Runs) != 1 || runs.Runs[0].RecordID != saved.ID {
		t.Fatalf("listRuns: %s", resp)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	r := NewRouter(WithMiddleware(Recovery(testLogger())))
	r.Register("boom", func(context.Context, []byte) ([]byte, error) { panic("kaboom") })
	_, err := r.Call(context.Background(), []byte(`{"action":"boom"}`))
	if err == nil || !strings.Contains(err.Error(), "kaboom") {
		t.Fatalf("got %v", err)
	}
}
