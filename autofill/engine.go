// Package autofill wires section detection, the mapping registry and the
// fill orchestrator into one engine, and exposes it over an action-keyed
// message router, HTTP and MCP.
package autofill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/ds160fill/dom"
	"github.com/hazyhaar/ds160fill/fill"
	"github.com/hazyhaar/ds160fill/record"
	"github.com/hazyhaar/ds160fill/schema"
	"github.com/hazyhaar/ds160fill/section"
	"github.com/hazyhaar/ds160fill/store"
)

var (
	// ErrBusy is returned when a fill is requested while another runs.
	ErrBusy = errors.New("autofill: a fill is already running")
	// ErrNoStore is returned by record and run operations without a store.
	ErrNoStore = errors.New("autofill: no store configured")
	// ErrNoData is returned when a fill request carries no client data.
	ErrNoData = errors.New("autofill: request has neither clientData nor recordId")
)

// PageSource yields the page a request should act on.
type PageSource interface {
	ActivePage(ctx context.Context) (dom.Page, error)
}

// StaticPage serves one fixed page, for offline runs.
type StaticPage struct {
	Page dom.Page
}

func (s StaticPage) ActivePage(context.Context) (dom.Page, error) {
	if s.Page == nil {
		return nil, errors.New("autofill: no page loaded")
	}
	return s.Page, nil
}

// Config configures an Engine.
type Config struct {
	// Schemas maps sections to builders. Default: schema.Default().
	Schemas *schema.Registry
	// Detector resolves the current section. Default: section.NewDetector().
	Detector *section.Detector
	Fill     fill.Config
	// Store persists records and runs. Optional.
	Store  *store.Store
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Schemas == nil {
		c.Schemas = schema.Default()
	}
	if c.Detector == nil {
		c.Detector = section.NewDetector(section.WithLogger(c.Logger))
	}
	if c.Fill.Logger == nil {
		c.Fill.Logger = c.Logger
	}
}

// Engine answers fill requests. Fills are serial: the page is a single
// shared document.
type Engine struct {
	pages    PageSource
	schemas  *schema.Registry
	detector *section.Detector
	orch     *fill.Orchestrator
	store    *store.Store
	logger   *slog.Logger
	busy     sync.Mutex
}

// New creates an Engine acting on pages.
func New(pages PageSource, cfg Config) *Engine {
	cfg.defaults()
	return &Engine{
		pages:    pages,
		schemas:  cfg.Schemas,
		detector: cfg.Detector,
		orch:     fill.New(cfg.Fill),
		store:    cfg.Store,
		logger:   cfg.Logger,
	}
}

// Reply answers a fill request.
type Reply struct {
	Success     bool              `json:"success"`
	Message     string            `json:"message,omitempty"`
	Section     string            `json:"section,omitempty"`
	FilledCount int               `json:"filledCount"`
	Skipped     int               `json:"skipped,omitempty"`
	Errors      []fill.FieldError `json:"errors,omitempty"`
	Error       string            `json:"error,omitempty"`
	RunID       string            `json:"runId,omitempty"`
}

// FillRequest carries the record to fill with, inline or by store id.
type FillRequest struct {
	ClientData record.Record `json:"clientData,omitempty"`
	RecordID   string        `json:"recordId,omitempty"`
}

// Fill fills the active page with the requested record.
func (e *Engine) Fill(ctx context.Context, req FillRequest) (*Reply, error) {
	rec, err := e.resolveRecord(ctx, req)
	if err != nil {
		return nil, err
	}
	page, err := e.pages.ActivePage(ctx)
	if err != nil {
		return nil, fmt.Errorf("autofill: active page: %w", err)
	}
	return e.FillPage(ctx, page, rec, req.RecordID)
}

func (e *Engine) resolveRecord(ctx context.Context, req FillRequest) (record.Record, error) {
	if req.ClientData != nil {
		return req.ClientData, nil
	}
	if req.RecordID == "" {
		return nil, ErrNoData
	}
	if e.store == nil {
		return nil, ErrNoStore
	}
	cr, err := e.store.GetRecord(ctx, req.RecordID)
	if err != nil {
		return nil, err
	}
	return cr.Data, nil
}

// FillPage detects the section of page, builds its instructions from rec
// and runs them. A started fill runs to the end of its instruction list:
// cancelling ctx (a client hanging up) does not stop it half way through a
// section. Detection failure is a failed reply, not an error.
func (e *Engine) FillPage(ctx context.Context, page dom.Page, rec record.Record, recordID string) (*Reply, error) {
	if !e.busy.TryLock() {
		return nil, ErrBusy
	}
	defer e.busy.Unlock()
	ctx = context.WithoutCancel(ctx)

	started := time.Now()
	pageURL, _ := page.URL(ctx)

	sec, err := e.detector.Detect(ctx, page)
	if err != nil {
		reply := &Reply{Success: false, Error: "Could not detect form section"}
		e.saveRun(ctx, reply, recordID, pageURL, started)
		return reply, nil
	}

	data := rec.Section(sec)
	ins, err := e.schemas.Build(sec, data)
	if errors.Is(err, schema.ErrNoSchema) {
		e.logger.Warn("autofill: no mappings for section", "section", sec)
		ins = nil
	}

	res, err := e.orch.FillSection(ctx, page, sec, data, ins)
	reply := &Reply{
		Success:     err == nil,
		Message:     fmt.Sprintf("Filled %d fields in the %s section", res.FilledCount, sec),
		Section:     sec,
		FilledCount: res.FilledCount,
		Skipped:     res.Skipped,
		Errors:      res.Errors,
	}
	if err != nil {
		reply.Error = err.Error()
	}
	e.saveRun(ctx, reply, recordID, pageURL, started)
	return reply, nil
}

func (e *Engine) saveRun(ctx context.Context, reply *Reply, recordID, pageURL string, started time.Time) {
	if e.store == nil {
		return
	}
	msg := reply.Message
	if !reply.Success {
		msg = reply.Error
	}
	run := &store.Run{
		RecordID:    recordID,
		Section:     reply.Section,
		PageURL:     pageURL,
		Success:     reply.Success,
		Message:     msg,
		FilledCount: reply.FilledCount,
		Skipped:     reply.Skipped,
		Errors:      reply.Errors,
		StartedAt:   started,
		FinishedAt:  time.Now(),
	}
	if err := e.store.InsertRun(ctx, run); err != nil {
		e.logger.Warn("autofill: run not recorded", "error", err)
		return
	}
	reply.RunID = run.ID
}

// Detection describes the active page.
type Detection struct {
	Section string `json:"section,omitempty"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Mapped  bool   `json:"mapped"`
}

// Detect reports the section of the active page.
func (e *Engine) Detect(ctx context.Context) (*Detection, error) {
	page, err := e.pages.ActivePage(ctx)
	if err != nil {
		return nil, fmt.Errorf("autofill: active page: %w", err)
	}
	return e.DetectPage(ctx, page)
}

// DetectPage reports the section of page. An unknown section is not an
// error: Section is empty.
func (e *Engine) DetectPage(ctx context.Context, page dom.Document) (*Detection, error) {
	d := &Detection{}
	d.Title, _ = page.Title(ctx)
	d.URL, _ = page.URL(ctx)
	sec, err := e.detector.Detect(ctx, page)
	switch {
	case errors.Is(err, section.ErrUnknownSection):
		return d, nil
	case err != nil:
		return nil, err
	}
	d.Section = sec
	d.Mapped = e.schemas.Has(sec)
	return d, nil
}

// PlanStep is one instruction with the value it would write.
type PlanStep struct {
	schema.Instruction
	Value   any  `json:"value,omitempty"`
	Present bool `json:"present"`
}

// Plan is the instruction list of a section for a record.
type Plan struct {
	Section string     `json:"section"`
	Version string     `json:"version"`
	Steps   []PlanStep `json:"steps"`
}

// PlanRequest selects the section and record to plan. An empty section
// is detected from the active page.
type PlanRequest struct {
	Section string `json:"section,omitempty"`
	FillRequest
}

// Plan builds the instructions a fill would run, without touching a page
// when the section is given.
func (e *Engine) Plan(ctx context.Context, req PlanRequest) (*Plan, error) {
	rec, err := e.resolveRecord(ctx, req.FillRequest)
	if err != nil {
		return nil, err
	}
	sec := req.Section
	if sec == "" {
		d, err := e.Detect(ctx)
		if err != nil {
			return nil, err
		}
		if d.Section == "" {
			return nil, section.ErrUnknownSection
		}
		sec = d.Section
	}
	return e.PlanSection(sec, rec)
}

// PlanSection builds the plan of sec for rec.
func (e *Engine) PlanSection(sec string, rec record.Record) (*Plan, error) {
	data := rec.Section(sec)
	ins, err := e.schemas.Build(sec, data)
	if err != nil {
		return nil, err
	}
	p := &Plan{Section: sec, Version: e.schemas.Version, Steps: make([]PlanStep, len(ins))}
	for i, in := range ins {
		p.Steps[i].Instruction = in
		if in.Kind != schema.KindExpand {
			p.Steps[i].Value, p.Steps[i].Present = fill.ResolveValue(data, in.Path, in.Transform)
		} else {
			p.Steps[i].Present = true
		}
	}
	return p, nil
}

// SaveRecord stores a client record and returns it with its id.
func (e *Engine) SaveRecord(ctx context.Context, r *store.ClientRecord) (*store.ClientRecord, error) {
	if e.store == nil {
		return nil, ErrNoStore
	}
	if err := e.store.PutRecord(ctx, r); err != nil {
		return nil, err
	}
	e.logger.Info("autofill: record saved", "record_id", r.ID, "sections", len(r.Data))
	return r, nil
}

// ListRuns returns recent runs, or the runs of one record.
func (e *Engine) ListRuns(ctx context.Context, recordID string, limit int) ([]store.Run, error) {
	if e.store == nil {
		return nil, ErrNoStore
	}
	if recordID != "" {
		return e.store.RunsForRecord(ctx, recordID)
	}
	return e.store.ListRuns(ctx, limit)
}
