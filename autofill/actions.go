package autofill

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hazyhaar/ds160fill/record"
	"github.com/hazyhaar/ds160fill/store"
)

// Action names understood by the router.
const (
	ActionPing          = "ping"
	ActionFillForm      = "fillForm"
	ActionDetectSection = "detectSection"
	ActionPlan          = "plan"
	ActionSaveRecord    = "saveRecord"
	ActionListRuns      = "listRuns"
)

// PingReply tells the caller the engine is loaded.
type PingReply struct {
	Loaded bool `json:"loaded"`
}

// SaveRecordRequest stores clientData under recordId (new when empty).
type SaveRecordRequest struct {
	RecordID   string        `json:"recordId,omitempty"`
	Label      string        `json:"label,omitempty"`
	ClientData record.Record `json:"clientData"`
}

// ListRunsRequest selects runs.
type ListRunsRequest struct {
	RecordID string `json:"recordId,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// RunsReply lists runs.
type RunsReply struct {
	Runs []store.Run `json:"runs"`
}

// Router returns a message router serving the engine's actions.
func (e *Engine) Router() *Router {
	r := NewRouter(
		WithRouterLogger(e.logger),
		WithMiddleware(Recovery(e.logger), Logging(e.logger)),
	)
	r.Register(ActionPing, func(context.Context, []byte) ([]byte, error) {
		return json.Marshal(PingReply{Loaded: true})
	})
	r.Register(ActionFillForm, handle(e.Fill))
	r.Register(ActionDetectSection, handle(func(ctx context.Context, _ struct{}) (*Detection, error) {
		return e.Detect(ctx)
	}))
	r.Register(ActionPlan, handle(e.Plan))
	r.Register(ActionSaveRecord, handle(func(ctx context.Context, req SaveRecordRequest) (*store.ClientRecord, error) {
		return e.SaveRecord(ctx, &store.ClientRecord{ID: req.RecordID, Label: req.Label, Data: req.ClientData})
	}))
	r.Register(ActionListRuns, handle(func(ctx context.Context, req ListRunsRequest) (*RunsReply, error) {
		runs, err := e.ListRuns(ctx, req.RecordID, req.Limit)
		if err != nil {
			return nil, err
		}
		if runs == nil {
			runs = []store.Run{}
		}
		return &RunsReply{Runs: runs}, nil
	}))
	return r
}

// handle adapts a typed endpoint to a Handler: the message is decoded into
// Req (extra fields such as action are ignored) and the reply encoded.
func handle[Req, Resp any](fn func(context.Context, Req) (Resp, error)) Handler {
	return func(ctx context.Context, msg []byte) ([]byte, error) {
		var req Req
		if err := decodeMessage(msg, &req); err != nil {
			return nil, err
		}
		resp, err := fn(ctx, req)
		if err != nil {
			return nil, err
		}
		return json.Marshal(resp)
	}
}

func decodeMessage(msg []byte, v any) error {
	if err := json.Unmarshal(msg, v); err != nil {
		return fmt.Errorf("autofill: decode request: %w", err)
	}
	return nil
}
