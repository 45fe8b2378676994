package autofill

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"time"
)

// ErrUnknownAction is returned for messages whose action has no handler.
var ErrUnknownAction = errors.New("autofill: unknown action")

// Handler serves one action: the whole message in, the JSON reply out.
type Handler func(ctx context.Context, msg []byte) ([]byte, error)

// HandlerMiddleware wraps a Handler without changing its signature.
type HandlerMiddleware func(next Handler) Handler

// Chain composes middlewares; the first is the outermost.
func Chain(mws ...HandlerMiddleware) HandlerMiddleware {
	return func(next Handler) Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// Envelope is the part of every message the router reads.
type Envelope struct {
	Action string `json:"action"`
}

// Router dispatches messages by their action field.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	mw       HandlerMiddleware
	logger   *slog.Logger
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithRouterLogger sets the router's logger.
func WithRouterLogger(l *slog.Logger) RouterOption {
	return func(r *Router) { r.logger = l }
}

// WithMiddleware wraps every registered handler.
func WithMiddleware(mws ...HandlerMiddleware) RouterOption {
	return func(r *Router) { r.mw = Chain(mws...) }
}

// NewRouter creates an empty Router.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		handlers: make(map[string]Handler),
		mw:       Chain(),
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Register binds action to h. A later registration replaces an earlier one.
func (r *Router) Register(action string, h Handler) {
	r.mu.Lock()
	r.handlers[action] = r.mw(h)
	r.mu.Unlock()
}

// Actions lists the registered actions, sorted.
func (r *Router) Actions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for a := range r.handlers {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Call dispatches msg to the handler of its action.
func (r *Router) Call(ctx context.Context, msg []byte) ([]byte, error) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return nil, fmt.Errorf("autofill: decode message: %w", err)
	}
	r.mu.RLock()
	h := r.handlers[env.Action]
	r.mu.RUnlock()
	if h == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, env.Action)
	}
	r.logger.DebugContext(ctx, "autofill: dispatch", "action", env.Action)
	return h(ctx, msg)
}

// Logging logs every call with its duration.
func Logging(logger *slog.Logger) HandlerMiddleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, msg []byte) ([]byte, error) {
			start := time.Now()
			resp, err := next(ctx, msg)
			dur := time.Since(start)
			l := loggerFrom(ctx, logger)
			if err != nil {
				l.ErrorContext(ctx, "autofill: call failed",
					"duration_ms", dur.Milliseconds(), "error", err)
			} else {
				l.DebugContext(ctx, "autofill: call ok",
					"duration_ms", dur.Milliseconds(), "response_bytes", len(resp))
			}
			return resp, err
		}
	}
}

// Recovery turns handler panics into errors.
func Recovery(logger *slog.Logger) HandlerMiddleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, msg []byte) (resp []byte, err error) {
			defer func() {
				if v := recover(); v != nil {
					logger.ErrorContext(ctx, "autofill: handler panic recovered",
						"panic", v, "stack", string(debug.Stack()))
					err = fmt.Errorf("autofill: panic: %v", v)
				}
			}()
			return next(ctx, msg)
		}
	}
}
