package autofill

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/hazyhaar/ds160fill/section"
	"github.com/hazyhaar/ds160fill/store"
)

const maxMessageBytes = 4 << 20

// Handler returns the HTTP transport: POST /message takes a router
// message, GET /runs lists recent runs, GET /healthz answers liveness.
// A non-empty tokenHash (bcrypt) protects every route but /healthz with a
// bearer token.
func (e *Engine) Handler(tokenHash string) http.Handler {
	router := e.Router()

	r := chi.NewRouter()
	r.Use(headToGet, apiHeaders, requestID(e.logger))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		if tokenHash != "" {
			r.Use(requireToken(tokenHash))
		}

		r.Post("/message", func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxMessageBytes))
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			resp, err := router.Call(r.Context(), body)
			if err != nil {
				writeError(w, statusFor(err), err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(resp)
		})

		r.Get("/runs", func(w http.ResponseWriter, r *http.Request) {
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			runs, err := e.ListRuns(r.Context(), r.URL.Query().Get("recordId"), limit)
			if err != nil {
				writeError(w, statusFor(err), err)
				return
			}
			if runs == nil {
				runs = []store.Run{}
			}
			writeJSON(w, http.StatusOK, RunsReply{Runs: runs})
		})
	})
	return r
}

// requireToken checks "Authorization: Bearer <token>" against a bcrypt hash.
func requireToken(hash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) != nil {
				loggerFrom(r.Context(), slog.Default()).Warn("autofill: unauthorized request")
				writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnknownAction), errors.Is(err, ErrNoData):
		return http.StatusBadRequest
	case errors.Is(err, ErrBusy):
		return http.StatusConflict
	case errors.Is(err, store.ErrNotFound), errors.Is(err, section.ErrUnknownSection):
		return http.StatusNotFound
	case errors.Is(err, ErrNoStore):
		return http.StatusNotImplemented
	}
	var (
		syn *json.SyntaxError
		typ *json.UnmarshalTypeError
	)
	if errors.As(err, &syn) || errors.As(err, &typ) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"success": false, "error": err.Error()})
}
