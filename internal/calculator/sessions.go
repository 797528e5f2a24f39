package calculator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"go-chi-accumulator/internal/accumulator"
	"go-chi-accumulator/internal/handlers"
	"go-chi-accumulator/internal/observability"
	"go-chi-accumulator/internal/session"
)

// SessionHandler serves the stateful calculator: each session is one
// accumulator fed a token per request.
type SessionHandler struct {
	sessions *session.Store
}

// NewSessionHandler returns handlers backed by store.
func NewSessionHandler(store *session.Store) *SessionHandler {
	return &SessionHandler{sessions: store}
}

// sessionStatus maps session and accumulator errors to HTTP status codes.
func sessionStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, accumulator.ErrEntryNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrClosed):
		return http.StatusGone
	case errors.Is(err, accumulator.ErrDivisionByZero),
		errors.Is(err, accumulator.ErrInvalidOperation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// sessionOp runs fn against the session named in the URL inside a span and
// writes the resulting snapshot, or a JSON error.
func (h *SessionHandler) sessionOp(w http.ResponseWriter, r *http.Request, opName string,
	fn func(ctx context.Context, c *session.Controller) (session.Snapshot, error),
	attrs ...attribute.KeyValue,
) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)
	id := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "calculator.session."+opName,
		trace.WithAttributes(append(attrs,
			attribute.String("session.id", id),
			attribute.String("request.id", observability.RequestIDFromContext(ctx)),
		)...),
	)
	defer span.End()

	c, err := h.sessions.Get(id)
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, opName, "session not found", err, http.StatusNotFound, w)
		return
	}

	start := time.Now()
	snap, err := fn(ctx, c)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0

	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, opName, err.Error(), err, sessionStatus(err), w)
		return
	}

	if snap.Computed != nil {
		recordComputation(ctx, span, *snap.Computed, elapsed)

		logger.Info("calculation completed",
			zap.String("session_id", id),
			zap.String("entry", snap.Computed.String()),
			zap.Int("history_len", len(snap.History)),
		)
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.SetAttributes(attribute.String("calculator.display", snap.Display))

	handlers.WriteJSON(w, http.StatusOK, newSessionResponse(snap))
}

// Create handles POST /calculator/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)

	ctx, span := tracer.Start(ctx, "calculator.session.create")
	defer span.End()

	c := h.sessions.Create()
	sessionsActive.Add(ctx, 1)
	span.SetAttributes(attribute.String("session.id", c.ID()))

	snap, err := c.Snapshot(ctx)
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "create", err.Error(), err, sessionStatus(err), w)
		return
	}

	logger.Info("session created",
		zap.String("session_id", c.ID()),
		zap.String("request_id", observability.RequestIDFromContext(ctx)),
	)

	w.Header().Set("Location", "/calculator/sessions/"+c.ID())
	handlers.WriteJSON(w, http.StatusCreated, newSessionResponse(snap))
}

// Get handles GET /calculator/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.sessionOp(w, r, "get", func(ctx context.Context, c *session.Controller) (session.Snapshot, error) {
		return c.Snapshot(ctx)
	})
}

// Delete handles DELETE /calculator/sessions/{id}
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)
	id := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "calculator.session.delete",
		trace.WithAttributes(attribute.String("session.id", id)),
	)
	defer span.End()

	if err := h.sessions.Delete(id); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "delete", "session not found", err, http.StatusNotFound, w)
		return
	}

	sessionsActive.Add(ctx, -1)
	logger.Info("session deleted", zap.String("session_id", id))

	w.WriteHeader(http.StatusNoContent)
}

// Submit handles POST /calculator/sessions/{id}/tokens
func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Token == "" {
		handlers.WriteError(w, http.StatusBadRequest, "token is required")
		return
	}

	h.sessionOp(w, r, "submit", func(ctx context.Context, c *session.Controller) (session.Snapshot, error) {
		tokensCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("class", tokenClass(req.Token))))
		return c.Submit(ctx, req.Token)
	}, attribute.String("calculator.token", req.Token))
}

// Replay handles POST /calculator/sessions/{id}/replay
func (h *SessionHandler) Replay(w http.ResponseWriter, r *http.Request) {
	var req ReplayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch {
	case req.Entry != nil:
		entry := *req.Entry
		h.sessionOp(w, r, "replay", func(ctx context.Context, c *session.Controller) (session.Snapshot, error) {
			return c.Replay(ctx, entry)
		}, attribute.String("calculator.entry", entry))
	case req.Index != nil:
		index := *req.Index
		h.sessionOp(w, r, "replay", func(ctx context.Context, c *session.Controller) (session.Snapshot, error) {
			return c.ReplayAt(ctx, index)
		}, attribute.Int("calculator.entry_index", index))
	default:
		handlers.WriteError(w, http.StatusBadRequest, fmt.Sprintf("one of %q or %q is required", "entry", "index"))
	}
}

// Clear handles POST /calculator/sessions/{id}/clear
func (h *SessionHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.sessionOp(w, r, "clear", func(ctx context.Context, c *session.Controller) (session.Snapshot, error) {
		return c.Clear(ctx)
	})
}

// tokenClass buckets tokens for metric attributes so arbitrary input does not
// blow up cardinality.
func tokenClass(token string) string {
	if _, ok := accumulator.ParseOperator(token); ok {
		return "operator"
	}

	switch token {
	case accumulator.TokenEquals:
		return "equals"
	case accumulator.TokenClear:
		return "clear"
	case accumulator.TokenBackspace:
		return "backspace"
	}

	return "digit"
}
