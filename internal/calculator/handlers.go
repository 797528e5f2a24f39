package calculator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"go-chi-accumulator/internal/accumulator"
	"go-chi-accumulator/internal/handlers"
	"go-chi-accumulator/internal/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// tracer is the calculator's dedicated OpenTelemetry tracer.
var tracer = otel.Tracer("calculator")

var errResultOutOfRange = errors.New("result is not a finite number")

// statusFor maps calculator errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, accumulator.ErrDivisionByZero),
		errors.Is(err, accumulator.ErrInvalidOperation),
		errors.Is(err, errResultOutOfRange):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ---------------------------------------------------------------------------
// Handlers: binary operations
// ---------------------------------------------------------------------------

// Add handles POST /calculator/add
func Add(w http.ResponseWriter, r *http.Request) {
	handleBinaryOp(w, r, accumulator.Add)
}

// Subtract handles POST /calculator/subtract
func Subtract(w http.ResponseWriter, r *http.Request) {
	handleBinaryOp(w, r, accumulator.Subtract)
}

// Multiply handles POST /calculator/multiply
func Multiply(w http.ResponseWriter, r *http.Request) {
	handleBinaryOp(w, r, accumulator.Multiply)
}

// Divide handles POST /calculator/divide
func Divide(w http.ResponseWriter, r *http.Request) {
	handleBinaryOp(w, r, accumulator.Divide)
}

// handleBinaryOp is the shared implementation for the one-shot binary endpoints.
// It evaluates with the same arithmetic a session applies on "=".
func handleBinaryOp(w http.ResponseWriter, r *http.Request, op accumulator.Operator) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)
	requestID := observability.RequestIDFromContext(ctx)
	opName := op.Name()

	ctx, span := tracer.Start(ctx, fmt.Sprintf("calculator.%s", opName),
		trace.WithAttributes(
			attribute.String("calculator.operation", opName),
			attribute.String("request.id", requestID),
		),
	)
	defer span.End()

	var req CalcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, opName, "invalid request body", err, http.StatusBadRequest, w)
		return
	}

	if !finite(req.A) || !finite(req.B) {
		observability.RecordError(ctx, span, logger, errorCounter, opName, "invalid numeric input", fmt.Errorf("a=%g b=%g", req.A, req.B), http.StatusBadRequest, w)
		return
	}

	span.SetAttributes(
		attribute.Float64("calculator.operand.a", req.A),
		attribute.Float64("calculator.operand.b", req.B),
	)

	start := time.Now()
	result, err := accumulator.Apply(op, req.A, req.B)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0 // ms

	if err == nil && !finite(result) {
		err = fmt.Errorf("%w: %s", errResultOutOfRange, accumulator.FormatNumber(result))
	}
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, opName, err.Error(), err, statusFor(err), w)
		return
	}

	entry := accumulator.HistoryEntry{Left: req.A, Operator: op, Right: req.B, Result: result}
	recordComputation(ctx, span, entry, elapsed)

	logger.Info("calculator operation completed",
		zap.String("operation", opName),
		zap.Float64("a", req.A),
		zap.Float64("b", req.B),
		zap.Float64("result", result),
		zap.String("request_id", requestID),
		zap.Float64("duration_ms", elapsed),
	)

	handlers.WriteJSON(w, http.StatusOK, CalcResponse{
		Operation: opName,
		A:         req.A,
		B:         req.B,
		Result:    result,
		Entry:     entry.String(),
	})
}

// recordComputation emits the metrics and span event shared by every
// successful evaluation.
func recordComputation(ctx context.Context, span trace.Span, entry accumulator.HistoryEntry, elapsedMS float64) {
	attrs := metric.WithAttributes(attribute.String("operation", entry.Operator.Name()))
	opsCounter.Add(ctx, 1, attrs)
	opsHistogram.Record(ctx, elapsedMS, attrs)
	if finite(entry.Result) {
		resultGauge.Record(ctx, entry.Result, attrs)
	}

	span.AddEvent("computation.complete", trace.WithAttributes(
		attribute.String("entry", entry.String()),
		attribute.Float64("duration_ms", elapsedMS),
	))
	span.SetAttributes(attribute.Float64("calculator.result", entry.Result))
	span.SetStatus(codes.Ok, "")
}

// ---------------------------------------------------------------------------
// Handler: chained operations, one child span per step
// ---------------------------------------------------------------------------

// Chain handles POST /calculator/chain. It feeds the steps to a fresh accumulator
// as tokens ("<initial>", "<op>", "<value>", "=", ...), creating a child span
// for every step. The response carries the accumulator's rendered history.
func Chain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)
	requestID := observability.RequestIDFromContext(ctx)

	ctx, span := tracer.Start(ctx, "calculator.chain",
		trace.WithAttributes(
			attribute.String("request.id", requestID),
		),
	)
	defer span.End()

	var req ChainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "chain", "invalid request body", err, http.StatusBadRequest, w)
		return
	}

	if len(req.Steps) == 0 {
		observability.RecordError(ctx, span, logger, errorCounter, "chain", "no steps provided", fmt.Errorf("steps array is empty"), http.StatusBadRequest, w)
		return
	}

	if !finite(req.Initial) {
		observability.RecordError(ctx, span, logger, errorCounter, "chain", "invalid numeric input", fmt.Errorf("initial=%g", req.Initial), http.StatusBadRequest, w)
		return
	}

	span.SetAttributes(
		attribute.Float64("chain.initial", req.Initial),
		attribute.Int("chain.steps_count", len(req.Steps)),
	)

	logger.Info("starting chained calculation",
		zap.Float64("initial", req.Initial),
		zap.Int("steps", len(req.Steps)),
		zap.String("request_id", requestID),
	)

	acc := accumulator.New()
	if err := acc.Submit(accumulator.FormatNumber(req.Initial)); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "chain", err.Error(), err, statusFor(err), w)
		return
	}

	running := req.Initial
	results := make([]ChainResult, 0, len(req.Steps))

	for i, step := range req.Steps {
		_, stepSpan := tracer.Start(ctx, fmt.Sprintf("calculator.chain.step.%d.%s", i, step.Op),
			trace.WithAttributes(
				attribute.Int("chain.step.index", i),
				attribute.String("chain.step.operation", step.Op),
				attribute.Float64("chain.step.input", running),
				attribute.Float64("chain.step.value", step.Value),
			),
		)

		stepStart := time.Now()
		err := runStep(acc, step)
		stepElapsed := float64(time.Since(stepStart).Microseconds()) / 1000.0

		if err != nil {
			err = fmt.Errorf("step %d: %w", i, err)

			stepSpan.RecordError(err)
			stepSpan.SetStatus(codes.Error, err.Error())
			stepSpan.End()

			observability.RecordError(ctx, span, logger, errorCounter, step.Op, err.Error(), err, statusFor(err), w)
			return
		}

		entry, _ := acc.Last()
		recordComputation(ctx, stepSpan, entry, stepElapsed)
		stepSpan.End()

		logger.Debug("chain step completed",
			zap.Int("step", i),
			zap.String("entry", entry.String()),
			zap.Float64("duration_ms", stepElapsed),
		)

		running = entry.Result

		results = append(results, ChainResult{
			Op:     step.Op,
			Value:  step.Value,
			Result: running,
		})
	}

	span.AddEvent("chain.complete", trace.WithAttributes(
		attribute.Float64("final_result", running),
		attribute.Int("total_steps", len(req.Steps)),
	))
	span.SetAttributes(attribute.Float64("chain.result", running))
	span.SetStatus(codes.Ok, "")

	logger.Info("chained calculation completed",
		zap.Float64("initial", req.Initial),
		zap.Float64("result", running),
		zap.Int("steps", len(req.Steps)),
		zap.String("request_id", requestID),
	)

	handlers.WriteJSON(w, http.StatusOK, ChainResponse{
		Initial: req.Initial,
		Steps:   results,
		Result:  running,
		History: acc.History(),
	})
}

// runStep submits "<op>", "<value>", "=" to acc.
func runStep(acc *accumulator.Accumulator, step ChainStep) error {
	op, ok := accumulator.OperatorFromName(step.Op)
	if !ok {
		return fmt.Errorf("unknown operation %q", step.Op)
	}

	if !finite(step.Value) {
		return fmt.Errorf("invalid numeric input: value=%g", step.Value)
	}

	before := acc.HistoryLen()
	for _, token := range []string{op.String(), accumulator.FormatNumber(step.Value), accumulator.TokenEquals} {
		if err := acc.Submit(token); err != nil {
			return err
		}
	}

	last, ok := acc.Last()
	if acc.HistoryLen() == before || !ok {
		return fmt.Errorf("%w: step did not complete", accumulator.ErrInvalidOperation)
	}
	if !finite(last.Result) {
		return fmt.Errorf("%w: %s", errResultOutOfRange, accumulator.FormatNumber(last.Result))
	}

	return nil
}
