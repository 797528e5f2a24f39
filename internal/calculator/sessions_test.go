package calculator

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"go-chi-accumulator/internal/session"
	"go-chi-accumulator/internal/testutil"
)

func ptr[T any](v T) *T { return &v }

func createSession(t *testing.T, router http.Handler) SessionResponse {
	t.Helper()

	w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, "/calculator/sessions", nil), router)
	testutil.CheckResponseCode(t, http.StatusCreated, w.Code)

	var resp SessionResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)
	require.Equal(t, "/calculator/sessions/"+resp.ID, w.Header().Get("Location"))

	return resp
}

func submitToken(t *testing.T, router http.Handler, id, token string) (int, SessionResponse) {
	t.Helper()

	req := testutil.NewJSONRequest(t, http.MethodPost, "/calculator/sessions/"+id+"/tokens", TokenRequest{Token: token})
	w := testutil.ExecuteRequest(req, router)

	var resp SessionResponse
	if w.Code == http.StatusOK {
		testutil.DecodeJSONBody(t, w.Body, &resp)
	}
	return w.Code, resp
}

func getSession(t *testing.T, router http.Handler, id string) SessionResponse {
	t.Helper()

	w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodGet, "/calculator/sessions/"+id, nil), router)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var resp SessionResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)
	return resp
}

func TestSessionCreateStartsAtIdentity(t *testing.T) {
	router, store := newTestRouter(t)

	s := createSession(t, router)
	require.Equal(t, "0", s.Display)
	require.Empty(t, s.History)
	require.Empty(t, s.Pending)
	require.Equal(t, 1, store.Len())
}

func TestSessionSubmitTokens(t *testing.T) {
	router, _ := newTestRouter(t)
	s := createSession(t, router)

	var resp SessionResponse
	for _, tok := range []string{"7", "+"} {
		_, resp = submitToken(t, router, s.ID, tok)
	}
	require.Equal(t, "7 +", resp.Pending)

	for _, tok := range []string{"3", "="} {
		_, resp = submitToken(t, router, s.ID, tok)
	}
	require.Equal(t, "10", resp.Display)
	require.Equal(t, []string{"7 + 3 = 10"}, resp.History)
	require.Empty(t, resp.Pending)
}

func TestSessionDivisionByZeroLeavesStateUnchanged(t *testing.T) {
	router, _ := newTestRouter(t)
	s := createSession(t, router)

	for _, tok := range []string{"5", "/", "0"} {
		status, _ := submitToken(t, router, s.ID, tok)
		require.Equal(t, http.StatusOK, status)
	}
	before := getSession(t, router, s.ID)

	status, _ := submitToken(t, router, s.ID, "=")
	require.Equal(t, http.StatusUnprocessableEntity, status)

	require.Equal(t, before, getSession(t, router, s.ID))
	require.Equal(t, "0", before.Display)
	require.Empty(t, before.History)
}

func TestSessionOperatorWithoutOperandIsIgnored(t *testing.T) {
	router, _ := newTestRouter(t)
	s := createSession(t, router)

	status, resp := submitToken(t, router, s.ID, "+")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "0", resp.Display)
	require.Empty(t, resp.Pending)
}

func TestSessionReplayAndClear(t *testing.T) {
	router, _ := newTestRouter(t)
	s := createSession(t, router)

	for _, tok := range []string{"2", "+", "2", "=", "ac"} {
		submitToken(t, router, s.ID, tok)
	}

	w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, "/calculator/sessions/"+s.ID+"/replay",
		ReplayRequest{Entry: ptr("2 + 2 = 4")}), router)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var resp SessionResponse
	testutil.DecodeJSONBody(t, w.Body, &resp)
	require.Equal(t, "4", resp.Display)

	w = testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, "/calculator/sessions/"+s.ID+"/clear", nil), router)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)
	testutil.DecodeJSONBody(t, w.Body, &resp)
	require.Equal(t, "0", resp.Display)
	require.Equal(t, []string{"2 + 2 = 4"}, resp.History)

	zero := 0
	w = testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, "/calculator/sessions/"+s.ID+"/replay",
		ReplayRequest{Index: &zero}), router)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)
	testutil.DecodeJSONBody(t, w.Body, &resp)
	require.Equal(t, "4", resp.Display)

	five := 5
	w = testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, "/calculator/sessions/"+s.ID+"/replay",
		ReplayRequest{Index: &five}), router)
	testutil.CheckResponseCode(t, http.StatusNotFound, w.Code)

	w = testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, "/calculator/sessions/"+s.ID+"/replay",
		ReplayRequest{}), router)
	testutil.CheckResponseCode(t, http.StatusBadRequest, w.Code)
}

func TestSessionReplayMalformedEntryDegradesToZero(t *testing.T) {
	router, _ := newTestRouter(t)
	s := createSession(t, router)

	for _, tok := range []string{"1", "2"} {
		submitToken(t, router, s.ID, tok)
	}

	for _, entry := range []string{"", "no result here", "1 + 1 = x"} {
		w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodPost, "/calculator/sessions/"+s.ID+"/replay",
			ReplayRequest{Entry: ptr(entry)}), router)
		testutil.CheckResponseCode(t, http.StatusOK, w.Code)

		var resp SessionResponse
		testutil.DecodeJSONBody(t, w.Body, &resp)
		require.Equal(t, "0", resp.Display, "entry %q", entry)
	}
}

func TestSubmitCountsTokensForExistingSessionsOnly(t *testing.T) {
	router, _ := newTestRouter(t)

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	counter, err := provider.Meter("calculator").Int64Counter("calculator.tokens.total")
	require.NoError(t, err)

	prev := tokensCounter
	tokensCounter = counter
	t.Cleanup(func() { tokensCounter = prev })

	status, _ := submitToken(t, router, "missing", "1")
	require.Equal(t, http.StatusNotFound, status)

	s := createSession(t, router)
	submitToken(t, router, s.ID, "1")
	submitToken(t, router, s.ID, "+")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	require.Equal(t, int64(2), total)
}

func TestSessionBadRequests(t *testing.T) {
	router, _ := newTestRouter(t)
	s := createSession(t, router)

	status, _ := submitToken(t, router, s.ID, "")
	require.Equal(t, http.StatusBadRequest, status)

	status, _ = submitToken(t, router, "missing", "1")
	require.Equal(t, http.StatusNotFound, status)

	w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodGet, "/calculator/sessions/missing", nil), router)
	testutil.CheckResponseCode(t, http.StatusNotFound, w.Code)
}

func TestSessionDelete(t *testing.T) {
	router, store := newTestRouter(t)
	s := createSession(t, router)

	w := testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodDelete, "/calculator/sessions/"+s.ID, nil), router)
	testutil.CheckResponseCode(t, http.StatusNoContent, w.Code)
	require.Zero(t, store.Len())

	w = testutil.ExecuteRequest(testutil.NewJSONRequest(t, http.MethodDelete, "/calculator/sessions/"+s.ID, nil), router)
	testutil.CheckResponseCode(t, http.StatusNotFound, w.Code)
}

func TestTokenClass(t *testing.T) {
	tests := map[string]string{
		"7":   "digit",
		".":   "digit",
		"-3":  "digit",
		"-":   "operator",
		"/":   "operator",
		"=":   "equals",
		"ac":  "clear",
		"<":   "backspace",
		"xyz": "digit",
	}

	for token, want := range tests {
		require.Equal(t, want, tokenClass(token), "token %q", token)
	}
}

func TestRegisterCollectorsExposesSessionCount(t *testing.T) {
	_, store := newTestRouter(t)
	store.Create()
	store.Create()

	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterCollectors(reg, store))
	require.NoError(t, RegisterCollectors(reg, store))

	count, err := promtestutil.GatherAndCount(reg, "calculator_sessions_open")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Equal(t, 2.0, families[0].GetMetric()[0].GetGauge().GetValue())
}

func TestSweepOnce(t *testing.T) {
	newTestRouter(t)

	store := session.NewStore(time.Minute)
	t.Cleanup(store.Close)
	store.Create()

	require.Zero(t, sweepOnce(context.Background(), store, time.Now()))
	require.Equal(t, 1, sweepOnce(context.Background(), store, time.Now().Add(2*time.Minute)))
	require.Zero(t, store.Len())
}
