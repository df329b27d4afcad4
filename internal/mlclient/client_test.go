package mlclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/bopt/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := New(Options{
		BaseURL:    srv.URL + "/",
		APIKey:     "k",
		MaxRetries: 2,
		RetryWait:  time.Millisecond,
		MaxWait:    2 * time.Millisecond,
	})
	require.NotNil(t, c)
	return c
}

func TestNew_EmptyBaseURL(t *testing.T) {
	assert.Nil(t, New(Options{BaseURL: "  "}))
}

func TestOptimize(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/optimize", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))

		var req OptimizeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 1000.0, req.TotalBudget)
		assert.Equal(t, []string{"food", "rent"}, req.Categories)

		_, _ = w.Write([]byte(`{"optimized_allocation": {"food": 250.5, "rent": 749.5}, "savings": 150.0}`))
	})

	resp, err := c.Optimize(context.Background(), OptimizeRequest{TotalBudget: 1000, Categories: []string{"food", "rent"}})
	require.NoError(t, err)
	assert.True(t, resp.Allocation["food"].Equal(decimal.RequireFromString("250.5")))
	assert.True(t, resp.Savings.Equal(decimal.NewFromInt(150)))

	raw, err := resp.RawPayload(0.85, "ml-1.0")
	require.NoError(t, err)
	p, err := model.DecodePayload(raw)
	require.NoError(t, err)
	require.NotNil(t, p.OptimizedBudget)
	assert.True(t, p.OptimizedBudget.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, []string{"food", "rent"}, p.RecommendedCategories)
	assert.True(t, p.SuggestedCategoryLimits["rent"].Equal(decimal.RequireFromString("749.5")))
	require.NotNil(t, p.Confidence)
	assert.InDelta(t, 0.85, *p.Confidence, 1e-9)
}

func TestPredictDefaultsMonths(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req PredictRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 3, req.MonthsAhead)
		_, _ = w.Write([]byte(`{"predictions": [{"month": "Month +1", "predictions": {"food": 105.0}}], "confidence": 0.85}`))
	})

	resp, err := c.Predict(context.Background(), PredictRequest{Items: []Item{{Category: "food", Amount: 100, Month: "2026-01"}}})
	require.NoError(t, err)
	require.Len(t, resp.Predictions, 1)
	assert.True(t, resp.Predictions[0].Predictions["food"].Equal(decimal.NewFromInt(105)))
	assert.InDelta(t, 0.85, resp.Confidence, 1e-9)

	p := resp.Payload("ml-1.0")
	require.NotNil(t, p.OptimizedBudget)
	assert.True(t, p.OptimizedBudget.Equal(decimal.NewFromInt(105)))
	assert.Equal(t, []string{"food"}, p.RecommendedCategories)
	require.NotNil(t, p.Confidence)
	assert.InDelta(t, 0.85, *p.Confidence, 1e-9)
}

func TestPredictPayload_NoForecast(t *testing.T) {
	p := PredictResponse{Confidence: 0.5}.Payload("")
	assert.Nil(t, p.OptimizedBudget)
	assert.Empty(t, p.SuggestedCategoryLimits)
}

func TestAnalyze(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var items []Item
		require.NoError(t, json.NewDecoder(r.Body).Decode(&items))
		assert.Len(t, items, 2)
		_, _ = w.Write([]byte(`{"total_spending": 30, "by_category": {"food": 20, "rent": 10},
			"percentages": {"food": 66.67, "rent": 33.33}, "highest_category": "food",
			"recommendations": ["cut food"]}`))
	})

	a, err := c.Analyze(context.Background(), []Item{{Category: "food", Amount: 20}, {Category: "rent", Amount: 10}})
	require.NoError(t, err)
	assert.Equal(t, "food", a.HighestCategory)
	p := a.Payload(0.9, "")
	assert.Equal(t, []string{"food"}, p.RecommendedCategories)
	assert.Equal(t, []string{"cut food"}, p.Alerts)
}

func TestStatusMapping(t *testing.T) {
	for name, tt := range map[string]struct {
		status int
		want   error
	}{
		"unauthorized": {http.StatusUnauthorized, ErrUnauthorized},
		"forbidden":    {http.StatusForbidden, ErrUnauthorized},
		"bad request":  {http.StatusUnprocessableEntity, ErrBadRequest},
		"server":       {http.StatusInternalServerError, ErrUnavailable},
		"rate limited": {http.StatusTooManyRequests, ErrRateLimited},
	} {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"detail": "nope"}`))
			})
			_, err := c.Health(context.Background())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"status": "healthy", "service": "ml-service"}`))
	})

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, int32(3), calls.Load())
}

func TestBadRequestNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail": "No categories provided"}`))
	})

	_, err := c.Optimize(context.Background(), OptimizeRequest{TotalBudget: 10})
	require.ErrorIs(t, err, ErrBadRequest)
	assert.Contains(t, err.Error(), "No categories provided")
	assert.Equal(t, int32(1), calls.Load())
}

func TestBreakerOpens(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	for i := 0; i < 5; i++ {
		_, err := c.Health(context.Background())
		require.ErrorIs(t, err, ErrUnavailable)
	}
	assert.Equal(t, gobreaker.StateOpen, c.BreakerState())

	before := calls.Load()
	_, err := c.Health(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, before, calls.Load(), "open breaker short-circuits")
}

func TestMalformedResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})
	_, err := c.Health(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing /health response")
}
