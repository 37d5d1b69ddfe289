package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-watch/internal/api/handlers"
	"github.com/wonny/aegis-watch/internal/brain"
	"github.com/wonny/aegis-watch/internal/contracts"
	"github.com/wonny/aegis-watch/internal/selection"
	"github.com/wonny/aegis-watch/pkg/logger"
)

type fakeSelector struct {
	got   brain.Request
	err   error
	panic bool
}

func (f *fakeSelector) Run(ctx context.Context, req brain.Request) (*brain.Response, error) {
	if f.panic {
		panic("boom")
	}
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &brain.Response{Picks: []string{"ABCD"}, Primary: "ABCD", Reasons: map[string][]string{}}, nil
}

func newTestRouter(sel handlers.Selector, repo contracts.PickRepository) http.Handler {
	if repo == nil {
		repo = selection.NewMemoryRepository()
	}
	return NewRouter(Routes{
		Picks:     handlers.NewPicksHandler(sel, repo, logger.NewNop()),
		Premarket: handlers.NewPremarketHandler(nil),
	}, logger.NewNop())
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func TestSelect_Success(t *testing.T) {
	sel := &fakeSelector{}
	rec, out := do(t, newTestRouter(sel, nil), http.MethodPost, "/api/picks/select",
		`{"stocks":[{"ticker":"ABCD","price":4.5}],"topN":1}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ABCD", out["primary"])
	assert.Equal(t, 1, sel.got.TopN)
	require.Len(t, sel.got.Rows, 1)
	assert.Equal(t, json.Number("4.5"), sel.got.Rows[0]["price"])
}

func TestSelect_GainersAlias(t *testing.T) {
	sel := &fakeSelector{}
	rec, _ := do(t, newTestRouter(sel, nil), http.MethodPost, "/api/picks/select", `{"gainers":[{"symbol":"ABCD"}]}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, sel.got.TopN)
	assert.Len(t, sel.got.Rows, 1)
}

func TestSelect_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"stocks":`},
		{"topN too large", `{"stocks":[{"ticker":"ABCD"}],"topN":3}`},
		{"topN zero", `{"stocks":[{"ticker":"ABCD"}],"topN":0}`},
		{"no rows", `{"stocks":[]}`},
		{"empty body object", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := &fakeSelector{}
			rec, out := do(t, newTestRouter(sel, nil), http.MethodPost, "/api/picks/select", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, out["errorMessage"])
			assert.Nil(t, sel.got.Rows, "pipeline must not run")
		})
	}
}

func TestSelect_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"config missing", &contracts.ConfigMissingError{Setting: "ADVISOR_API_KEY"}, http.StatusInternalServerError, "ADVISOR_API_KEY"},
		{"no candidates", fmt.Errorf("%w: no usable rows", contracts.ErrNoCandidates), http.StatusBadRequest, "no candidates"},
		{"unexpected", fmt.Errorf("boom"), http.StatusInternalServerError, "selection failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := do(t, newTestRouter(&fakeSelector{err: tt.err}, nil), http.MethodPost, "/api/picks/select",
				`{"stocks":[{"ticker":"ABCD"}]}`)

			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, out["errorMessage"], tt.msg)
		})
	}
}

func TestSelect_PanicRecovered(t *testing.T) {
	rec, out := do(t, newTestRouter(&fakeSelector{panic: true}, nil), http.MethodPost, "/api/picks/select",
		`{"stocks":[{"ticker":"ABCD"}]}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", out["errorMessage"])
}

func TestLatest(t *testing.T) {
	repo := selection.NewMemoryRepository()
	base := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	for i := 0; i < 15; i++ {
		require.NoError(t, repo.SavePick(context.Background(), &contracts.Pick{
			ID:        fmt.Sprintf("id-%d", i),
			Ticker:    fmt.Sprintf("T%d", i),
			Rank:      1,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	h := newTestRouter(&fakeSelector{}, repo)

	rec, out := do(t, h, http.MethodGet, "/api/picks/latest", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 10, out["count"])
	first := out["picks"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "T14", first["ticker"])

	_, out = do(t, h, http.MethodGet, "/api/picks/latest?limit=3", "")
	assert.EqualValues(t, 3, out["count"])

	_, out = do(t, h, http.MethodGet, "/api/picks/latest?limit=1000", "")
	assert.EqualValues(t, 15, out["count"])

	rec, _ = do(t, h, http.MethodGet, "/api/picks/latest?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPremarketStatus_Disabled(t *testing.T) {
	rec, out := do(t, newTestRouter(&fakeSelector{}, nil), http.MethodGet, "/api/premarket/status", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "disabled", out["status"])
}

func TestHealth(t *testing.T) {
	rec, out := do(t, newTestRouter(&fakeSelector{}, nil), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", out["status"])
}

func TestHealth_DependencyChecks(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]func(context.Context) error
		code   int
		status string
	}{
		{
			name: "all healthy",
			checks: map[string]func(context.Context) error{
				"database": func(context.Context) error { return nil },
				"redis":    func(context.Context) error { return nil },
			},
			code:   http.StatusOK,
			status: "ok",
		},
		{
			name: "database down",
			checks: map[string]func(context.Context) error{
				"database": func(context.Context) error { return errors.New("connection refused") },
				"redis":    func(context.Context) error { return nil },
			},
			code:   http.StatusServiceUnavailable,
			status: "degraded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewRouter(Routes{
				Picks:     handlers.NewPicksHandler(&fakeSelector{}, selection.NewMemoryRepository(), logger.NewNop()),
				Premarket: handlers.NewPremarketHandler(nil),
				Checks:    tt.checks,
			}, logger.NewNop())

			rec, out := do(t, router, http.MethodGet, "/health", "")

			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.status, out["status"])
			checks, ok := out["checks"].(map[string]interface{})
			require.True(t, ok)
			assert.Len(t, checks, 2)
			assert.Equal(t, "ok", checks["redis"])
		})
	}
}
