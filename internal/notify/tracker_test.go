package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-watch/pkg/httputil"
	"github.com/wonny/aegis-watch/pkg/logger"
)

func TestNotifyWatch(t *testing.T) {
	var got watchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/tracker/watch", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := NewTrackerNotifier(httputil.New(nil, logger.NewNop()).DisableRetry(), srv.URL+"/", time.Second, logger.NewNop())

	require.NoError(t, n.NotifyWatch(context.Background(), "run-1", []string{"ABCD", "EFGH"}))
	assert.Equal(t, watchRequest{Symbols: []string{"ABCD", "EFGH"}, RunID: "run-1"}, got)
}

func TestNotifyWatch_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	n := NewTrackerNotifier(httputil.New(nil, logger.NewNop()).DisableRetry(), srv.URL, time.Second, logger.NewNop())

	var statusErr *httputil.StatusError
	require.ErrorAs(t, n.NotifyWatch(context.Background(), "run-1", []string{"ABCD"}), &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestNotifyWatch_Unreachable(t *testing.T) {
	n := NewTrackerNotifier(httputil.New(nil, logger.NewNop()).DisableRetry(), "http://127.0.0.1:1", 200*time.Millisecond, logger.NewNop())

	assert.Error(t, n.NotifyWatch(context.Background(), "run-1", []string{"ABCD"}))
}
