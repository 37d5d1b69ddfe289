// Package notify informs the downstream position tracker of chosen symbols.
package notify

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/wonny/aegis-watch/pkg/httputil"
	"github.com/wonny/aegis-watch/pkg/logger"
)

// TrackerNotifier posts watch symbols to {INTERNAL_BASE_URL}/api/tracker/watch
type TrackerNotifier struct {
	httpClient *httputil.Client
	baseURL    string
	timeout    time.Duration
	logger     *logger.Logger
}

// NewTrackerNotifier creates a tracker notifier
func NewTrackerNotifier(httpClient *httputil.Client, baseURL string, timeout time.Duration, log *logger.Logger) *TrackerNotifier {
	return &TrackerNotifier{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		logger:     log,
	}
}

type watchRequest struct {
	Symbols []string `json:"symbols"`
	RunID   string   `json:"runId"`
}

// NotifyWatch posts the symbols and reports the outcome.
// Callers decide whether to wait; the request carries its own timeout.
func (n *TrackerNotifier) NotifyWatch(ctx context.Context, runID string, symbols []string) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	resp, err := n.httpClient.PostJSON(ctx, n.baseURL+"/api/tracker/watch", watchRequest{Symbols: symbols, RunID: runID})
	if err != nil {
		return fmt.Errorf("tracker notify: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &httputil.StatusError{URL: n.baseURL + "/api/tracker/watch", StatusCode: resp.StatusCode}
	}

	n.logger.WithFields(map[string]interface{}{
		"run_id":  runID,
		"symbols": symbols,
	}).Debug("Tracker notified")
	return nil
}
