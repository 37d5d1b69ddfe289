package finviz

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-watch/pkg/config"
	"github.com/wonny/aegis-watch/pkg/httputil"
	"github.com/wonny/aegis-watch/pkg/logger"
)

const quoteHTML = `<html><body>
<div class="quote-links">
  <a class="tab-link" href="#">Healthcare</a>
  <a class="tab-link" href="#">Biotechnology</a>
  <a class="tab-link" href="#">USA</a>
  <a class="tab-link" href="#">NASD</a>
</div>
<table class="snapshot-table2">
  <tr><td>Market Cap</td><td>45.67M</td><td>Shs Float</td><td>8.52M</td></tr>
  <tr><td>Avg Volume</td><td>1.23M</td><td>Employees</td><td>120</td></tr>
  <tr><td>Price</td><td>3.41</td><td>Volume</td><td>9,804,112</td></tr>
</table>
<table id="news-table">
  <tr><td>Oct-16-26</td><td><a class="tab-link-news" href="#">Abcd wins FDA approval</a></td></tr>
  <tr><td>Oct-15-26</td><td><a class="tab-link-news" href="#">Abcd prices offering</a></td></tr>
</table>
</body></html>`

func TestParseQuotePage(t *testing.T) {
	page, err := ParseQuotePage(strings.NewReader(quoteHTML))
	require.NoError(t, err)

	assert.Equal(t, "Biotechnology", page.Industry)
	assert.Equal(t, "USA", page.Country)
	assert.Equal(t, "NASD", page.Exchange)
	assert.Equal(t, "8.52M", page.Snapshot["Shs Float"])
	assert.Len(t, page.Headlines, 2)
}

func TestParseQuotePage_NoSnapshot(t *testing.T) {
	_, err := ParseQuotePage(strings.NewReader(`<html><body>blocked</body></html>`))
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestClient_ProfileAndQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ABCD", r.URL.Query().Get("t"))
		w.Write([]byte(quoteHTML))
	}))
	defer server.Close()

	log := logger.NewNop()
	client := NewClient(httputil.New(&config.Config{}, log).DisableRetry(), server.URL, log)

	p, err := client.Profile(context.Background(), "ABCD")
	require.NoError(t, err)
	assert.InDelta(t, 8_520_000, *p.Float, 1e-6)
	assert.Equal(t, 120.0, *p.Employees)
	assert.InDelta(t, 45_670_000, *p.MarketCap, 1e-6)

	q, err := client.Quote(context.Background(), "ABCD")
	require.NoError(t, err)
	assert.Equal(t, 3.41, *q.Price)
	assert.Equal(t, 9_804_112.0, *q.Volume)

	avg, err := client.AvgVolume(context.Background(), "ABCD")
	require.NoError(t, err)
	assert.InDelta(t, 1_230_000, avg, 1e-6)

	hs, err := client.Headlines(context.Background(), "ABCD", 1)
	require.NoError(t, err)
	require.Len(t, hs, 1)
	assert.Equal(t, "Abcd wins FDA approval", hs[0].Title)
}

func TestClient_Non200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	log := logger.NewNop()
	client := NewClient(httputil.New(&config.Config{}, log).DisableRetry(), server.URL, log)

	_, err := client.Profile(context.Background(), "ABCD")
	var statusErr *httputil.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
}
