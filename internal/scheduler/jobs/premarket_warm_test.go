package jobs

import (
	"context"
	"testing"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-watch/internal/contracts"
	"github.com/wonny/aegis-watch/internal/premarket"
	"github.com/wonny/aegis-watch/pkg/logger"
)

type fakeWarmer struct {
	inWindow bool
	symbols  []string
	result   premarket.Result
	warmed   int
}

func (f *fakeWarmer) InWindow() bool        { return f.inWindow }
func (f *fakeWarmer) LastSymbols() []string { return f.symbols }

func (f *fakeWarmer) Warm(ctx context.Context) premarket.Result {
	f.warmed++
	return f.result
}

func TestPremarketWarmJob_Run(t *testing.T) {
	tests := []struct {
		name    string
		warmer  *fakeWarmer
		warmed  int
		wantErr bool
	}{
		{
			name:   "outside window",
			warmer: &fakeWarmer{symbols: []string{"ABCD"}},
		},
		{
			name:   "no shortlist yet",
			warmer: &fakeWarmer{inWindow: true},
		},
		{
			name: "fetched",
			warmer: &fakeWarmer{inWindow: true, symbols: []string{"ABCD"}, result: premarket.Result{
				Status:  premarket.StatusFetched,
				Metrics: map[string]contracts.PremarketMetrics{"ABCD": {}},
			}},
			warmed: 1,
		},
		{
			name:    "provider error",
			warmer:  &fakeWarmer{inWindow: true, symbols: []string{"ABCD"}, result: premarket.Result{Status: premarket.StatusError, Error: "bars unavailable"}},
			warmed:  1,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewPremarketWarmJob(tt.warmer, logger.NewNop()).Run(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.warmed, tt.warmer.warmed)
		})
	}
}

func TestPremarketWarmJob_ScheduleParses(t *testing.T) {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	_, err := parser.Parse(NewPremarketWarmJob(&fakeWarmer{}, logger.NewNop()).Schedule())
	require.NoError(t, err)
}
