package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/aegis-watch/internal/premarket"
	"github.com/wonny/aegis-watch/pkg/logger"
)

// Warmer is the premarket surface the warm-up job needs; *premarket.Service satisfies it
type Warmer interface {
	InWindow() bool
	LastSymbols() []string
	Warm(ctx context.Context) premarket.Result
}

// PremarketWarmJob refreshes the premarket snapshot for the last shortlist
// so the next selection request is served from cache
type PremarketWarmJob struct {
	warmer Warmer
	logger *logger.Logger
}

// NewPremarketWarmJob creates a new premarket warm-up job
func NewPremarketWarmJob(warmer Warmer, log *logger.Logger) *PremarketWarmJob {
	return &PremarketWarmJob{
		warmer: warmer,
		logger: log,
	}
}

// Name returns the job name
func (j *PremarketWarmJob) Name() string {
	return "premarket_warm"
}

// Schedule returns the cron schedule (every 2 minutes, 08:00-09:58, weekdays)
// 윈도우 밖 tick은 Run에서 건너뜀
func (j *PremarketWarmJob) Schedule() string {
	return "0 */2 8-9 * * 1-5"
}

// Run executes the warm-up
func (j *PremarketWarmJob) Run(ctx context.Context) error {
	if !j.warmer.InWindow() {
		return nil
	}
	if len(j.warmer.LastSymbols()) == 0 {
		j.logger.Debug("No shortlist yet, skipping premarket warm-up")
		return nil
	}

	res := j.warmer.Warm(ctx)
	if res.Status == premarket.StatusError {
		return fmt.Errorf("premarket warm-up: %s", res.Error)
	}

	j.logger.WithFields(map[string]interface{}{
		"status":  res.Status,
		"day":     res.Day,
		"symbols": len(res.Metrics),
	}).Info("Premarket warm-up completed")

	return nil
}
