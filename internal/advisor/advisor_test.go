package advisor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-watch/internal/contracts"
	"github.com/wonny/aegis-watch/internal/strategyconfig"
	"github.com/wonny/aegis-watch/pkg/config"
	"github.com/wonny/aegis-watch/pkg/logger"
)

type fakeProvider struct {
	reply  string
	err    error
	block  bool
	system string
	user   string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(ctx context.Context, system, user string) (string, error) {
	f.system, f.user = system, user
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.reply, f.err
}

func f(v float64) *float64 { return contracts.Float64(v) }

func scored(ticker string, float float64) contracts.ScoredCandidate {
	c := contracts.ScoredCandidate{}
	c.Ticker = ticker
	c.Price = f(4.2)
	c.ChangePct = f(38.5)
	c.Float = f(float)
	c.MarketCap = f(4.2 * float)
	c.Volume = f(9_000_000)
	c.DollarVolume = f(37_800_000)
	c.Industry = "Biotechnology"
	c.Country = "US"
	c.Headlines = []string{"Receives FDA approval", "Prices public offering"}
	return c
}

func request() Request {
	return Request{
		Table:  []contracts.ScoredCandidate{scored("ABCD", 8_000_000), scored("EFGH", 40_000_000)},
		Winner: contracts.IndustryWinner{Label: "Biotechnology", Count: 2, Members: []string{"ABCD", "EFGH"}},
		Policy: strategyconfig.Default(),
		TopN:   2,
	}
}

func TestBuildPrompt(t *testing.T) {
	req := request()
	req.Table[0].PMVolume = f(1_200_000)
	req.Table[0].PMRangePct = f(12.5)
	req.Table[0].PMScore = f(0.8)

	p := BuildPrompt(req.Table, req.Winner, req.Policy, 1)

	assert.Contains(t, p.System, "at most 1 tickers")
	assert.Contains(t, p.System, "below 2.00M shares")
	assert.Contains(t, p.User, "Leading group today: Biotechnology (2 candidates: ABCD, EFGH)")

	lines := strings.Split(p.User, "\n")
	require.GreaterOrEqual(t, len(lines), 4)
	assert.True(t, strings.HasPrefix(lines[2], "1. ABCD | px 4.20 | chg +38.5%"))
	assert.Contains(t, lines[2], "float 8.00M")
	assert.Contains(t, lines[2], "pm range +12.5% vol 1.20M")
	assert.Contains(t, lines[2], "flags low-float,small-cap")
	assert.Contains(t, lines[3], `"Receives FDA approval"`)

	// 두 번째 후보는 프리마켓 데이터 없음
	assert.Contains(t, p.User, "2. EFGH |")
	assert.Contains(t, p.User, "pm n/a")
	assert.Contains(t, p.User, "margin n/a")
}

func TestService_Advise(t *testing.T) {
	provider := &fakeProvider{reply: `{"picks":["EFGH","ABCD"],"reasons":[{"ticker":"EFGH","bullets":["relVol"]}],"risk":"gap fill"}`}
	svc := NewService(provider, time.Second, logger.NewNop(), nil)

	res := svc.Advise(context.Background(), request())

	assert.Equal(t, "fake", res.Provider)
	assert.Equal(t, []string{"EFGH", "ABCD"}, res.Picks)
	assert.Equal(t, ProvenanceStrict, res.Provenance)
	assert.Equal(t, "gap fill", res.Risk)
	assert.Empty(t, res.Error)
	assert.Contains(t, provider.user, "ABCD")
	assert.NotEmpty(t, provider.system)
}

func TestService_AdviseTimeout(t *testing.T) {
	svc := NewService(&fakeProvider{block: true}, 20*time.Millisecond, logger.NewNop(), nil)

	res := svc.Advise(context.Background(), request())

	assert.Equal(t, ProvenanceFailed, res.Provenance)
	assert.Empty(t, res.Picks)
	assert.Contains(t, res.Error, contracts.ErrUpstreamTimeout.Error())
}

func TestService_AdviseProviderError(t *testing.T) {
	svc := NewService(&fakeProvider{err: errors.New("503")}, time.Second, logger.NewNop(), nil)

	res := svc.Advise(context.Background(), request())

	assert.Equal(t, ProvenanceFailed, res.Provenance)
	assert.Contains(t, res.Error, "503")
}

func TestService_AdviseMalformed(t *testing.T) {
	svc := NewService(&fakeProvider{reply: "sorry, cannot help"}, time.Second, logger.NewNop(), nil)

	res := svc.Advise(context.Background(), request())

	assert.Equal(t, ProvenanceFailed, res.Provenance)
	assert.Contains(t, res.Error, contracts.ErrMalformedAdvisorOutput.Error())
	assert.Equal(t, "sorry, cannot help", res.Raw)
}

func TestService_Ready(t *testing.T) {
	var missing *contracts.ConfigMissingError

	err := NewService(nil, time.Second, logger.NewNop(), nil).Ready()
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "ADVISOR_API_KEY", missing.Setting)
	assert.ErrorIs(t, err, contracts.ErrConfigurationMissing)

	assert.NoError(t, NewService(&fakeProvider{}, time.Second, logger.NewNop(), nil).Ready())
}

func TestNewProvider(t *testing.T) {
	_, err := NewProvider(context.Background(), config.AdvisorConfig{Provider: "openai"})
	assert.ErrorIs(t, err, contracts.ErrConfigurationMissing)

	p, err := NewProvider(context.Background(), config.AdvisorConfig{Provider: "openai", APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	p, err = NewProvider(context.Background(), config.AdvisorConfig{Provider: "claude", APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, "claude", p.Name())

	_, err = NewProvider(context.Background(), config.AdvisorConfig{Provider: "llama", APIKey: "x"})
	assert.Error(t, err)
}
