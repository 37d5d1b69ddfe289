package strategyconfig

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var validate = validator.New()

// Validate checks all required constraints
// 1) struct tag 검증 2) 필드 간 제약 검증
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return ValidationError{
				Field:   strings.ToLower(fe.Namespace()),
				Message: fmt.Sprintf("failed '%s' (%s)", fe.Tag(), fe.Param()),
			}
		}
		return err
	}

	w := cfg.Preference.Weights
	if err := validateWeightsSum([]float64{w.Float, w.Employees, w.AvgVolume}, 1.0, 1e-6); err != nil {
		return ValidationError{"preference.weights", err.Error()}
	}

	p := cfg.Premarket
	if err := validateWeightsSum([]float64{p.VolumeWeight, p.RangeWeight, p.UpMinutesWeight}, 1.0, 1e-6); err != nil {
		return ValidationError{"premarket", err.Error()}
	}

	// 선호 정책: low float 상한은 하드 필터 최소 float 이상
	if cfg.Preference.LowFloatCeiling < cfg.Filter.MinFloat {
		return ValidationError{"preference.low_float_ceiling", "must be >= filter.min_float"}
	}

	// shortlist는 최종 선정 수 이상
	if cfg.Ranking.ShortlistSize < cfg.Ranking.MaxPicks {
		return ValidationError{"ranking.shortlist_size", "must be >= ranking.max_picks"}
	}
	if cfg.Enrich.Limit < cfg.Ranking.MaxPicks {
		return ValidationError{"enrich.limit", "must be >= ranking.max_picks"}
	}

	for _, c := range cfg.Tilt.FlaggedCountries {
		if strings.EqualFold(c, cfg.Tilt.DomesticCountry) {
			return ValidationError{"tilt.flagged_countries", "must not contain domestic_country"}
		}
	}

	return nil
}

func validateWeightsSum(weights []float64, target, eps float64) error {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if math.Abs(sum-target) > eps {
		return fmt.Errorf("weights sum must be %.2f, got %.6f", target, sum)
	}
	return nil
}
