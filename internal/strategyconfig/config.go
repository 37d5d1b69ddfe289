package strategyconfig

// Config는 top gainers 워치리스트 선정 정책 전체 설정
// ⭐ SSOT: 모든 수치 임계값은 여기서만 정의
type Config struct {
	Meta       Meta       `yaml:"meta" json:"meta"`
	Normalize  Normalize  `yaml:"normalize" json:"normalize"`
	Enrich     Enrich     `yaml:"enrich" json:"enrich"`
	Filter     Filter     `yaml:"filter" json:"filter"`
	Preference Preference `yaml:"preference" json:"preference"`
	Tilt       Tilt       `yaml:"tilt" json:"tilt"`
	Premarket  Premarket  `yaml:"premarket" json:"premarket"`
	Ranking    Ranking    `yaml:"ranking" json:"ranking"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id" validate:"required"`
	Version    string `yaml:"version" json:"version" validate:"required"`
}

// Normalize 입력 정규화
type Normalize struct {
	MaxRows int `yaml:"max_rows" json:"max_rows" validate:"min=1,max=200"`
}

// Enrich 외부 조회 대상 풀
type Enrich struct {
	Limit         int `yaml:"limit" json:"limit" validate:"min=1,max=50"`
	HeadlineLimit int `yaml:"headline_limit" json:"headline_limit" validate:"min=0,max=5"`
}

// Filter 하드 필터 (위반 시 제외)
type Filter struct {
	MinAvgVolume    float64 `yaml:"min_avg_volume" json:"min_avg_volume" validate:"gte=0"`
	MinRelVolume    float64 `yaml:"min_rel_volume" json:"min_rel_volume" validate:"gte=0"`
	MinDollarVolume float64 `yaml:"min_dollar_volume" json:"min_dollar_volume" validate:"gte=0"`
	PriceMin        float64 `yaml:"price_min" json:"price_min" validate:"gt=0"`
	PriceMax        float64 `yaml:"price_max" json:"price_max" validate:"gtfield=PriceMin"`
	MinFloat        float64 `yaml:"min_float" json:"min_float" validate:"gt=0"`
}

// Preference soft score 가중치 + 선호 정책 상한
type Preference struct {
	LowFloatCeiling float64     `yaml:"low_float_ceiling" json:"low_float_ceiling" validate:"gt=0"`
	SmallCapCeiling float64     `yaml:"small_cap_ceiling" json:"small_cap_ceiling" validate:"gt=0"`
	Weights         SoftWeights `yaml:"weights" json:"weights"`
}

// SoftWeights 합계 1.0
type SoftWeights struct {
	Float     float64 `yaml:"float" json:"float" validate:"gte=0,lte=1"`
	Employees float64 `yaml:"employees" json:"employees" validate:"gte=0,lte=1"`
	AvgVolume float64 `yaml:"avg_volume" json:"avg_volume" validate:"gte=0,lte=1"`
}

// Tilt 업종/국가 보정 (보조 신호, 모멘텀/유동성 대비 비지배적)
type Tilt struct {
	IndustryBonus    float64  `yaml:"industry_bonus" json:"industry_bonus" validate:"gte=0,lte=0.2"`
	DomesticBonus    float64  `yaml:"domestic_bonus" json:"domestic_bonus" validate:"gte=0,lte=0.2"`
	ForeignPenalty   float64  `yaml:"foreign_penalty" json:"foreign_penalty" validate:"gte=0,lte=0.2"`
	DomesticCountry  string   `yaml:"domestic_country" json:"domestic_country" validate:"required,len=2"`
	FlaggedCountries []string `yaml:"flagged_countries" json:"flagged_countries" validate:"dive,len=2"`
}

// Premarket 아침 지표 합성 가중치
type Premarket struct {
	VolumeWeight    float64 `yaml:"volume_weight" json:"volume_weight" validate:"gte=0,lte=1"`
	RangeWeight     float64 `yaml:"range_weight" json:"range_weight" validate:"gte=0,lte=1"`
	UpMinutesWeight float64 `yaml:"up_minutes_weight" json:"up_minutes_weight" validate:"gte=0,lte=1"`
}

// Ranking shortlist + 최종 선정 수
type Ranking struct {
	ShortlistSize int `yaml:"shortlist_size" json:"shortlist_size" validate:"min=2,max=20"`
	MaxPicks      int `yaml:"max_picks" json:"max_picks" validate:"min=1,max=2"`
}

// Default returns the built-in policy
// SSOT: config/strategy/top_gainers.yaml 과 동일하게 유지
func Default() *Config {
	return &Config{
		Meta: Meta{
			StrategyID: "us_top_gainers_watch",
			Version:    "1",
		},
		Normalize: Normalize{MaxRows: 20},
		Enrich: Enrich{
			Limit:         12,
			HeadlineLimit: 5,
		},
		Filter: Filter{
			MinAvgVolume:    300_000,
			MinRelVolume:    2.0,
			MinDollarVolume: 5_000_000,
			PriceMin:        1,
			PriceMax:        50,
			MinFloat:        2_000_000,
		},
		Preference: Preference{
			LowFloatCeiling: 20_000_000,
			SmallCapCeiling: 2_000_000_000,
			Weights: SoftWeights{
				Float:     0.60,
				Employees: 0.25,
				AvgVolume: 0.15,
			},
		},
		Tilt: Tilt{
			IndustryBonus:    0.05,
			DomesticBonus:    0.03,
			ForeignPenalty:   0.05,
			DomesticCountry:  "US",
			FlaggedCountries: []string{"CN", "HK"},
		},
		Premarket: Premarket{
			VolumeWeight:    0.4,
			RangeWeight:     0.4,
			UpMinutesWeight: 0.2,
		},
		Ranking: Ranking{
			ShortlistSize: 8,
			MaxPicks:      2,
		},
	}
}
