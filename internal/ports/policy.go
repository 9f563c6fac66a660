package ports

import "time"

// Policy holds the routing and fetch thresholds shared by both tiers.
type Policy struct {
	RoutingThreshold       int           `yaml:"routing_threshold" env:"AEGIS_ROUTING_THRESHOLD, overwrite"`
	FetchTimeout           time.Duration `yaml:"fetch_timeout" env:"AEGIS_FETCH_TIMEOUT, overwrite"`
	FastPathBudget         time.Duration `yaml:"fast_path_budget" env:"AEGIS_FAST_PATH_BUDGET, overwrite"`
	RowLimit               int           `yaml:"row_limit" env:"AEGIS_ROW_LIMIT, overwrite"`
	TopN                   int           `yaml:"top_n" env:"AEGIS_TOP_N, overwrite"`
	ExpectedRecordsPerHour float64       `yaml:"expected_records_per_hour" env:"AEGIS_EXPECTED_RECORDS_PER_HOUR, overwrite"`

	// Strict turns programming errors (an unknown analysis type reaching the
	// orchestrator) into panics instead of an oee_analysis fallback.
	Strict bool `yaml:"strict" env:"AEGIS_STRICT, overwrite"`
}

const (
	DefaultRoutingThreshold       = 8
	DefaultFetchTimeout           = 5 * time.Second
	DefaultFastPathBudget         = 80 * time.Millisecond
	DefaultRowLimit               = 5_000
	DefaultTopN                   = 10
	DefaultExpectedRecordsPerHour = 1.0
)

// WithDefaults returns a copy of p with zero values replaced.
func (p Policy) WithDefaults() Policy {
	if p.RoutingThreshold <= 0 {
		p.RoutingThreshold = DefaultRoutingThreshold
	}
	if p.FetchTimeout <= 0 {
		p.FetchTimeout = DefaultFetchTimeout
	}
	if p.FastPathBudget <= 0 {
		p.FastPathBudget = DefaultFastPathBudget
	}
	if p.RowLimit <= 0 {
		p.RowLimit = DefaultRowLimit
	}
	if p.TopN <= 0 {
		p.TopN = DefaultTopN
	}
	if p.ExpectedRecordsPerHour <= 0 {
		p.ExpectedRecordsPerHour = DefaultExpectedRecordsPerHour
	}
	return p
}
