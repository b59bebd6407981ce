package config

// MergeConfig is the top-level YAML structure of a merge run.
type MergeConfig struct {
	Version    string         `yaml:"version"`
	Input      InputConf      `yaml:"input"`
	Engine     EngineConf     `yaml:"engine"`
	Acceptance AcceptanceConf `yaml:"acceptance"`
	Output     OutputConf     `yaml:"output"`
	Status     StatusConf     `yaml:"status"`
}

// InputConf locates the base graph and the initial communities.
type InputConf struct {
	Graph          string `yaml:"graph"`
	Representation string `yaml:"representation"` // list | matrix
	Communities    string `yaml:"communities"`
	Format         string `yaml:"format"` // nodelist | scored
	Skip           int    `yaml:"skip"`   // keep every skip-th community
}

// EngineConf holds tunable concurrency settings.
type EngineConf struct {
	Workers           int    `yaml:"workers"`
	WalltimeSeconds   int    `yaml:"walltime_seconds"`
	CandidateAttempts int    `yaml:"candidate_attempts"`
	MaxBackoffMs      int    `yaml:"max_backoff_ms"`
	Seed              uint64 `yaml:"seed"`
}

// AcceptanceConf decides when a pair is merged. It is the only section
// that may change while a run is in progress.
type AcceptanceConf struct {
	NodeOverlap    float64 `yaml:"node_overlap"`
	EdgeOverlap    float64 `yaml:"edge_overlap"`
	MinImprovement float64 `yaml:"min_improvement"`
	DeltaStrategy  string  `yaml:"delta_strategy"` // average | larger
}

// OutputConf says where final state is persisted.
type OutputConf struct {
	Dir      string `yaml:"dir"`
	Compress bool   `yaml:"compress"`
}

// StatusConf configures the optional HTTP status server.
type StatusConf struct {
	Addr string `yaml:"addr"` // empty = disabled
}
