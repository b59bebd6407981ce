package config

import (
	"fmt"
	"strings"
)

// Validate checks the config for:
//   - Required fields
//   - Thresholds outside their meaningful ranges
//   - Unknown enum values; strategies are checked against knownStrategies
func Validate(cfg *MergeConfig, knownStrategies []string) error {
	var errs []string
	if cfg.Version == "" {
		errs = append(errs, "version is required")
	}

	in := cfg.Input
	if in.Graph == "" {
		errs = append(errs, "input.graph is required")
	}
	if in.Communities == "" {
		errs = append(errs, "input.communities is required")
	}
	if in.Representation != "list" && in.Representation != "matrix" {
		errs = append(errs, fmt.Sprintf("input.representation must be list or matrix, got %q", in.Representation))
	}
	if in.Format != "nodelist" && in.Format != "scored" {
		errs = append(errs, fmt.Sprintf("input.format must be nodelist or scored, got %q", in.Format))
	}
	if in.Skip < 1 {
		errs = append(errs, fmt.Sprintf("input.skip must be at least 1, got %d", in.Skip))
	}

	en := cfg.Engine
	if en.Workers < 1 {
		errs = append(errs, fmt.Sprintf("engine.workers must be at least 1, got %d", en.Workers))
	}
	if en.WalltimeSeconds < 1 {
		errs = append(errs, fmt.Sprintf("engine.walltime_seconds must be at least 1, got %d", en.WalltimeSeconds))
	}
	if en.CandidateAttempts < 1 {
		errs = append(errs, fmt.Sprintf("engine.candidate_attempts must be at least 1, got %d", en.CandidateAttempts))
	}
	if en.MaxBackoffMs < 1 {
		errs = append(errs, fmt.Sprintf("engine.max_backoff_ms must be at least 1, got %d", en.MaxBackoffMs))
	}

	errs = append(errs, validateAcceptance(cfg.Acceptance, knownStrategies)...)

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ValidateAcceptance checks only the hot-reloadable section.
func ValidateAcceptance(acc AcceptanceConf, knownStrategies []string) error {
	if errs := validateAcceptance(acc, knownStrategies); len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validateAcceptance(acc AcceptanceConf, knownStrategies []string) []string {
	var errs []string
	if acc.NodeOverlap < 0 || acc.NodeOverlap > 1 {
		errs = append(errs, fmt.Sprintf("acceptance.node_overlap must be within [0, 1], got %v", acc.NodeOverlap))
	}
	if acc.EdgeOverlap < 0 {
		errs = append(errs, fmt.Sprintf("acceptance.edge_overlap must not be negative, got %v", acc.EdgeOverlap))
	}
	known := false
	for _, s := range knownStrategies {
		if s == acc.DeltaStrategy {
			known = true
			break
		}
	}
	if !known {
		errs = append(errs, fmt.Sprintf("acceptance.delta_strategy %q is not one of %s", acc.DeltaStrategy, strings.Join(knownStrategies, ", ")))
	}
	return errs
}
