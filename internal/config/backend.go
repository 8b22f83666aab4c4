package config

import (
	"fmt"
	"strings"
)

const (
	EngineOMP    = "omp"
	EngineGreedy = "greedy"
)

// NormalizeEngine validates and canonicalizes the --engine flag.
func NormalizeEngine(raw string) (string, error) {
	engine := strings.ToLower(strings.TrimSpace(raw))
	if engine == "" {
		engine = EngineOMP
	}

	switch engine {
	case EngineOMP, EngineGreedy:
		return engine, nil
	default:
		return "", fmt.Errorf("invalid engine %q (expected %s|%s)", raw, EngineOMP, EngineGreedy)
	}
}
