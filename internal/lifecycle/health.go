package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/maks-ard/film-bot/internal/health"
)

// HealthChecker exposes liveness and readiness probes.
type HealthChecker interface {
	Liveness(ctx context.Context) error
	Readiness(ctx context.Context) error
}

// Probes maps the aggregated component checks onto kubernetes-style probes.
type Probes struct {
	checker *health.Checker
	log     *slog.Logger
}

// NewProbes creates probes over the component health checker.
func NewProbes(checker *health.Checker, log *slog.Logger) *Probes {
	if log == nil {
		log = slog.Default()
	}
	return &Probes{checker: checker, log: log}
}

// Liveness reports success while the process is responsive.
func (p *Probes) Liveness(ctx context.Context) error {
	return nil
}

// Readiness fails when any registered component check fails.
func (p *Probes) Readiness(ctx context.Context) error {
	if p.checker == nil {
		return nil
	}

	results := p.checker.Check(ctx)

	var failed []string
	for name, status := range results {
		if status != "OK" {
			failed = append(failed, fmt.Sprintf("%s: %s", name, status))
		}
	}

	if len(failed) > 0 {
		sort.Strings(failed)
		return fmt.Errorf("not ready: %s", strings.Join(failed, "; "))
	}

	return nil
}
