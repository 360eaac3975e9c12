package bootstrap

import (
	"context"
	"time"

	"ipscope/internal/logger"
)

// Result contains all bootstrap findings
type Result struct {
	Timestamp      time.Time      `json:"timestamp"`
	Duration       time.Duration  `json:"duration"`
	Evidence       *EvidenceSet   `json:"-"`
	Recommendation Recommendation `json:"recommendation"`
}

// Run probes the host and synthesizes a recommendation
func Run(ctx context.Context, probes Probes, log logger.Logger) *Result {
	log = log.WithComponent("bootstrap")
	start := time.Now()

	evidence := NewEvidenceSet()
	evidence.Add(probes.DetectPermissions(ctx)...)
	evidence.Add(probes.DetectNetwork()...)

	rec := Synthesize(evidence)
	result := &Result{
		Timestamp:      start,
		Duration:       time.Since(start),
		Evidence:       evidence,
		Recommendation: rec,
	}

	log.Info().
		Str("mode", string(rec.Mode)).
		Float64("confidence", rec.Confidence).
		Bool("privileged", rec.Privileged).
		Strs("subnets", rec.Subnets).
		Int("evidence", evidence.Count()).
		Dur("duration", result.Duration).
		Msg("Host inspected")
	for _, r := range rec.Reasons {
		log.Debug().Msg(r)
	}
	for _, w := range rec.Warnings {
		log.Warn().Msg(w)
	}

	return result
}
