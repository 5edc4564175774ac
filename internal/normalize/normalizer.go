// Package normalize converts the heterogeneous branch and ATM payloads served
// upstream (Open Banking documents, flat lists, wrapper objects) into records.
package normalize

import (
	"context"
	"log/slog"

	"github.com/UnknownOlympus/branchmap/internal/metrics"
	"github.com/UnknownOlympus/branchmap/internal/models"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Normalizer runs the normalizers and reports dropped items through logs and metrics.
type Normalizer struct {
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewNormalizer returns a Normalizer. metrics may be nil.
func NewNormalizer(log *slog.Logger, metrics *metrics.Metrics) *Normalizer {
	return &Normalizer{log: log, metrics: metrics}
}

// Branches normalizes a branch payload.
func (n *Normalizer) Branches(ctx context.Context, payload any) ([]models.Branch, error) {
	branches, report, err := Branches(payload)
	if err != nil {
		n.log.ErrorContext(ctx, "Failed to normalize payload", "resource", ResourceBranches, "error", err)
		return nil, err
	}
	n.report(ctx, ResourceBranches, report)

	return branches, nil
}

// ATMs normalizes an ATM payload.
func (n *Normalizer) ATMs(ctx context.Context, payload any) ([]models.ATM, error) {
	atms, report, err := ATMs(payload)
	if err != nil {
		n.log.ErrorContext(ctx, "Failed to normalize payload", "resource", ResourceATMs, "error", err)
		return nil, err
	}
	n.report(ctx, ResourceATMs, report)

	return atms, nil
}

func (n *Normalizer) report(ctx context.Context, resource string, report Report) {
	if skipped := report.Dropped + report.Duplicates; skipped > 0 {
		n.log.WarnContext(ctx, "Dropped incomplete payload items",
			"resource", resource,
			"kept", report.Kept,
			"skipped", skipped,
			"duplicates", report.Duplicates,
		)
		if n.metrics != nil {
			n.metrics.ItemsDropped.WithLabelValues(resource, "invalid").Add(float64(report.Dropped))
			n.metrics.ItemsDropped.WithLabelValues(resource, "duplicate").Add(float64(report.Duplicates))
		}
	}

	n.log.DebugContext(ctx, "Parsed payload", "resource", resource, "items", report.Kept)
}
