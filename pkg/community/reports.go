package community

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tagryu/GlobalCampus/internal/logutil"
	"github.com/tagryu/GlobalCampus/pkg/models"
)

// ReportService files moderation reports against posts, comments and users.
type ReportService struct {
	log   *slog.Logger
	store Store
}

// Create files a report. The reporter never learns how it was handled.
func (s *ReportService) Create(ctx context.Context, reporterID uuid.UUID, target models.ReportTarget, targetID uuid.UUID, reason string) (*models.Report, error) {
	switch target {
	case models.ReportTargetPost, models.ReportTargetComment, models.ReportTargetUser:
	default:
		return nil, models.NewValidationError("unknown report target")
	}
	if reason == "" {
		return nil, models.NewValidationError("a reason is required")
	}

	var rows []models.Report
	err := s.store.Insert(ctx, "reports", map[string]any{
		"reporter_id": reporterID.String(),
		"target_type": target,
		"target_id":   targetID.String(),
		"reason":      reason,
	}, &rows)
	if err != nil {
		return nil, logutil.LogAndWrapErr(s.log, "filing report", err)
	}
	if len(rows) == 0 {
		return nil, models.NewStoreError("reports", errNoRowReturned)
	}

	s.log.Info("report filed", "report_id", rows[0].ID, "target_type", target)
	return &rows[0], nil
}
