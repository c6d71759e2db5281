package community

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tagryu/GlobalCampus/internal/logutil"
	"github.com/tagryu/GlobalCampus/pkg/models"
	"github.com/tagryu/GlobalCampus/pkg/provider"
)

// JobService is the job postings board.
type JobService struct {
	log   *slog.Logger
	store Store
}

type jobRow struct {
	models.Job
	User *models.Profile `json:"user"`
}

// List returns postings newest first. A non-empty jobType narrows the list.
func (s *JobService) List(ctx context.Context, jobType models.JobType) ([]models.Job, error) {
	q := provider.NewQuery("jobs").
		Columns("*,user:users(*)").
		Order("created_at", false)
	if jobType != "" {
		q.Eq("job_type", string(jobType))
	}

	var rows []jobRow
	if err := s.store.Select(ctx, q, &rows); err != nil {
		return nil, logutil.LogAndWrapErr(s.log, "listing jobs", err)
	}

	jobs := make([]models.Job, 0, len(rows))
	for _, row := range rows {
		job := row.Job
		job.Poster = row.User
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Get returns one posting, or (nil, nil) when absent.
func (s *JobService) Get(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var rows []jobRow
	q := provider.NewQuery("jobs").
		Columns("*,user:users(*)").
		Eq("id", id.String()).
		Limit(1)
	if err := s.store.Select(ctx, q, &rows); err != nil {
		return nil, logutil.LogAndWrapErr(s.log, "fetching job", err, "job_id", id)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	job := rows[0].Job
	job.Poster = rows[0].User
	return &job, nil
}

// Create publishes a job posting.
func (s *JobService) Create(ctx context.Context, userID uuid.UUID, params models.CreateJobParams) (*models.Job, error) {
	if params.Title == "" || params.CompanyName == "" {
		return nil, models.NewValidationError("job title and company are required")
	}

	var rows []models.Job
	err := s.store.Insert(ctx, "jobs", map[string]any{
		"user_id":         userID.String(),
		"title":           params.Title,
		"company_name":    params.CompanyName,
		"description":     params.Description,
		"location":        params.Location,
		"job_type":        params.JobType,
		"application_url": params.ApplicationURL,
	}, &rows)
	if err != nil {
		return nil, logutil.LogAndWrapErr(s.log, "creating job", err)
	}
	if len(rows) == 0 {
		return nil, models.NewStoreError("jobs", errNoRowReturned)
	}
	return &rows[0], nil
}

// Delete removes the caller's own posting.
func (s *JobService) Delete(ctx context.Context, userID, jobID uuid.UUID) error {
	q := provider.NewQuery("jobs").
		Eq("id", jobID.String()).
		Eq("user_id", userID.String())
	if err := s.store.Delete(ctx, q); err != nil {
		return logutil.LogAndWrapErr(s.log, "deleting job", err, "job_id", jobID)
	}
	return nil
}
