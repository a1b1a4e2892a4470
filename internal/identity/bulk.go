package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lukman83/beast-antidetect/internal/models"
	"github.com/lukman83/beast-antidetect/internal/progress"
	"github.com/lukman83/beast-antidetect/internal/stealth"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ParsePolicy maps a policy name to a BulkPolicy. An empty name selects abort.
func ParsePolicy(name string) (models.BulkPolicy, error) {
	switch models.BulkPolicy(name) {
	case "", models.BulkAbort:
		return models.BulkAbort, nil
	case models.BulkCollect:
		return models.BulkCollect, nil
	default:
		return "", fmt.Errorf("unknown bulk policy %q (want abort or collect)", name)
	}
}

// RunBulk queries the exit IP for each spec in order, one session at a
// time. Item k+1 starts only after item k's session is closed.
//
// Under BulkAbort the first failure ends the run: no entries are returned
// and the error is a *models.BulkAbortError carrying the completed count.
// Under BulkCollect failures are recorded next to the successful entries.
// Cancellation of ctx always ends the run with a *models.BulkAbortError.
func (s *Service) RunBulk(ctx context.Context, specs []models.LaunchSpec, policy models.BulkPolicy) (*models.BulkReport, error) {
	if policy == "" {
		var err error
		if policy, err = ParsePolicy(s.cfg.BulkPolicy); err != nil {
			return nil, err
		}
	}
	if _, err := ParsePolicy(string(policy)); err != nil {
		return nil, err
	}

	limiter := s.bulkLimiter()
	delay := stealth.NewHumanDelay(stealth.DelayProfile(s.cfg.DelayProfile))
	report := &models.BulkReport{Results: []models.BulkEntry{}}

	for i, spec := range specs {
		if spec.ProfileID == "" {
			spec.ProfileID = uuid.NewString()
		}
		abort := func(err error) (*models.BulkReport, error) {
			s.logger.Warn("bulk aborted",
				zap.Int("index", i),
				zap.String("profile", spec.ProfileID),
				zap.Int("completed", len(report.Results)),
				zap.Error(err))
			return nil, &models.BulkAbortError{
				Index:     i,
				ProfileID: spec.ProfileID,
				Completed: len(report.Results),
				Err:       err,
			}
		}

		if i > 0 {
			if err := delay.Wait(ctx); err != nil {
				return abort(err)
			}
		}
		if err := limiter.Wait(ctx); err != nil {
			return abort(err)
		}

		progress.Reportf(ctx, "Profile %d/%d (%s)", i+1, len(specs), spec.ProfileID)
		res, err := s.QueryIP(ctx, spec)
		if err != nil {
			if policy == models.BulkAbort || ctx.Err() != nil {
				return abort(err)
			}
			s.logger.Warn("bulk item failed", zap.Int("index", i), zap.String("profile", spec.ProfileID), zap.Error(err))
			report.Failures = append(report.Failures, models.BulkFailure{
				Index:     i,
				ProfileID: spec.ProfileID,
				Error:     err.Error(),
			})
			continue
		}

		report.Results = append(report.Results, models.BulkEntry{
			ProfileID:   spec.ProfileID,
			Fingerprint: res.Fingerprint,
			IP:          res.IP,
		})
	}
	return report, nil
}

func (s *Service) bulkLimiter() *rate.Limiter {
	burst := s.cfg.BulkBurst
	if burst < 1 {
		burst = 1
	}
	if s.cfg.BulkRate <= 0 {
		return rate.NewLimiter(rate.Inf, burst)
	}
	return rate.NewLimiter(rate.Limit(s.cfg.BulkRate), burst)
}
