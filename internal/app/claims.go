package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/chrisjannenga/review-insights/internal/domain"
)

// ClaimService binds places to owning users and snapshots reviews for
// claimed locations.
type ClaimService struct {
	repo     domain.ClaimRepository
	analysis *AnalysisService
}

func NewClaimService(r domain.ClaimRepository, a *AnalysisService) *ClaimService {
	return &ClaimService{repo: r, analysis: a}
}

// Toggle claims the place for the user, or releases an existing claim.
// On a fresh claim the location's classified reviews are snapshotted into
// the store; snapshot failure does not undo the claim.
func (s *ClaimService) Toggle(ctx context.Context, userID, placeID, name, address string) (bool, error) {
	if userID == "" || placeID == "" {
		return false, fmt.Errorf("user id and place id are required")
	}
	claimed, err := s.repo.ToggleClaim(ctx, domain.Claim{
		UserID:  userID,
		PlaceID: placeID,
		Name:    name,
		Address: address,
	})
	if err != nil {
		return false, err
	}
	if claimed && s.analysis != nil {
		if d, derr := s.analysis.PlaceDetails(ctx, placeID); derr != nil {
			log.Warn().Err(derr).Str("place", placeID).Msg("review snapshot skipped")
		} else if err := s.repo.UpsertReviews(ctx, placeID, d.Place.Reviews); err != nil {
			log.Warn().Err(err).Str("place", placeID).Msg("review snapshot failed")
		}
	}
	return claimed, nil
}

func (s *ClaimService) IsClaimed(ctx context.Context, userID, placeID string) (bool, error) {
	return s.repo.IsClaimed(ctx, userID, placeID)
}

func (s *ClaimService) List(ctx context.Context, userID string) ([]domain.Claim, error) {
	return s.repo.ListClaims(ctx, userID)
}
