// backend/src/services/impact_service.go
package services

import (
	"context"

	"github.com/username/reusemarket/backend/src/store"
)

const leaderboardSize = 10

type impactServiceImpl struct {
	store *store.ItemStore
}

// NewImpactService creates the dashboard aggregate service.
func NewImpactService(itemStore *store.ItemStore) ImpactService {
	return &impactServiceImpl{store: itemStore}
}

func (s *impactServiceImpl) CommunityImpact(ctx context.Context) (*store.CommunityImpact, error) {
	return s.store.GetCommunityImpact(ctx)
}

func (s *impactServiceImpl) SellerImpact(ctx context.Context, seller string) (*store.SellerImpact, error) {
	return s.store.GetSellerImpact(ctx, seller)
}

func (s *impactServiceImpl) Leaderboard(ctx context.Context) ([]store.SellerImpact, error) {
	return s.store.GetLeaderboard(ctx, leaderboardSize)
}
