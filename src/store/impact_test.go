package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/reusemarket/backend/src/models"
)

func seedImpactData(t *testing.T, itemStore *ItemStore) {
	t.Helper()
	ctx := context.Background()

	// Two listed items and one sold item for testSeller, one listed
	// item for testBuyer acting as a second seller.
	for _, token := range []string{"tok-1", "tok-2"} {
		item := listedItem(token)
		item.CarbonFootprint = models.CarbonFootprint{NewProductEmission: 100, ReuseSavings: 80}
		require.NoError(t, itemStore.Insert(ctx, item))
	}

	soldAt := time.Now().UTC()
	sold := listedItem("tok-sold")
	sold.Status = models.StatusSold
	sold.Quantity = 0
	sold.Buyer = testBuyer
	sold.SoldAt = &soldAt
	sold.CarbonFootprint = models.CarbonFootprint{NewProductEmission: 50, ReuseSavings: 40}
	require.NoError(t, itemStore.Insert(ctx, sold))

	other := listedItem("tok-other")
	other.Seller = testBuyer
	other.CarbonFootprint = models.CarbonFootprint{NewProductEmission: 10, ReuseSavings: 5}
	require.NoError(t, itemStore.Insert(ctx, other))
}

func TestGetCommunityImpact(t *testing.T) {
	itemStore := newTestStore(t)
	seedImpactData(t, itemStore)

	impact, err := itemStore.GetCommunityImpact(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(4), impact.TotalItems)
	assert.Equal(t, int64(1), impact.TotalSold)
	assert.Equal(t, int64(2), impact.ActiveSellers)
	assert.InDelta(t, 205.0, impact.TotalSavings, 1e-9)
	assert.InDelta(t, 260.0, impact.TotalEmissions, 1e-9)
}

func TestGetSellerImpact(t *testing.T) {
	itemStore := newTestStore(t)
	seedImpactData(t, itemStore)

	impact, err := itemStore.GetSellerImpact(context.Background(), testSeller)
	require.NoError(t, err)

	assert.Equal(t, testSeller, impact.Seller)
	assert.Equal(t, int64(3), impact.ItemsListed)
	assert.Equal(t, int64(1), impact.ItemsSold)
	assert.InDelta(t, 200.0, impact.TotalSavings, 1e-9)
	assert.InDelta(t, 200.0*0.6+3*0.2+1*0.2, impact.ImpactScore, 1e-9)

	require.NotEmpty(t, impact.Monthly)
	assert.Equal(t, time.Now().UTC().Format("2006-01"), impact.Monthly[len(impact.Monthly)-1].Month)
}

func TestGetLeaderboardOrdering(t *testing.T) {
	itemStore := newTestStore(t)
	seedImpactData(t, itemStore)

	leaderboard, err := itemStore.GetLeaderboard(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, leaderboard, 2)

	assert.Equal(t, testSeller, leaderboard[0].Seller)
	assert.Equal(t, testBuyer, leaderboard[1].Seller)
	assert.Greater(t, leaderboard[0].ImpactScore, leaderboard[1].ImpactScore)
}

func TestGetLeaderboardLimit(t *testing.T) {
	itemStore := newTestStore(t)
	seedImpactData(t, itemStore)

	leaderboard, err := itemStore.GetLeaderboard(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, leaderboard, 1)
	assert.Equal(t, testSeller, leaderboard[0].Seller)
}
