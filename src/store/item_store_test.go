package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/reusemarket/backend/src/models"
)

const (
	testSeller = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	testBuyer  = "0x8617E340B3D01FA5F11F306F4090FD50E238070D"
)

func listedItem(token string) *models.Item {
	return &models.Item{
		Token:       token,
		Name:        "Bamboo Chair",
		Description: "Lightly used bamboo chair",
		Price:       12.5,
		Quantity:    2,
		Seller:      testSeller,
		Status:      models.StatusListed,
		ProductID:   "42",
		Transaction: &models.TransactionAuditRecord{
			Hash:        "0x11f3a4b08eccb0f03e12733384a27f75c9e4aa68f9eabb3d87ac5e21e8f76b2c",
			BlockNumber: "18446744073709551615",
			Events: []models.ParsedEvent{{
				Name: "ProductListed",
				Args: map[string]string{"productId": "42", "quantity": "2"},
			}},
		},
		CarbonFootprint: models.CarbonFootprint{NewProductEmission: 120, ReuseSavings: 95},
		CreatedAt:       time.Now().UTC(),
	}
}

func TestInsertAndGetRoundtrip(t *testing.T) {
	itemStore := newTestStore(t)
	ctx := context.Background()

	original := listedItem("tok-1")
	require.NoError(t, itemStore.Insert(ctx, original))

	got, err := itemStore.GetByToken(ctx, "tok-1")
	require.NoError(t, err)

	assert.Equal(t, original.Token, got.Token)
	assert.Equal(t, original.Name, got.Name)
	assert.Equal(t, models.StatusListed, got.Status)
	assert.Equal(t, "42", got.ProductID)
	require.NotNil(t, got.Transaction)
	assert.Equal(t, original.Transaction.Hash, got.Transaction.Hash)
	assert.Equal(t, "18446744073709551615", got.Transaction.BlockNumber)
	require.Len(t, got.Transaction.Events, 1)
	assert.Equal(t, "42", got.Transaction.Events[0].Args["productId"])
	assert.Nil(t, got.SoldAt)
	assert.Empty(t, got.Buyer)
	assert.Equal(t, 25.0, got.CarbonFootprint.NetImpact)
}

func TestInsertDuplicateToken(t *testing.T) {
	itemStore := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, itemStore.Insert(ctx, listedItem("tok-1")))

	err := itemStore.Insert(ctx, listedItem("tok-1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrPersistence)
	assert.Contains(t, err.Error(), "duplicate token")
}

func TestInsertRejectsInvalidItem(t *testing.T) {
	itemStore := newTestStore(t)
	ctx := context.Background()

	invalid := listedItem("tok-1")
	invalid.Quantity = 0

	err := itemStore.Insert(ctx, invalid)
	assert.ErrorIs(t, err, models.ErrPersistence)

	// The rejected item must never become visible.
	_, err = itemStore.GetByToken(ctx, "tok-1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGetMissingItem(t *testing.T) {
	itemStore := newTestStore(t)

	_, err := itemStore.GetByToken(context.Background(), "nope")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateMissingItem(t *testing.T) {
	itemStore := newTestStore(t)

	err := itemStore.Update(context.Background(), listedItem("ghost"))
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateRejectsInvalidWrite(t *testing.T) {
	itemStore := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, itemStore.Insert(ctx, listedItem("tok-1")))

	// Sold without buyer violates the joint invariant; the row must
	// keep its previous state.
	broken := listedItem("tok-1")
	broken.Status = models.StatusSold
	broken.Quantity = 0

	err := itemStore.Update(ctx, broken)
	assert.ErrorIs(t, err, models.ErrPersistence)

	got, err := itemStore.GetByToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusListed, got.Status)
	assert.Equal(t, int64(2), got.Quantity)
}

func TestUpdateIfStatusSwap(t *testing.T) {
	itemStore := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, itemStore.Insert(ctx, listedItem("tok-1")))

	soldAt := time.Now().UTC()
	settled := listedItem("tok-1")
	settled.Status = models.StatusSold
	settled.Quantity = 0
	settled.Buyer = testBuyer
	settled.SoldAt = &soldAt

	require.NoError(t, itemStore.UpdateIfStatus(ctx, settled, models.StatusListed))

	got, err := itemStore.GetByToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSold, got.Status)
	assert.Equal(t, int64(0), got.Quantity)
	assert.Equal(t, testBuyer, got.Buyer)
	require.NotNil(t, got.SoldAt)

	// Second swap loses: the row is no longer listed.
	err = itemStore.UpdateIfStatus(ctx, settled, models.StatusListed)
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestDelete(t *testing.T) {
	itemStore := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, itemStore.Insert(ctx, listedItem("tok-1")))
	require.NoError(t, itemStore.Delete(ctx, "tok-1"))

	_, err := itemStore.GetByToken(ctx, "tok-1")
	assert.ErrorIs(t, err, models.ErrNotFound)

	err = itemStore.Delete(ctx, "tok-1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestListBySellerIsCaseInsensitive(t *testing.T) {
	itemStore := newTestStore(t)
	ctx := context.Background()

	first := listedItem("tok-1")
	second := listedItem("tok-2")
	second.Seller = "0x8617e340b3d01fa5f11f306f4090fd50e238070d"
	require.NoError(t, itemStore.Insert(ctx, first))
	require.NoError(t, itemStore.Insert(ctx, second))

	mine, err := itemStore.ListBySeller(ctx, "0x5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "tok-1", mine[0].Token)

	none, err := itemStore.ListBySeller(ctx, testBuyer)
	require.NoError(t, err)
	require.Len(t, none, 1)
	assert.Equal(t, "tok-2", none[0].Token)
}

func TestListByBuyerOnlySoldItems(t *testing.T) {
	itemStore := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, itemStore.Insert(ctx, listedItem("tok-listed")))

	older := time.Now().UTC().Add(-time.Hour)
	newer := time.Now().UTC()
	for token, soldAt := range map[string]time.Time{"tok-old": older, "tok-new": newer} {
		sold := listedItem(token)
		sold.Status = models.StatusSold
		sold.Quantity = 0
		sold.Buyer = testBuyer
		ts := soldAt
		sold.SoldAt = &ts
		require.NoError(t, itemStore.Insert(ctx, sold))
	}

	purchases, err := itemStore.ListByBuyer(ctx, testBuyer)
	require.NoError(t, err)
	require.Len(t, purchases, 2)
	assert.Equal(t, "tok-new", purchases[0].Token)
	assert.Equal(t, "tok-old", purchases[1].Token)

	empty, err := itemStore.ListByBuyer(ctx, testSeller)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
