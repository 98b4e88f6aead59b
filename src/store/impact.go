package store

import (
	"context"
	"fmt"

	"github.com/username/reusemarket/backend/src/models"
)

// CommunityImpact aggregates marketplace-wide reuse figures.
type CommunityImpact struct {
	TotalItems     int64   `json:"totalItems"`
	TotalSold      int64   `json:"totalSold"`
	ActiveSellers  int64   `json:"activeSellers"`
	TotalSavings   float64 `json:"totalSavings"`
	TotalEmissions float64 `json:"totalEmissions"`
}

// MonthlyImpact is one month of a seller's activity.
type MonthlyImpact struct {
	Month        string  `json:"month"` // YYYY-MM
	TotalSavings float64 `json:"totalSavings"`
	ItemsListed  int64   `json:"itemsListed"`
	ItemsSold    int64   `json:"itemsSold"`
}

// SellerImpact summarizes one seller's reuse contribution.
type SellerImpact struct {
	Seller       string          `json:"seller"`
	TotalSavings float64         `json:"totalSavings"`
	ItemsListed  int64           `json:"itemsListed"`
	ItemsSold    int64           `json:"itemsSold"`
	ImpactScore  float64         `json:"impactScore"`
	Monthly      []MonthlyImpact `json:"monthlyImpact,omitempty"`
}

// GetCommunityImpact computes marketplace-wide totals.
func (s *ItemStore) GetCommunityImpact(ctx context.Context) (*CommunityImpact, error) {
	var impact CommunityImpact
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		       COUNT(DISTINCT seller),
		       COALESCE(SUM(reuse_savings), 0),
		       COALESCE(SUM(new_product_emission), 0)
		FROM items`, string(models.StatusSold),
	).Scan(&impact.TotalItems, &impact.TotalSold, &impact.ActiveSellers,
		&impact.TotalSavings, &impact.TotalEmissions)
	if err != nil {
		return nil, fmt.Errorf("computing community impact: %w", err)
	}
	return &impact, nil
}

// GetSellerImpact computes one seller's totals plus a monthly rollup.
func (s *ItemStore) GetSellerImpact(ctx context.Context, seller string) (*SellerImpact, error) {
	impact := &SellerImpact{Seller: seller}
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(reuse_savings), 0),
		       COUNT(*),
		       COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM items WHERE seller = ? COLLATE NOCASE`,
		string(models.StatusSold), seller,
	).Scan(&impact.TotalSavings, &impact.ItemsListed, &impact.ItemsSold)
	if err != nil {
		return nil, fmt.Errorf("computing seller impact for %s: %w", seller, err)
	}
	impact.ImpactScore = impactScore(impact.TotalSavings, impact.ItemsListed, impact.ItemsSold)

	rows, err := s.db.QueryContext(ctx, `
		SELECT strftime('%Y-%m', created_at),
		       COALESCE(SUM(reuse_savings), 0),
		       COUNT(*),
		       COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM items WHERE seller = ? COLLATE NOCASE
		GROUP BY strftime('%Y-%m', created_at)
		ORDER BY strftime('%Y-%m', created_at)`,
		string(models.StatusSold), seller)
	if err != nil {
		return nil, fmt.Errorf("computing monthly impact for %s: %w", seller, err)
	}
	defer rows.Close()

	for rows.Next() {
		var m MonthlyImpact
		if err := rows.Scan(&m.Month, &m.TotalSavings, &m.ItemsListed, &m.ItemsSold); err != nil {
			return nil, fmt.Errorf("scanning monthly impact: %w", err)
		}
		impact.Monthly = append(impact.Monthly, m)
	}
	return impact, rows.Err()
}

// GetLeaderboard returns the top sellers by impact score.
func (s *ItemStore) GetLeaderboard(ctx context.Context, limit int) ([]SellerImpact, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT seller,
		       COALESCE(SUM(reuse_savings), 0),
		       COUNT(*),
		       COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM items
		GROUP BY seller
		ORDER BY (COALESCE(SUM(reuse_savings), 0) * 0.6 + COUNT(*) * 0.2 +
		          COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) * 0.2) DESC
		LIMIT ?`,
		string(models.StatusSold), string(models.StatusSold), limit)
	if err != nil {
		return nil, fmt.Errorf("computing leaderboard: %w", err)
	}
	defer rows.Close()

	leaderboard := []SellerImpact{}
	for rows.Next() {
		var entry SellerImpact
		if err := rows.Scan(&entry.Seller, &entry.TotalSavings, &entry.ItemsListed, &entry.ItemsSold); err != nil {
			return nil, fmt.Errorf("scanning leaderboard entry: %w", err)
		}
		entry.ImpactScore = impactScore(entry.TotalSavings, entry.ItemsListed, entry.ItemsSold)
		leaderboard = append(leaderboard, entry)
	}
	return leaderboard, rows.Err()
}

func impactScore(savings float64, listed, sold int64) float64 {
	return savings*0.6 + float64(listed)*0.2 + float64(sold)*0.2
}
