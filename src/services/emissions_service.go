// backend/src/services/emissions_service.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/username/reusemarket/backend/src/logger"
	"github.com/username/reusemarket/backend/src/models"
)

type emissionsScoreResponse struct {
	NewProductEmission float64 `json:"newProductEmission"`
	ReuseSavings       float64 `json:"reuseSavings"`
}

type emissionsServiceImpl struct {
	httpClient http.Client
	baseURL    string
	scoreCache *cache.Cache
}

// NewEmissionsService creates the client for the external emissions
// scoring model. With no URL configured it falls back to a mock that
// scores everything as zero, so listing keeps working in development.
func NewEmissionsService(baseURL string, cacheTTL time.Duration) EmissionsService {
	if baseURL == "" {
		logger.L.Warn("EMISSIONS_SERVICE_URL not configured. Falling back to MockEmissionsService.")
		return &MockEmissionsService{}
	}

	return &emissionsServiceImpl{
		httpClient: http.Client{Timeout: 20 * time.Second},
		baseURL:    baseURL,
		scoreCache: cache.New(cacheTTL, 2*cacheTTL),
	}
}

// ScoreProduct fetches the emissions estimate for a product name,
// serving repeated lookups from cache.
func (s *emissionsServiceImpl) ScoreProduct(ctx context.Context, productName string) (models.CarbonFootprint, error) {
	if cached, found := s.scoreCache.Get(productName); found {
		return cached.(models.CarbonFootprint), nil
	}

	payload, err := json.Marshal(map[string]string{"productName": productName})
	if err != nil {
		return models.CarbonFootprint{}, fmt.Errorf("encoding emissions request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(payload))
	if err != nil {
		return models.CarbonFootprint{}, fmt.Errorf("building emissions request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return models.CarbonFootprint{}, fmt.Errorf("calling emissions service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.CarbonFootprint{}, fmt.Errorf("emissions service returned non-OK status %d for %q", resp.StatusCode, productName)
	}

	var score emissionsScoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&score); err != nil {
		return models.CarbonFootprint{}, fmt.Errorf("decoding emissions response: %w", err)
	}

	footprint := models.CarbonFootprint{
		NewProductEmission: score.NewProductEmission,
		ReuseSavings:       score.ReuseSavings,
	}
	footprint.ComputeNetImpact()

	s.scoreCache.Set(productName, footprint, cache.DefaultExpiration)
	logger.L.Info("Emissions score fetched", "product", productName,
		"newProductEmission", footprint.NewProductEmission, "reuseSavings", footprint.ReuseSavings)
	return footprint, nil
}

// MockEmissionsService scores everything as zero. Used when the
// external model is not configured.
type MockEmissionsService struct{}

func (m *MockEmissionsService) ScoreProduct(ctx context.Context, productName string) (models.CarbonFootprint, error) {
	logger.L.Debug("MockEmissionsService scoring product as zero", "product", productName)
	return models.CarbonFootprint{}, nil
}
