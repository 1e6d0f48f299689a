package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/RohUkJin/HOTDEAL-SCRAPER/shared"
)

const naverShopSearchURL = "https://openapi.naver.com/v1/search/shop.json"

// PriceCandidate is the top Naver Shopping match for a search query.
type PriceCandidate struct {
	Price int    `json:"price"`
	Title string `json:"title"`
}

// PriceSearcher is the external price-lookup collaborator consumed by the
// unit-economics comparator. (nil, nil) means "no candidate"; an error means
// transport failure, which callers treat the same way.
type PriceSearcher interface {
	SearchLowestPrice(ctx context.Context, query string) (*PriceCandidate, error)
}

// NaverShoppingService queries the Naver Shopping open API for the single
// most relevant listing and its lowest price.
type NaverShoppingService struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	metrics      *shared.ServiceMetrics
}

// NewNaverShoppingService creates the price-lookup client. Lookups carry a
// short timeout; a slow Naver response must never stall the whole run.
func NewNaverShoppingService(clientID, clientSecret string, factory *shared.HTTPClientFactory) *NaverShoppingService {
	return &NaverShoppingService{
		baseURL:      naverShopSearchURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   factory.Client(5 * time.Second),
		metrics:      shared.NewServiceMetrics("NaverShoppingService"),
	}
}

// Metrics exposes request counters for the stats endpoint.
func (s *NaverShoppingService) Metrics() *shared.ServiceMetrics {
	return s.metrics
}

type naverSearchResponse struct {
	Items []struct {
		Title  string `json:"title"`
		LPrice string `json:"lprice"`
	} `json:"items"`
}

// SearchLowestPrice returns the top match for the query sorted by
// similarity, or (nil, nil) when Naver has no results. Missing credentials
// disable the lookup entirely.
func (s *NaverShoppingService) SearchLowestPrice(ctx context.Context, query string) (*PriceCandidate, error) {
	if s.clientID == "" || s.clientSecret == "" {
		logrus.Warn("Naver API credentials not set. Skipping price comparison.")
		return nil, nil
	}

	start := time.Now()

	params := url.Values{}
	params.Set("query", query)
	params.Set("display", "1")
	params.Set("sort", "sim")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build naver request: %w", err)
	}
	req.Header.Set("X-Naver-Client-Id", s.clientID)
	req.Header.Set("X-Naver-Client-Secret", s.clientSecret)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.metrics.RecordRequest(false, time.Since(start))
		return nil, shared.NewServiceError(shared.ErrorCategoryNetwork, "NAVER_REQUEST_FAILED",
			"Failed to reach Naver Shopping API", "NaverShoppingService", "SearchLowestPrice", true, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.metrics.RecordRequest(false, time.Since(start))
		return nil, shared.NewServiceError(shared.ErrorCategoryNetwork, "NAVER_BAD_STATUS",
			fmt.Sprintf("Naver API returned status %d", resp.StatusCode),
			"NaverShoppingService", "SearchLowestPrice", resp.StatusCode >= 500, nil)
	}

	var payload naverSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		s.metrics.RecordRequest(false, time.Since(start))
		return nil, shared.NewServiceError(shared.ErrorCategoryProcessing, "NAVER_DECODE_FAILED",
			"Failed to decode Naver API response", "NaverShoppingService", "SearchLowestPrice", false, err)
	}

	s.metrics.RecordRequest(true, time.Since(start))

	// No results is not a failure, just nothing to compare against.
	if len(payload.Items) == 0 {
		return nil, nil
	}

	item := payload.Items[0]
	price, err := strconv.Atoi(item.LPrice)
	if err != nil || price <= 0 {
		return nil, nil
	}

	return &PriceCandidate{Price: price, Title: item.Title}, nil
}
