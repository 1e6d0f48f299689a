package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/RohUkJin/HOTDEAL-SCRAPER/models"
	"github.com/RohUkJin/HOTDEAL-SCRAPER/shared"
)

const (
	geminiBaseURL       = "https://generativelanguage.googleapis.com/v1beta"
	geminiPrimaryModel  = "gemini-3-flash-preview"
	geminiFallbackModel = "gemini-2.0-flash"

	// How many comment excerpts per deal go into the batch prompt.
	promptCommentLimit = 5
)

// DealAnalyzer is the external LLM classifier collaborator. It mutates the
// deals in place with verdicts and must leave no deal in READY.
type DealAnalyzer interface {
	AnalyzeBatch(ctx context.Context, deals []*models.Deal) error
}

// AnalyzerService classifies batches of READY deals with the Gemini API.
// One request covers the whole batch; deals omitted from the response are
// treated as classifier-rejected, not as errors.
type AnalyzerService struct {
	baseURL       string
	apiKey        string
	model         string
	fallbackModel string
	httpClient    *http.Client
	metrics       *shared.ServiceMetrics
}

// NewAnalyzerService creates the Gemini client.
func NewAnalyzerService(apiKey string, factory *shared.HTTPClientFactory) *AnalyzerService {
	return &AnalyzerService{
		baseURL:       geminiBaseURL,
		apiKey:        apiKey,
		model:         geminiPrimaryModel,
		fallbackModel: geminiFallbackModel,
		httpClient:    factory.Client(60 * time.Second),
		metrics:       shared.NewServiceMetrics("AnalyzerService"),
	}
}

// Metrics exposes request counters for the stats endpoint.
func (s *AnalyzerService) Metrics() *shared.ServiceMetrics {
	return s.metrics
}

type batchAnalysisResult struct {
	DealID    string `json:"deal_id"`
	IsHotdeal bool   `json:"is_hotdeal"`
	Category  string `json:"category"`
	Reason    string `json:"reason"`
	Sentiment int    `json:"sentiment"`
}

type batchResponse struct {
	Results []batchAnalysisResult `json:"results"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		ResponseMimeType string `json:"response_mime_type"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// AnalyzeBatch sends every deal to Gemini in one prompt and maps the
// verdicts back by id. On transport failure or an undecodable payload every
// deal still in READY is forced to ERROR; "we don't know" must stay
// distinguishable from "we decided no".
func (s *AnalyzerService) AnalyzeBatch(ctx context.Context, deals []*models.Deal) error {
	if len(deals) == 0 {
		return nil
	}
	if s.apiKey == "" {
		logrus.Warn("Gemini API key not set. Marking batch as ERROR.")
		s.failPending(deals)
		return nil
	}

	prompt := buildBatchPrompt(deals)

	raw, err := s.generateWithFallback(ctx, prompt)
	if err != nil {
		logrus.Errorf("Batch analysis request failed: %v", err)
		s.failPending(deals)
		return err
	}

	var parsed batchResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		// Usually text truncation. Keep the raw payload for diagnosis.
		logrus.Errorf("Failed to decode batch analysis response: %v", err)
		logrus.Errorf("Raw response text: %.500s", raw)
		s.failPending(deals)
		return fmt.Errorf("decode batch response: %w", err)
	}

	resultMap := make(map[string]batchAnalysisResult, len(parsed.Results))
	for _, r := range parsed.Results {
		resultMap[r.DealID] = r
	}

	for _, deal := range deals {
		res, ok := resultMap[deal.ID]
		if !ok {
			// Omitted from the response means the model classified it
			// as DROP; omission keeps the output short by design of
			// the prompt, not an error.
			hot := false
			deal.IsHotdeal = &hot
			deal.Category = models.CategoryDrop
			deal.AISummary = "AI 판단: 필터링 조건 미달 (DROP)"
			sentiment := 0
			deal.SentimentScore = &sentiment
			deal.Status = models.StatusDrop
			deal.DropReason = "Rejected by analyzer"
			continue
		}

		hot := res.IsHotdeal
		deal.IsHotdeal = &hot

		category, known := models.ParseCategory(res.Category)
		if !known {
			logrus.Warnf("Invalid category %q for deal %s. Defaulting to Others.", res.Category, deal.ID)
		}
		deal.Category = category
		deal.AISummary = res.Reason
		sentiment := res.Sentiment
		deal.SentimentScore = &sentiment

		if hot {
			deal.Status = models.StatusHot
		} else {
			deal.Status = models.StatusDrop
			deal.DropReason = "Rejected by analyzer"
		}
	}

	logrus.Infof("Batch analysis complete for %d deals. LLM returned %d results.", len(deals), len(parsed.Results))
	return nil
}

// failPending degrades every non-terminal deal to ERROR after a classifier
// failure. ERROR verdicts are never cached, so the deals get retried on the
// next run.
func (s *AnalyzerService) failPending(deals []*models.Deal) {
	for _, deal := range deals {
		if !deal.Status.Terminal() {
			deal.Status = models.StatusError
		}
	}
}

// generateWithFallback calls the primary model and retries once on the
// fallback model when Gemini reports rate exhaustion.
func (s *AnalyzerService) generateWithFallback(ctx context.Context, prompt string) (string, error) {
	logrus.Infof("Generating content using %s...", s.model)
	raw, err := s.generate(ctx, s.model, prompt)
	if err == nil {
		return raw, nil
	}

	if isRateLimit(err) && s.fallbackModel != "" {
		logrus.Warnf("Rate limit hit on %s. Switching to fallback: %s", s.model, s.fallbackModel)
		return s.generate(ctx, s.fallbackModel, prompt)
	}
	return "", err
}

func (s *AnalyzerService) generate(ctx context.Context, model, prompt string) (string, error) {
	start := time.Now()

	var reqBody geminiRequest
	reqBody.Contents = []geminiContent{{Parts: []geminiPart{{Text: prompt}}}}
	reqBody.GenerationConfig.ResponseMimeType = "application/json"

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("encode gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", s.baseURL, model, s.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.metrics.RecordRequest(false, time.Since(start))
		return "", shared.NewServiceError(shared.ErrorCategoryNetwork, "GEMINI_REQUEST_FAILED",
			"Failed to reach Gemini API", "AnalyzerService", "generate", true, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		s.metrics.RecordRequest(false, time.Since(start))
		return "", fmt.Errorf("read gemini response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		s.metrics.RecordRequest(false, time.Since(start))
		return "", shared.NewServiceError(shared.ErrorCategoryNetwork, "GEMINI_BAD_STATUS",
			fmt.Sprintf("Gemini API returned status %d: %.200s", resp.StatusCode, string(payload)),
			"AnalyzerService", "generate", resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500, nil)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		s.metrics.RecordRequest(false, time.Since(start))
		return "", fmt.Errorf("decode gemini envelope: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		s.metrics.RecordRequest(false, time.Since(start))
		return "", fmt.Errorf("gemini response has no candidates")
	}

	s.metrics.RecordRequest(true, time.Since(start))
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

func isRateLimit(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(msg, "Too Many Requests")
}

// buildBatchPrompt renders the procurement-analyst prompt with one block per
// deal. The model only returns HOT/MAYBE items; DROPs are omitted to keep
// the output short.
func buildBatchPrompt(deals []*models.Deal) string {
	var items strings.Builder
	for _, deal := range deals {
		naverPrice := "N/A"
		if deal.NaverPrice != nil {
			naverPrice = fmt.Sprintf("%d", *deal.NaverPrice)
		}
		savings := 0
		if deal.Savings != nil {
			savings = *deal.Savings
		}
		comments := deal.Comments
		if len(comments) > promptCommentLimit {
			comments = comments[:promptCommentLimit]
		}

		fmt.Fprintf(&items, `
[ID: %s]
Title: %s
Price: %s
Naver Lowest Price: %s
Savings: %d won
Link: %s
Score: %g
Votes/CommentsCount: %d/%d
Viewer Reactions (Comments): %s
---`,
			deal.ID, deal.Title, deal.DiscountPrice, naverPrice, savings,
			deal.Link, deal.Score, deal.Votes, deal.CommentCount,
			strings.Join(comments, " | "))
	}

	return fmt.Sprintf(`You are a data analyst for a company's procurement team.
Your goal is to identify "Daily Necessity Hot Deals" suitable for company bulk purchase.

Analyze the following items based on Title, Price, and User Reactions (Comments).

CRITERIA:
1. HOT:
   - Item is a DAILY NECESSITY (Food, Drink, Toiletries, Office, Others) OR useful general goods (Electronics, Small Appliances, Home Goods, Health Supplements).
   - Important: Clothes, Games, Luxury Items, and Coupons are still generally DROP, unless they are exceptionally cheap and widely applicable.
   - Price is cheap (verified by 'Savings' > 0 OR user comments like "cheap", "good price"). The 'Savings' value is already unit-price adjusted and considers shipping. Even if there are few or no comments, if the 'Savings' are clearly positive, consider it a HOT deal.
   - User sentiment is POSITIVE or NEUTRAL. Lack of comments does not disqualify a deal if the price is good.
2. DROP:
   - Highly specific niche items (e.g., specific game titles, high-end luxury fashion, obscure components).
   - Price is NOT competitive (Savings <= 0 AND users say "expensive").
   - User sentiment is predominantly NEGATIVE (e.g., "don't buy", "not a deal").
   - VIRAL/AD WARNING: If comments strongly complain about "바이럴", "광고", "업자", "비추", Sentiment Score MUST be < 30.
3. MAYBE: Ambiguous cases.

INPUT ITEMS:
%s

OUTPUT INSTRUCTIONS:
- ONLY include items in the "results" array that are classified as HOT or MAYBE.
- STRICT RULE: DO NOT include items that are classified as DROP in your response. Omit them entirely to save output space.

Provide a JSON object with a "results" list.
Schema:
{
    "results": [
        {
            "deal_id": "string (matches input ID)",
            "is_hotdeal": boolean (true if HOT),
            "category": "string (MUST BE ONE OF: Food, Drink, Toiletries, Office, Others)",
            "reason": "string (3-line CURATED summary in Korean. Tone: Shopping Host. Use emojis sparingly (max 1 per line).)",
            "sentiment": "integer (0 to 100, based on User Reactions. <30 if viral suspected)"
        }
    ]
}
Important: The 'reason' MUST be written in Korean with an engaging tone but NOT excessive usage of emojis.`, items.String())
}
