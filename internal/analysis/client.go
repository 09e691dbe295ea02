package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// basePath prefixes every analysis endpoint.
const basePath = "/realtime-ai"

const defaultTimeout = 10 * time.Second

// Client makes REST calls to the analysis service. All Analyze* methods are
// non-throwing: they return a result envelope whose fallback data is
// populated on any failure (network, timeout, bad response).
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a client targeting the given base URL
// (e.g. "http://127.0.0.1:8000"). A zero timeout uses the default.
func NewClient(baseURL, token string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "analysis").Logger(),
	}
}

// AnalyzeSession requests a whole-session analysis.
func (c *Client) AnalyzeSession(ctx context.Context, data SessionData) SessionResult {
	var out SessionAnalysis
	if err := c.post(ctx, "/analyze-session", data, &out); err != nil {
		return SessionResult{Status: failed(err), Data: fallbackSession()}
	}
	if out.Summary == "" {
		out.Summary = "No summary provided"
	}
	if out.RiskLevel == "" {
		out.RiskLevel = "low"
	}
	return SessionResult{Status: succeeded(), Data: out}
}

// AnalyzeEmotionalPatterns requests an emotional-pattern analysis.
func (c *Client) AnalyzeEmotionalPatterns(ctx context.Context, data SessionData) EmotionalResult {
	var out EmotionalAnalysis
	if err := c.post(ctx, "/analyze-emotional-patterns", data, &out); err != nil {
		return EmotionalResult{Status: failed(err), Data: fallbackEmotional()}
	}
	if len(out.DominantEmotions) == 0 {
		out.DominantEmotions = []string{"neutral"}
	}
	return EmotionalResult{Status: succeeded(), Data: out}
}

// AnalyzeBehavioralPatterns requests a behavioral-pattern analysis.
func (c *Client) AnalyzeBehavioralPatterns(ctx context.Context, data SessionData) BehavioralResult {
	var out BehavioralAnalysis
	if err := c.post(ctx, "/analyze-behavioral-patterns", data, &out); err != nil {
		return BehavioralResult{Status: failed(err), Data: fallbackBehavioral()}
	}
	if out.Patterns == nil {
		out.Patterns = []string{}
	}
	return BehavioralResult{Status: succeeded(), Data: out}
}

// GenerateRecommendations requests clinical recommendations.
func (c *Client) GenerateRecommendations(ctx context.Context, data SessionData) RecommendationResult {
	var out []Recommendation
	if err := c.post(ctx, "/generate-recommendations", data, &out); err != nil {
		return RecommendationResult{Status: failed(err), Data: fallbackRecommendations()}
	}
	for i := range out {
		if out[i].Priority == "" {
			out[i].Priority = "medium"
		}
	}
	return RecommendationResult{Status: succeeded(), Data: out}
}

// AnalyzeProgress requests a progress analysis.
func (c *Client) AnalyzeProgress(ctx context.Context, data SessionData) ProgressResult {
	var out ProgressAnalysis
	if err := c.post(ctx, "/analyze-progress", data, &out); err != nil {
		return ProgressResult{Status: failed(err), Data: fallbackProgress()}
	}
	if out.Trend == "" {
		out.Trend = "stable"
	}
	return ProgressResult{Status: succeeded(), Data: out}
}

// Comprehensive runs all five analyses concurrently and settles each slot
// independently: a failing sub-call fills its own fallback and never
// discards the other results.
func (c *Client) Comprehensive(ctx context.Context, data SessionData) ComprehensiveResult {
	var res ComprehensiveResult
	var wg sync.WaitGroup
	wg.Add(5)
	go func() { defer wg.Done(); res.Session = c.AnalyzeSession(ctx, data) }()
	go func() { defer wg.Done(); res.Emotional = c.AnalyzeEmotionalPatterns(ctx, data) }()
	go func() { defer wg.Done(); res.Behavioral = c.AnalyzeBehavioralPatterns(ctx, data) }()
	go func() { defer wg.Done(); res.Recommendations = c.GenerateRecommendations(ctx, data) }()
	go func() { defer wg.Done(); res.Progress = c.AnalyzeProgress(ctx, data) }()
	wg.Wait()
	return res
}

// StartMonitoring tells the service to begin streaming insights for a session.
func (c *Client) StartMonitoring(ctx context.Context, sessionID string) error {
	return c.post(ctx, "/start-monitoring/"+sessionID, nil, nil)
}

// StopMonitoring tells the service to stop streaming insights for a session.
func (c *Client) StopMonitoring(ctx context.Context, sessionID string) error {
	return c.post(ctx, "/stop-monitoring/"+sessionID, nil, nil)
}

// CheckHealth probes the analysis service. Unlike the Analyze* methods this
// surfaces the error: health failures are user-visible connectivity problems.
func (c *Client) CheckHealth(ctx context.Context) (Health, error) {
	var h Health
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+basePath+"/health", nil)
	if err != nil {
		return h, err
	}
	c.setAuth(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return h, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return h, fmt.Errorf("health check: %d %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return h, err
	}
	return h, nil
}

func succeeded() Status {
	return Status{Success: true}
}

func failed(err error) Status {
	return Status{Success: false, Fallback: true, Err: err.Error()}
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+basePath+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuth(req)
	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn().Str("path", path).Err(err).Msg("analysis request failed")
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.log.Warn().Str("path", path).Int("status", resp.StatusCode).Msg("analysis request rejected")
		return fmt.Errorf("POST %s: %d %s", path, resp.StatusCode, string(respBody))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("POST %s: decode response: %w", path, err)
		}
	}
	return nil
}

func (c *Client) setAuth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
