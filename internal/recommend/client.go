// Package recommend calls the external text-generation service that turns a
// detection finding into short, actionable campaign recommendations.
//
// Enrichment is best-effort: any transport failure, non-2xx status, or rate
// limit degrades to an unavailable result instead of an error, so alert
// creation is never blocked on the external service.
package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/brightpath/campaign-monitor/internal/config"
	"github.com/brightpath/campaign-monitor/internal/domain"
	"github.com/brightpath/campaign-monitor/internal/pkg/httpretry"
	"github.com/brightpath/campaign-monitor/internal/pkg/logger"
	"github.com/brightpath/campaign-monitor/internal/ratelimit"
)

// Result is the outcome of an enrichment call. Unavailable distinguishes
// "the service had no advice" from "the service could not be reached", so
// callers cannot mistake silence for an all-clear.
type Result struct {
	Recommendations []string
	Unavailable     bool
}

// preamblePrefixes are lead-in lines the model tends to produce that carry
// no advice; they are dropped during post-processing.
var preamblePrefixes = []string{"Based on", "Here are", "Recommendations:"}

const systemPrompt = "You are a digital marketing expert providing campaign optimization advice based on detailed metric analysis."

// Client is an HTTP client for the recommendation service.
type Client struct {
	baseURL    string
	apiKey     string
	maxRecs    int
	httpClient httpretry.HTTPDoer
	bucket     *ratelimit.Bucket
}

// NewClient creates a recommendation client. bucket may be nil when the
// caller does not front a shared request budget.
func NewClient(cfg config.RecommendConfig, bucket *ratelimit.Bucket) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		maxRecs: cfg.MaxRecommendations,
		httpClient: httpretry.New(&http.Client{
			Timeout: cfg.Timeout(),
		}, 3),
		bucket: bucket,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Response string `json:"response"`
	Model    string `json:"model"`
}

// Recommendations asks the service for advice on a finding. It never
// returns an error: failures come back as Result{Unavailable: true}.
func (c *Client) Recommendations(ctx context.Context, campaign domain.Campaign, finding domain.Finding) Result {
	if c.bucket != nil && !c.bucket.Acquire() {
		logger.Warn("recommendation call rejected by rate limiter",
			"campaign", campaign.Name, "kind", finding.Kind)
		return Result{Unavailable: true}
	}

	recs, err := c.generate(ctx, campaign, finding)
	if err != nil {
		logger.Error("recommendation call failed",
			"campaign", campaign.Name, "kind", finding.Kind, "error", err)
		return Result{Unavailable: true}
	}
	return Result{Recommendations: recs}
}

func (c *Client) generate(ctx context.Context, campaign domain.Campaign, finding domain.Finding) ([]string, error) {
	body, err := json.Marshal(chatRequest{
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(campaign, finding)},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("service returned status %d: %s", resp.StatusCode, raw)
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return c.filterLines(out.Response), nil
}

// buildPrompt embeds the campaign identity, the finding classification, and
// the structured evidence behind it.
func buildPrompt(campaign domain.Campaign, finding domain.Finding) string {
	evidence, _ := json.MarshalIndent(finding.MetricData, "", "  ")

	var b strings.Builder
	fmt.Fprintf(&b, "Campaign: %s\n", campaign.Name)
	fmt.Fprintf(&b, "Platform: %s\n", campaign.Platform)
	fmt.Fprintf(&b, "Issue Type: %s\n", finding.Kind)
	fmt.Fprintf(&b, "Severity: %s\n", finding.Severity)
	fmt.Fprintf(&b, "Metric Affected: %s\n", finding.Metric)
	fmt.Fprintf(&b, "Description: %s\n\n", finding.Description)
	fmt.Fprintf(&b, "Metric Data:\n%s\n\n", evidence)
	b.WriteString("Based on this campaign anomaly and the detailed metric data provided, " +
		"provide 3-4 specific, actionable recommendations for improving campaign performance. " +
		"Focus on practical steps that can be taken immediately. " +
		"Format each recommendation as a separate item.")
	return b.String()
}

// filterLines splits generated text on line boundaries, drops blanks and
// preamble lines, and caps the list at the configured maximum.
func (c *Client) filterLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isPreamble(line) {
			continue
		}
		out = append(out, line)
		if len(out) == c.maxRecs {
			break
		}
	}
	return out
}

func isPreamble(line string) bool {
	for _, prefix := range preamblePrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
