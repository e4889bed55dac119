// Package pagespeed fetches PageSpeed Insights reports and renders a short
// summary for the terminal.
package pagespeed

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	apperrors "github.com/conneroisu/assetsmith/internal/errors"
	"github.com/conneroisu/assetsmith/internal/validation"
)

// DefaultEndpoint is the PageSpeed Insights v5 API.
const DefaultEndpoint = "https://www.googleapis.com/pagespeedonline/v5/runPagespeed"

// audits are the lab metrics included in a report, in display order.
var audits = []string{
	"first-contentful-paint",
	"largest-contentful-paint",
	"total-blocking-time",
	"cumulative-layout-shift",
	"speed-index",
	"interactive",
}

// Request selects the page and device profile.
type Request struct {
	URL      string
	Strategy string
	Key      string
}

// Metric is one audit's result.
type Metric struct {
	ID    string
	Title string
	Value string
	Score float64
}

// Report is the summary of one PageSpeed run.
type Report struct {
	URL      string
	Strategy string
	Score    int
	Metrics  []Metric
}

// Client talks to the PageSpeed API.
type Client struct {
	client   *resty.Client
	endpoint string
}

// NewClient creates a client for endpoint; an empty endpoint uses the public
// API.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		endpoint: endpoint,
	}
}

// Run requests a report for req.URL.
func (c *Client) Run(ctx context.Context, req Request) (*Report, error) {
	target := NormalizeURL(req.URL)
	if err := validation.ValidateURL(target); err != nil {
		return nil, apperrors.NewConfigError("pagespeed url").WithCause(err)
	}
	strategy := strings.ToLower(req.Strategy)
	if strategy == "" {
		strategy = "mobile"
	}

	r := c.client.R().
		SetContext(ctx).
		SetQueryParam("url", target).
		SetQueryParam("strategy", strategy).
		SetQueryParam("category", "performance")
	if req.Key != "" {
		r.SetQueryParam("key", req.Key)
	}

	resp, err := r.Get(c.endpoint)
	if err != nil {
		return nil, apperrors.NewNetworkError("pagespeed request", err)
	}
	body := resp.String()
	if !resp.IsSuccess() {
		msg := gjson.Get(body, "error.message").String()
		if msg == "" {
			msg = resp.Status()
		}
		return nil, apperrors.NewNetworkError(fmt.Sprintf("pagespeed: %s", msg), nil)
	}
	if !gjson.Valid(body) {
		return nil, apperrors.NewNetworkError("pagespeed: response is not JSON", nil)
	}
	return Parse(body, strategy), nil
}

// Parse extracts a report from a PageSpeed API response body.
func Parse(body, strategy string) *Report {
	lh := gjson.Get(body, "lighthouseResult")

	report := &Report{
		URL:      lh.Get("finalUrl").String(),
		Strategy: strategy,
		Score:    int(math.Round(lh.Get("categories.performance.score").Float() * 100)),
	}
	if report.URL == "" {
		report.URL = gjson.Get(body, "id").String()
	}

	for _, id := range audits {
		audit := lh.Get("audits." + id)
		if !audit.Exists() {
			continue
		}
		report.Metrics = append(report.Metrics, Metric{
			ID:    id,
			Title: audit.Get("title").String(),
			Value: audit.Get("displayValue").String(),
			Score: audit.Get("score").Float(),
		})
	}
	return report
}

// NormalizeURL adds https:// to bare host names.
func NormalizeURL(u string) string {
	u = strings.TrimSpace(u)
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return "https://" + u
}
