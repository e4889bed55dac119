package pagespeed

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/conneroisu/assetsmith/internal/errors"
)

const sampleResponse = `{
  "id": "https://example.com/",
  "lighthouseResult": {
    "finalUrl": "https://example.com/",
    "categories": {"performance": {"score": 0.87}},
    "audits": {
      "first-contentful-paint": {"title": "First Contentful Paint", "displayValue": "1.2 s", "score": 0.95},
      "largest-contentful-paint": {"title": "Largest Contentful Paint", "displayValue": "2.9 s", "score": 0.6},
      "total-blocking-time": {"title": "Total Blocking Time", "displayValue": "150 ms", "score": 0.9},
      "cumulative-layout-shift": {"title": "Cumulative Layout Shift", "displayValue": "0.01", "score": 1},
      "speed-index": {"title": "Speed Index", "displayValue": "3.1 s", "score": 0.7}
    }
  }
}`

func TestRun(t *testing.T) {
	var query map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = map[string]string{}
		for k := range r.URL.Query() {
			query[k] = r.URL.Query().Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	report, err := client.Run(context.Background(), Request{URL: "example.com", Strategy: "Mobile", Key: "k"})
	require.NoError(t, err)

	assert.Equal(t, "https://example.com", query["url"])
	assert.Equal(t, "mobile", query["strategy"])
	assert.Equal(t, "k", query["key"])

	assert.Equal(t, "https://example.com/", report.URL)
	assert.Equal(t, 87, report.Score)
	require.Len(t, report.Metrics, 5)
	assert.Equal(t, "First Contentful Paint", report.Metrics[0].Title)
	assert.Equal(t, "1.2 s", report.Metrics[0].Value)
	assert.Equal(t, "speed-index", report.Metrics[4].ID)
}

func TestRunWithoutKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("key"))
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Run(context.Background(), Request{URL: "https://example.com"})
	require.NoError(t, err)
}

func TestRunAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"code": 400, "message": "Invalid URL"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Run(context.Background(), Request{URL: "nope"})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNetwork))
	assert.Contains(t, err.Error(), "Invalid URL")
}

func TestRunRejectsNonJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Run(context.Background(), Request{URL: "example.com"})
	require.Error(t, err)
}

func TestRunRejectsUnsafeURL(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Run(context.Background(), Request{URL: "example.com/a b"})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfig))
	assert.False(t, called)
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://example.com", NormalizeURL("example.com"))
	assert.Equal(t, "http://example.com", NormalizeURL("http://example.com"))
	assert.Equal(t, "https://a.b/c", NormalizeURL(" https://a.b/c "))
}

func TestScoreColor(t *testing.T) {
	assert.Equal(t, colorGood, ScoreColor(90))
	assert.Equal(t, colorAverage, ScoreColor(89))
	assert.Equal(t, colorAverage, ScoreColor(50))
	assert.Equal(t, colorPoor, ScoreColor(49))
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, Parse(sampleResponse, "mobile")))

	out := buf.String()
	assert.Contains(t, out, "https://example.com/")
	assert.Contains(t, out, "Mobile")
	assert.Contains(t, out, "87")
	assert.Contains(t, out, "Largest Contentful Paint")
	assert.Contains(t, out, "2.9 s")
}
