package oracle

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/j0hanj0han/cemantix/internal/config"
	"github.com/j0hanj0han/cemantix/internal/models"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxResponseBytes = 1 << 20

// HTTPClient talks to a Cémantix-compatible scoring server. Calls are paced by a limiter so
// consecutive requests start at least the configured delay apart.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	timeout time.Duration
	logger  *zap.Logger
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithLogger sets a logger for per-call debug output.
func WithLogger(l *zap.Logger) Option {
	return func(c *HTTPClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.client = hc }
}

// NewHTTPClient creates a client from cfg. The caller owns it for the session; nothing is shared
// between clients.
func NewHTTPClient(cfg *config.OracleConfig, opts ...Option) *HTTPClient {
	limit := rate.Inf
	if d := cfg.Delay(); d > 0 {
		limit = rate.Every(d)
	}
	c := &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{},
		limiter: rate.NewLimiter(limit, 1),
		timeout: cfg.Timeout(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Probe scores word. Every failure is returned wrapped in ErrUnknown.
func (c *HTTPClient) Probe(ctx context.Context, puzzleID, word string) (*models.Score, error) {
	body, err := c.post(ctx, "/score", puzzleID, word)
	if err != nil {
		c.logger.Debug("probe failed", zap.String("word", word), zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %v", ErrUnknown, word, err)
	}
	score, err := parseScore(body)
	if err != nil {
		c.logger.Debug("probe rejected", zap.String("word", word), zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %v", ErrUnknown, word, err)
	}
	return score, nil
}

// Nearby returns the solution's neighbours sorted by ascending percentile.
func (c *HTTPClient) Nearby(ctx context.Context, puzzleID, word string) ([]models.NearbyWord, error) {
	body, err := c.post(ctx, "/nearby", puzzleID, word)
	if err != nil {
		return nil, fmt.Errorf("nearby request: %w", err)
	}
	return parseNearby(body)
}

func (c *HTTPClient) post(ctx context.Context, path, puzzleID, word string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	endpoint := c.baseURL + path + "?n=" + url.QueryEscape(puzzleID)
	form := url.Values{"word": {word}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", c.baseURL)
	req.Header.Set("Referer", c.baseURL+"/")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %d", resp.StatusCode)
	}
	return body, nil
}

// parseScore reads {"s": similarity, "p": percentile}. A response without "s" (the server answers
// {"e": "..."} for words it does not know) is an error.
func parseScore(body []byte) (*models.Score, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON response")
	}
	s := gjson.GetBytes(body, "s")
	if !s.Exists() || s.Type != gjson.Number {
		if e := gjson.GetBytes(body, "e"); e.Exists() {
			return nil, fmt.Errorf("rejected: %s", e.String())
		}
		return nil, fmt.Errorf("response has no similarity")
	}
	score := &models.Score{Similarity: s.Float()}
	if p := gjson.GetBytes(body, "p"); p.Exists() && p.Type == gjson.Number {
		rank := int(p.Int())
		score.Rank = &rank
	}
	return score, nil
}

// parseNearby reads {"word": [percentile, similarity, ...], ...}. Malformed entries are skipped.
func parseNearby(body []byte) ([]models.NearbyWord, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON response")
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, fmt.Errorf("nearby response is not an object")
	}
	var out []models.NearbyWord
	root.ForEach(func(key, value gjson.Result) bool {
		fields := value.Array()
		if !value.IsArray() || len(fields) < 2 {
			return true
		}
		out = append(out, models.NearbyWord{
			Word:       key.String(),
			Percentile: int(fields[0].Int()),
			Similarity: fields[1].Float(),
		})
		return true
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Percentile < out[j].Percentile })
	return out, nil
}
