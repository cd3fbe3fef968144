package extraction

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/cleftcare/config"
)

var (
	ErrNoAPIKey          = errors.New("no extraction API key configured")
	ErrNoImages          = errors.New("no image provided")
	ErrQuotaExceeded     = errors.New("extraction quota exceeded on every API key")
	ErrEmptyResponse     = errors.New("extraction service returned no text")
	ErrMalformedResponse = errors.New("extraction service returned invalid JSON")
)

// APIError is a non-quota error reported by the extraction service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("extraction service error (status %d): %s", e.Status, e.Message)
}

type Image struct {
	MIMEType string
	Data     []byte
}

var extensionMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".heic": "image/heic",
	".heif": "image/heif",
}

// DetectMIME trusts an image/* content type, then the file extension, and
// falls back to JPEG.
func DetectMIME(filename, contentType string) string {
	if strings.HasPrefix(contentType, "image/") {
		return contentType
	}
	if m, ok := extensionMIME[strings.ToLower(filepath.Ext(filename))]; ok {
		return m
	}
	return "image/jpeg"
}

// Client calls a Gemini-compatible generateContent endpoint. On a quota
// or rate-limit answer it moves to the next API key and tries again, at
// most once per key. The active key is kept across calls.
type Client struct {
	http  *resty.Client
	model string
	log   *zap.Logger

	mu      sync.Mutex
	keys    []string
	current int

	// OnRotate, when set, is called after every key rotation.
	OnRotate func()
}

func NewClient(cfg config.ExtractionConfig, log *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return r != nil && r.StatusCode() >= http.StatusInternalServerError
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		http:  httpClient,
		model: cfg.Model,
		log:   log,
		keys:  append([]string(nil), cfg.APIKeys...),
	}
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateRequest struct {
	Contents []struct {
		Parts []part `json:"parts"`
	} `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Extract sends the photos in one request and decodes the model's answer.
func (c *Client) Extract(ctx context.Context, images []Image) (*Candidate, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}
	key, attempts := c.activeKey()
	if key == "" {
		return nil, ErrNoAPIKey
	}

	body := buildRequest(images)
	for attempt := 0; attempt < attempts; attempt++ {
		text, err := c.generate(ctx, key, body)
		if err == nil {
			return decodeCandidate(text)
		}
		if !errors.Is(err, ErrQuotaExceeded) {
			return nil, err
		}
		c.log.Warn("extraction quota reached, rotating API key",
			zap.Int("attempt", attempt+1),
			zap.Int("keys", attempts),
		)
		if attempt < attempts-1 {
			key = c.rotate(key)
		}
	}
	return nil, ErrQuotaExceeded
}

func (c *Client) activeKey() (string, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.keys) == 0 {
		return "", 0
	}
	return c.keys[c.current], len(c.keys)
}

// rotate advances past failed unless a concurrent call already did.
func (c *Client) rotate(failed string) string {
	c.mu.Lock()
	rotated := false
	if c.keys[c.current] == failed {
		c.current = (c.current + 1) % len(c.keys)
		rotated = true
	}
	next := c.keys[c.current]
	c.mu.Unlock()

	if rotated && c.OnRotate != nil {
		c.OnRotate()
	}
	return next
}

func buildRequest(images []Image) generateRequest {
	parts := make([]part, 0, len(images)+2)
	parts = append(parts, part{Text: extractionPrompt})
	for _, img := range images {
		parts = append(parts, part{InlineData: &inlineData{
			MIMEType: img.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(img.Data),
		}})
	}
	parts = append(parts, part{Text: "Read these sheets and return the data as JSON."})

	var req generateRequest
	req.Contents = append(req.Contents, struct {
		Parts []part `json:"parts"`
	}{Parts: parts})
	req.GenerationConfig = generationConfig{Temperature: 0.1, TopK: 1, TopP: 1, MaxOutputTokens: 8192}
	return req
}

func (c *Client) generate(ctx context.Context, key string, body generateRequest) (string, error) {
	var (
		result  generateResponse
		failure errorResponse
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("model", c.model).
		SetQueryParam("key", key).
		SetBody(body).
		SetResult(&result).
		SetError(&failure).
		Post("/models/{model}:generateContent")
	if err != nil {
		return "", fmt.Errorf("calling extraction service: %w", err)
	}

	if resp.IsError() {
		msg := failure.Error.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode())
		}
		if isQuota(resp.StatusCode(), msg) {
			return "", fmt.Errorf("%w: %s", ErrQuotaExceeded, msg)
		}
		return "", &APIError{Status: resp.StatusCode(), Message: msg}
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 ||
		strings.TrimSpace(result.Candidates[0].Content.Parts[0].Text) == "" {
		return "", ErrEmptyResponse
	}
	return result.Candidates[0].Content.Parts[0].Text, nil
}

var quotaMarkers = []string{"quota", "rate limit", "rate-limit", "ratelimit", "resource has been exhausted", "resource_exhausted"}

func isQuota(status int, msg string) bool {
	if status == http.StatusTooManyRequests || status == http.StatusForbidden {
		return true
	}
	lower := strings.ToLower(msg)
	for _, m := range quotaMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func decodeCandidate(text string) (*Candidate, error) {
	var c Candidate
	if err := json.Unmarshal([]byte(StripFences(text)), &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &c, nil
}
