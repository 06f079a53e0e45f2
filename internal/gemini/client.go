// Package gemini talks to the Gemini generateContent endpoint for receipt
// extraction, recipe generation and storage tips.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aoi01/fridgesnap/internal/apierr"
	"github.com/aoi01/fridgesnap/internal/retry"
)

const service = "gemini"

type Log interface {
	Debug(string, ...zap.Field)
	Warn(string, ...zap.Field)
}

type Client struct {
	baseURL string
	model   string
	apiKey  string
	http    *http.Client
	policy  retry.Policy
	log     Log
	now     func() time.Time
}

type Option func(*Client)

// WithHTTPClient replaces the default client with a 60s timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Client) {
		g.http = c
	}
}

// WithClock replaces time.Now when defaulting dates.
func WithClock(now func() time.Time) Option {
	return func(g *Client) {
		g.now = now
	}
}

func NewClient(baseURL, model, apiKey string, policy retry.Policy, log Log, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 60 * time.Second},
		policy:  policy,
		log:     log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMimeType string  `json:"responseMimeType"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

func textPart(s string) part {
	return part{Text: s}
}

func imagePart(mimeType string, data []byte) part {
	return part{InlineData: &inlineData{
		MimeType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(data),
	}}
}

// generateJSON sends parts as one user turn and decodes the JSON object the
// model answers with into out. Rate limited calls are retried.
func (c *Client) generateJSON(ctx context.Context, temperature float64, out any, parts ...part) error {
	if !c.Configured() {
		return &apierr.Error{Service: service, StatusCode: http.StatusUnauthorized, Message: "missing API key"}
	}

	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: parts}},
		GenerationConfig: generationConfig{
			Temperature:      temperature,
			MaxOutputTokens:  2048,
			ResponseMimeType: "application/json",
		},
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	var text string
	err = retry.Do(ctx, c.policy, c.log, func(ctx context.Context) error {
		var callErr error
		text, callErr = c.call(ctx, payload)
		return callErr
	})
	if err != nil {
		return err
	}

	raw, err := extractJSON(text)
	if err != nil {
		return apierr.BadResponse(service, "%v", err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return apierr.BadResponse(service, "decode model output: %v", err)
	}
	return nil
}

func (c *Client) call(ctx context.Context, payload []byte) (string, error) {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		c.baseURL, url.PathEscape(c.model), url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read gemini response: %w", err)
	}
	if err := apierr.FromResponse(service, resp, raw); err != nil {
		return "", err
	}

	var result generateResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", apierr.BadResponse(service, "decode response: %v", err)
	}
	if result.PromptFeedback.BlockReason != "" {
		return "", apierr.BadResponse(service, "prompt blocked: %s", result.PromptFeedback.BlockReason)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", apierr.BadResponse(service, "empty response")
	}

	var sb strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	c.log.Debug("gemini answered",
		zap.String("model", c.model),
		zap.String("finish_reason", result.Candidates[0].FinishReason),
		zap.Int("chars", sb.Len()))
	return sb.String(), nil
}
