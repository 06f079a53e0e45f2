// Package recipes searches a third-party recipe API for dishes that use up
// what is in the basket.
package recipes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aoi01/fridgesnap/internal/apierr"
	"github.com/aoi01/fridgesnap/internal/cache"
	"github.com/aoi01/fridgesnap/internal/retry"
	"github.com/aoi01/fridgesnap/internal/validation"
)

const (
	service  = "recipe api"
	callback = "fridgesnap"
)

type Log interface {
	Debug(string, ...zap.Field)
	Warn(string, ...zap.Field)
}

// Recipe is one search hit. Matched counts the basket ingredients that
// appear in Materials.
type Recipe struct {
	Title      string   `json:"title"`
	URL        string   `json:"url"`
	ImageURL   string   `json:"imageUrl"`
	Materials  []string `json:"materials"`
	Indication string   `json:"indication"`
	Cost       string   `json:"cost"`
	Matched    int      `json:"matched"`
}

type Client struct {
	baseURL string
	appID   string
	http    *http.Client
	cache   cache.Cache
	ttl     time.Duration
	policy  retry.Policy
	log     Log
}

func NewClient(baseURL, appID string, c cache.Cache, ttl time.Duration, policy retry.Policy, log Log) *Client {
	return &Client{
		baseURL: baseURL,
		appID:   appID,
		http:    &http.Client{Timeout: 10 * time.Second},
		cache:   c,
		ttl:     ttl,
		policy:  policy,
		log:     log,
	}
}

// Search looks recipes up by keyword, or by the basket ingredient names when
// keyword is empty, and ranks them by how much of the basket they use.
func (c *Client) Search(ctx context.Context, keyword string, basket []string) ([]Recipe, error) {
	keyword = normalize(keyword)
	if keyword == "" {
		keyword = normalize(strings.Join(basket, " "))
	}
	if keyword == "" {
		return nil, validation.Newf("keyword", "required")
	}

	found, err := c.lookup(ctx, keyword)
	if err != nil {
		return nil, err
	}
	return Rank(found, basket), nil
}

func (c *Client) lookup(ctx context.Context, keyword string) ([]Recipe, error) {
	key := "recipes:" + keyword
	if c.cache != nil {
		if b, ok, err := c.cache.Get(ctx, key); err == nil && ok {
			var cached []Recipe
			if json.Unmarshal(b, &cached) == nil {
				c.log.Debug("recipe cache hit", zap.String("keyword", keyword))
				return cached, nil
			}
		}
	}

	var found []Recipe
	err := retry.Do(ctx, c.policy, c.log, func(ctx context.Context) error {
		var callErr error
		found, callErr = c.fetch(ctx, keyword)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if b, err := json.Marshal(found); err == nil {
			if err := c.cache.Set(ctx, key, b, c.ttl); err != nil {
				c.log.Warn("failed to cache recipes", zap.Error(err))
			}
		}
	}
	return found, nil
}

type searchResponse struct {
	Result []struct {
		RecipeTitle      string   `json:"recipeTitle"`
		RecipeURL        string   `json:"recipeUrl"`
		FoodImageURL     string   `json:"foodImageUrl"`
		RecipeMaterial   []string `json:"recipeMaterial"`
		RecipeIndication string   `json:"recipeIndication"`
		RecipeCost       string   `json:"recipeCost"`
	} `json:"result"`
}

func (c *Client) fetch(ctx context.Context, keyword string) ([]Recipe, error) {
	if c.appID == "" {
		return nil, &apierr.Error{Service: service, StatusCode: http.StatusUnauthorized, Message: "missing application id"}
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse recipe api url: %w", err)
	}
	q := u.Query()
	q.Set("applicationId", c.appID)
	q.Set("format", "json")
	q.Set("keyword", keyword)
	q.Set("callback", callback)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call recipe api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe api response: %w", err)
	}
	body = StripJSONP(body)
	if err := apierr.FromResponse(service, resp, body); err != nil {
		return nil, err
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, apierr.BadResponse(service, "decode response: %v", err)
	}

	out := make([]Recipe, 0, len(sr.Result))
	for _, r := range sr.Result {
		out = append(out, Recipe{
			Title:      r.RecipeTitle,
			URL:        r.RecipeURL,
			ImageURL:   r.FoodImageURL,
			Materials:  r.RecipeMaterial,
			Indication: r.RecipeIndication,
			Cost:       r.RecipeCost,
		})
	}
	c.log.Debug("recipes fetched", zap.String("keyword", keyword), zap.Int("count", len(out)))
	return out, nil
}

// StripJSONP removes a `name(...)` wrapper, with or without a trailing
// semicolon. Plain JSON is returned unchanged.
func StripJSONP(body []byte) []byte {
	b := bytes.TrimSpace(body)
	if len(b) == 0 || b[0] == '{' || b[0] == '[' {
		return b
	}
	open := bytes.IndexByte(b, '(')
	if open <= 0 {
		return b
	}
	b = bytes.TrimSuffix(b, []byte(";"))
	b = bytes.TrimSpace(b)
	if !bytes.HasSuffix(b, []byte(")")) {
		return body
	}
	return bytes.TrimSpace(b[open+1 : len(b)-1])
}

// Rank scores every recipe against basket and orders them by score. Recipes
// with equal scores keep their original order.
func Rank(found []Recipe, basket []string) []Recipe {
	names := make([]string, 0, len(basket))
	for _, n := range basket {
		if n = normalize(n); n != "" {
			names = append(names, n)
		}
	}

	out := make([]Recipe, len(found))
	copy(out, found)
	for i := range out {
		out[i].Matched = matches(out[i].Materials, names)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Matched > out[j].Matched })
	return out
}

func matches(materials, names []string) int {
	n := 0
	for _, name := range names {
		for _, m := range materials {
			if strings.Contains(strings.ToLower(m), name) {
				n++
				break
			}
		}
	}
	return n
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
