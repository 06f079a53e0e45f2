package gemini

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
)

var errNoJSON = errors.New("model output contains no JSON object")

// extractJSON reduces model output to its outermost JSON object. Models
// sometimes wrap the answer in markdown fences or a sentence of prose.
func extractJSON(s string) (string, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return "", errNoJSON
	}
	s = s[start : end+1]
	if !json.Valid([]byte(s)) {
		return "", errors.New("model output is not valid JSON")
	}
	return s, nil
}

// number accepts 3, 3.0 and "3" alike.
type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = 0
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*n = number(f)
		return nil
	}
	var s json.Number
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	f, err := s.Float64()
	if err != nil {
		return err
	}
	*n = number(f)
	return nil
}

func (n number) Int() int {
	f := math.Round(float64(n))
	switch {
	case f > math.MaxInt32:
		return math.MaxInt32
	case f < math.MinInt32:
		return math.MinInt32
	}
	return int(f)
}
