package apierr

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromResponse(t *testing.T) {
	tests := []struct {
		status   int
		body     string
		kind     Kind
		message  string
		userText string
	}{
		{401, `{"error":"bad key"}`, KindUnauthorized, "bad key", "gemini: API key is invalid or lacks permission"},
		{403, `{"error":{"code":403,"message":"permission denied"}}`, KindUnauthorized, "permission denied", "gemini: API key is invalid or lacks permission"},
		{429, `quota`, KindRateLimited, "quota", "gemini: too many requests, try again later"},
		{500, ``, KindUnavailable, "", "gemini: service is temporarily unavailable"},
		{503, `overloaded`, KindUnavailable, "overloaded", "gemini: service is temporarily unavailable"},
		{400, `{"error":"bad request"}`, KindBadResponse, "bad request", "gemini: unexpected response"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := FromResponse("gemini", &http.Response{StatusCode: tt.status}, []byte(tt.body))
			require.Error(t, err)

			e, ok := As(fmt.Errorf("wrapped: %w", err))
			require.True(t, ok)
			assert.Equal(t, tt.kind, e.Kind())
			assert.Equal(t, tt.message, e.Message)
			assert.Equal(t, tt.userText, e.UserMessage())
		})
	}
}

func TestFromResponse_Success(t *testing.T) {
	assert.NoError(t, FromResponse("recipes", &http.Response{StatusCode: http.StatusOK}, nil))
	assert.NoError(t, FromResponse("recipes", &http.Response{StatusCode: http.StatusNoContent}, nil))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&Error{StatusCode: http.StatusTooManyRequests}))
	assert.True(t, IsRetryable(fmt.Errorf("call: %w", &Error{StatusCode: http.StatusTooManyRequests})))
	assert.False(t, IsRetryable(&Error{StatusCode: http.StatusServiceUnavailable}))
	assert.False(t, IsRetryable(fmt.Errorf("plain")))
}

func TestBodyMessageTruncates(t *testing.T) {
	err := FromResponse("recipes", &http.Response{StatusCode: 502}, []byte(strings.Repeat("x", 500)))
	e, ok := As(err)
	require.True(t, ok)
	assert.Len(t, e.Message, maxBodyInError+3)
}

func TestBadResponse(t *testing.T) {
	err := BadResponse("gemini", "empty candidates")
	e, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, KindBadResponse, e.Kind())
	assert.Equal(t, "gemini: empty candidates", err.Error())
}
