package retry

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aoi01/fridgesnap/internal/apierr"
	"github.com/aoi01/fridgesnap/internal/logger"
)

type recordingLog struct {
	warnings int
}

func (l *recordingLog) Warn(string, ...zap.Field) { l.warnings++ }

func fastPolicy() Policy {
	return Policy{
		MaxRetries:      3,
		InitialInterval: time.Millisecond,
		MaxInterval:     4 * time.Millisecond,
		Multiplier:      2,
	}
}

var rateLimited = &apierr.Error{Service: "test", StatusCode: http.StatusTooManyRequests}

func TestDo_SucceedsAfterRateLimit(t *testing.T) {
	log := &recordingLog{}
	calls := 0

	err := Do(context.Background(), fastPolicy(), log, func(context.Context) error {
		calls++
		if calls < 3 {
			return rateLimited
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, log.warnings)
}

func TestDo_GivesUpAfterMaxRetries(t *testing.T) {
	calls := 0

	err := Do(context.Background(), fastPolicy(), nil, func(context.Context) error {
		calls++
		return rateLimited
	})

	require.Error(t, err)
	assert.True(t, apierr.IsRetryable(err))
	assert.Equal(t, 4, calls)
}

func TestDo_DoesNotRetryOtherErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"unauthorized", &apierr.Error{Service: "test", StatusCode: http.StatusUnauthorized}},
		{"server error", &apierr.Error{Service: "test", StatusCode: http.StatusInternalServerError}},
		{"transport", errors.New("connection refused")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Do(context.Background(), fastPolicy(), nil, func(context.Context) error {
				calls++
				return tt.err
			})

			assert.Equal(t, 1, calls)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestDo_StopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := fastPolicy()
	p.InitialInterval = time.Hour
	p.MaxInterval = time.Hour

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, p, nil, func(context.Context) error {
			calls++
			return rateLimited
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("retry did not observe cancellation")
	}
	assert.Equal(t, 1, calls)
}

func TestDo_AcceptsNilLogger(t *testing.T) {
	var log *logger.Logger
	calls := 0

	assert.NotPanics(t, func() {
		err := Do(context.Background(), fastPolicy(), log, func(context.Context) error {
			calls++
			if calls < 2 {
				return rateLimited
			}
			return nil
		})
		assert.NoError(t, err)
	})
	assert.Equal(t, 2, calls)
}
