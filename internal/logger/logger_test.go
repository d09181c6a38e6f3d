package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogger(t *testing.T) {
	t.Parallel()
	assert.NotNil(t, Logger())
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	t.Run("empty context returns default", func(t *testing.T) {
		t.Parallel()
		l := FromContext(context.Background())
		assert.Equal(t, defaultLogger, l)
	})

	t.Run("request id enriches logger", func(t *testing.T) {
		t.Parallel()
		ctx := WithRequestID(context.Background(), "req-123")
		l := FromContext(ctx)
		assert.NotEqual(t, defaultLogger, l)
	})

	t.Run("run id enriches logger", func(t *testing.T) {
		t.Parallel()
		ctx := WithRunID(context.Background(), "c1a6e0ab")
		l := FromContext(ctx)
		assert.NotEqual(t, defaultLogger, l)
	})

	t.Run("blank values are ignored", func(t *testing.T) {
		t.Parallel()
		ctx := WithRunID(WithRequestID(context.Background(), ""), "")
		l := FromContext(ctx)
		assert.Equal(t, defaultLogger, l)
	})
}
