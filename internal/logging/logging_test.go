package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"warn", zerolog.WarnLevel},
		{"off", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"nonsense", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNew_JSONToBuffer(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "info", Format: "auto", Output: &buf})

	logger.Info().Str("page", "Journal/1925").Msg("resolved")
	logger.Debug().Msg("hidden")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "Journal/1925", line["page"])
	assert.Equal(t, "resolved", line["message"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestWithRunID(t *testing.T) {
	var buf bytes.Buffer
	base := New(&Config{Level: "info", Format: "json", Output: &buf})
	ctx := WithLogger(context.Background(), &base)

	ctx, id := WithRunID(ctx, "")
	require.NotEmpty(t, id)
	assert.Equal(t, id, RunID(ctx))

	FromContext(ctx).Info().Msg("hello")
	assert.Contains(t, buf.String(), id)

	_, fixed := WithRunID(context.Background(), "run-1")
	assert.Equal(t, "run-1", fixed)
}

func TestFromContext_Default(t *testing.T) {
	assert.Same(t, Default(), FromContext(context.Background()))
}
