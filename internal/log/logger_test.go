// SPDX-License-Identifier: MIT

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestConfigure_AttachesServiceAndVersion(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "vgrab", Version: "v1.2.3"})

	logger := WithComponent("test")
	logger.Info().Msg("hello")

	entry := captureLine(t, &buf)
	assert.Equal(t, "vgrab", entry["service"])
	assert.Equal(t, "v1.2.3", entry["version"])
	assert.Equal(t, "test", entry["component"])
	assert.Equal(t, "hello", entry["message"])
}

func TestFromContext_EnrichesWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf})

	ctx := ContextWithRequestID(context.Background(), "req-123")
	FromContext(ctx).Info().Msg("x")

	entry := captureLine(t, &buf)
	assert.Equal(t, "req-123", entry["request_id"])
}

func TestFromContext_NoIDsFallsBackToBase(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf})

	FromContext(context.Background()).Info().Msg("x")

	entry := captureLine(t, &buf)
	_, present := entry["request_id"]
	assert.False(t, present)
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "abc")
	assert.Equal(t, "abc", RequestIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(context.Background()))

	ctx = ContextWithCorrelationID(ctx, "corr")
	assert.Equal(t, "corr", CorrelationIDFromContext(ctx))
}
