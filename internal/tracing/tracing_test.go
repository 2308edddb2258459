package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"follow-exchange/internal/config/configs"
)

func TestInitExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Init(configs.Tracing{Enabled: true, ServiceName: "test"}, "dev", &buf)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "exchange.watch_ad")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "exchange.watch_ad")
}

func TestInitDisabled(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Init(configs.Tracing{}, "dev", &buf)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "ignored")
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Empty(t, buf.String())
}
