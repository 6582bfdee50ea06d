package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecosense/alertkit/pkg/logger"
)

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf))

	log.Info("queue drained", slog.Int("pending", 0))
	log.Debug("dropped below default level")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "queue drained", record["msg"])
	assert.EqualValues(t, 0, record["pending"])
	assert.NotContains(t, buf.String(), "dropped below default level")
}

func TestNew_TextFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithFormat(logger.FormatText),
		logger.WithLevel(slog.LevelDebug),
	)

	log.Debug("worker started")

	assert.Contains(t, buf.String(), "msg=\"worker started\"")
}

func TestNew_StaticAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithAttr(slog.String("component", "notification_worker")),
	)

	log.Info("task delivered")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "notification_worker", record["component"])
}

func TestWithEnvironment(t *testing.T) {
	t.Parallel()

	t.Run("production preset", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(
			logger.WithOutput(&buf),
			logger.WithEnvironment("production", "alertd"),
		)

		log.Debug("hidden at info level")
		log.Info("visible")

		require.Equal(t, 1, strings.Count(buf.String(), "\n"))

		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Equal(t, "alertd", record["service"])
		assert.Equal(t, "production", record["env"])
	})

	t.Run("unknown env falls back to development", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(
			logger.WithOutput(&buf),
			logger.WithEnvironment("local", "alertd"),
		)

		log.Debug("debug visible in development")

		assert.Contains(t, buf.String(), "env=development")
	})
}

func TestWithFormat_PanicsOnUnknown(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		logger.New(logger.WithFormat(logger.Format("yaml")))
	})
}
