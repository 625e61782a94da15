package helper

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPrettyHandler(t *testing.T) {
	t.Run("Creates handler with default options", func(t *testing.T) {
		var buf bytes.Buffer
		handler := NewPrettyHandler(&buf, PrettyHandlerOptions{})

		require.NotNil(t, handler)
		assert.NotNil(t, handler.Handler)
		assert.NotNil(t, handler.l)
	})

	t.Run("Creates handler with custom level and source", func(t *testing.T) {
		var buf bytes.Buffer
		handler := NewPrettyHandler(&buf, PrettyHandlerOptions{
			SlogOpts: slog.HandlerOptions{
				Level:     slog.LevelDebug,
				AddSource: true,
			},
		})

		assert.NotNil(t, handler)
	})
}

func TestPrettyHandlerHandle(t *testing.T) {
	ctx := context.Background()

	newHandler := func(buf *bytes.Buffer, level slog.Level) *PrettyHandler {
		return NewPrettyHandler(buf, PrettyHandlerOptions{
			SlogOpts: slog.HandlerOptions{Level: level},
		})
	}

	t.Run("Writes level tag, message and attributes per level", func(t *testing.T) {
		levels := map[slog.Level]string{
			slog.LevelDebug: "DEBUG:",
			slog.LevelInfo:  "INFO:",
			slog.LevelWarn:  "WARN:",
			slog.LevelError: "ERROR:",
		}

		for level, tag := range levels {
			var buf bytes.Buffer
			handler := newHandler(&buf, slog.LevelDebug)

			record := slog.NewRecord(time.Now(), level, "chunking document", 0)
			record.AddAttrs(slog.String("document", "react-notes"), slog.Int("chunks", 7))
			require.NoError(t, handler.Handle(ctx, record))

			output := buf.String()
			assert.Contains(t, output, tag)
			assert.Contains(t, output, "chunking document")
			assert.Contains(t, output, "document")
			assert.Contains(t, output, "react-notes")
			assert.Contains(t, output, "7")
		}
	})

	t.Run("Record without attributes prints an empty object", func(t *testing.T) {
		var buf bytes.Buffer
		handler := newHandler(&buf, slog.LevelInfo)

		record := slog.NewRecord(time.Now(), slog.LevelInfo, "index rebuilt", 0)
		require.NoError(t, handler.Handle(ctx, record))

		assert.Contains(t, buf.String(), "index rebuilt")
		assert.Contains(t, buf.String(), "{}")
	})

	t.Run("Nested attribute values are rendered", func(t *testing.T) {
		var buf bytes.Buffer
		handler := newHandler(&buf, slog.LevelInfo)

		record := slog.NewRecord(time.Now(), slog.LevelInfo, "stored document", 0)
		record.AddAttrs(slog.Any("metadata", map[string]interface{}{"topic": "react"}))
		require.NoError(t, handler.Handle(ctx, record))

		assert.Contains(t, buf.String(), "metadata")
		assert.Contains(t, buf.String(), "react")
	})

	t.Run("Timestamp is bracketed with millisecond precision", func(t *testing.T) {
		var buf bytes.Buffer
		handler := newHandler(&buf, slog.LevelInfo)

		record := slog.NewRecord(time.Now(), slog.LevelInfo, "search finished", 0)
		require.NoError(t, handler.Handle(ctx, record))

		assert.Regexp(t, `\[\d{2}:\d{2}:\d{2}\.\d{3}\]`, buf.String())
	})
}
