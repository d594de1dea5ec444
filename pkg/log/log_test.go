package log_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabmaster/tabmaster/pkg/log"
)

func TestGetLevel(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		"debug":         {input: "debug", want: slog.LevelDebug},
		"info":          {input: "info", want: slog.LevelInfo},
		"mixed case":    {input: "WARN", want: slog.LevelWarn},
		"warning alias": {input: "warning", want: slog.LevelWarn},
		"error":         {input: "error", want: slog.LevelError},
		"unknown":       {input: "verbose", wantErr: true},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := log.GetLevel(tc.input)
			if tc.wantErr {
				require.ErrorIs(t, err, log.ErrUnknownLogLevel)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetFormat(t *testing.T) {
	t.Parallel()

	got, err := log.GetFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, log.FormatJSON, got)

	_, err = log.GetFormat("xml")
	require.ErrorIs(t, err, log.ErrUnknownLogFormat)
}

func TestCreateHandlerWithStrings(t *testing.T) {
	t.Parallel()

	for _, format := range log.AllFormats {
		h, err := log.CreateHandlerWithStrings(io.Discard, "info", format)
		require.NoError(t, err)
		assert.NotNil(t, h)
	}

	_, err := log.CreateHandlerWithStrings(io.Discard, "bogus", "text")
	require.Error(t, err)
}

func TestWithContext_PrefersStoredLogger(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := log.IntoContext(t.Context(), logger)

	assert.Same(t, logger, log.WithContext(ctx))
	assert.NotSame(t, logger, log.WithContext(t.Context()))
}
