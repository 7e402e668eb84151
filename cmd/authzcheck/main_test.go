package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogHandlerWithoutAuditLog(t *testing.T) {
	handler, closeHandler, err := newLogHandler("json", "")
	require.NoError(t, err)
	defer closeHandler()

	assert.True(t, handler.Enabled(context.Background(), slog.LevelInfo))
}

func TestNewLogHandlerFansDeniedDecisionsToAuditFile(t *testing.T) {
	auditPath := filepath.Join(t.TempDir(), "audit.log")

	handler, closeHandler, err := newLogHandler("json", auditPath)
	require.NoError(t, err)

	logger := slog.New(handler)
	logger.Info("access decision", "granted", true)
	logger.Warn("access decision", "granted", false, "path", "/secret")

	require.NoError(t, closeHandler())

	data, err := os.ReadFile(auditPath)
	require.NoError(t, err)

	// Only the Warn-level denied decision reaches the audit file; the
	// Info-level granted one does not.
	assert.Contains(t, string(data), `"granted":false`)
	assert.NotContains(t, string(data), `"granted":true`)
}

func TestNewLogHandlerRejectsUnwritableAuditPath(t *testing.T) {
	_, _, err := newLogHandler("json", filepath.Join(t.TempDir(), "missing-dir", "audit.log"))
	require.Error(t, err)
}
