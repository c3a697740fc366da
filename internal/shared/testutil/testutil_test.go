package testutil

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureHandler(t *testing.T) {
	logger, h := NewTestLogger(t)

	scoped := logger.With(slog.String("component", "loader")).WithGroup("req")
	scoped.Info("dataset loaded", slog.Int("records", 4))
	logger.Warn("reload failed", slog.String("error", "boom"))

	records := h.Records()
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, slog.LevelInfo, first.Level)
	assert.Equal(t, "loader", first.Attrs["component"])
	assert.EqualValues(t, 4, first.Attrs["req.records"])

	assert.Len(t, h.RecordsAt(slog.LevelWarn), 1)
	rec, ok := h.Find("reload")
	require.True(t, ok)
	assert.Equal(t, "boom", rec.Attrs["error"])

	_, ok = h.Find("never logged")
	assert.False(t, ok)

	AssertLogged(t, h, slog.LevelWarn, "reload failed")
	AssertNoErrors(t, h)
}

func TestWriteCampaigns(t *testing.T) {
	dir := t.TempDir()

	path := WriteCampaigns(t, dir)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, CampaignsCSV, string(data))

	WriteCampaigns(t, dir, "Facebook,2019-01-03,75,1500,8,1")
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, CampaignsCSV+"Facebook,2019-01-03,75,1500,8,1\n", string(data))

	assert.Len(t, CampaignRecords(t), 4)
}
