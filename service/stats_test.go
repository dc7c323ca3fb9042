package service

import (
	"path"
	"testing"
	"time"

	"github.com/EdoardoFiore/madmin-strongswan/database"
	"github.com/EdoardoFiore/madmin-strongswan/database/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterDelta(t *testing.T) {
	// Normal growth.
	assert.Equal(t, uint64(500), counterDelta(1500, 1000))
	// No traffic.
	assert.Equal(t, uint64(0), counterDelta(1000, 1000))
	// Counter reset: the first sample after a reconnect is attributed its
	// full observed traffic.
	assert.Equal(t, uint64(400), counterDelta(400, 500))
	assert.Equal(t, uint64(0), counterDelta(0, 12345))
}

func setupStatsDB(t *testing.T) {
	t.Helper()
	dbPath := path.Join(t.TempDir(), "madmin.db")
	require.NoError(t, database.InitDB(dbPath))
}

func TestDelOldStats(t *testing.T) {
	setupStatsDB(t)
	db := database.GetDB()

	tunnel := model.Tunnel{Name: "branch-a", RemoteAddress: "198.51.100.7"}
	require.NoError(t, db.Create(&tunnel).Error)

	now := time.Now()
	samples := []model.TrafficSample{
		{TunnelID: tunnel.ID, Timestamp: now.AddDate(0, 0, -40)},
		{TunnelID: tunnel.ID, Timestamp: now.AddDate(0, 0, -10)},
		{TunnelID: tunnel.ID, Timestamp: now},
	}
	require.NoError(t, db.Create(&samples).Error)

	s := StatsService{}
	require.NoError(t, s.DelOldStats(30))

	var count int64
	require.NoError(t, db.Model(&model.TrafficSample{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestGetTrafficHistoryWindows(t *testing.T) {
	setupStatsDB(t)
	db := database.GetDB()

	tunnel := model.Tunnel{Name: "branch-b", RemoteAddress: "198.51.100.8"}
	require.NoError(t, db.Create(&tunnel).Error)

	now := time.Now()
	samples := []model.TrafficSample{
		{TunnelID: tunnel.ID, BytesInDelta: 1, Timestamp: now.Add(-30 * time.Minute)},
		{TunnelID: tunnel.ID, BytesInDelta: 2, Timestamp: now.Add(-5 * time.Hour)},
		{TunnelID: tunnel.ID, BytesInDelta: 3, Timestamp: now.Add(-20 * time.Hour)},
		{TunnelID: tunnel.ID, BytesInDelta: 4, Timestamp: now.Add(-3 * 24 * time.Hour)},
	}
	require.NoError(t, db.Create(&samples).Error)

	s := StatsService{}

	hour, err := s.GetTrafficHistory(tunnel.ID, "1h")
	require.NoError(t, err)
	assert.Len(t, hour, 1)

	day, err := s.GetTrafficHistory(tunnel.ID, "24h")
	require.NoError(t, err)
	assert.Len(t, day, 3)

	week, err := s.GetTrafficHistory(tunnel.ID, "7d")
	require.NoError(t, err)
	assert.Len(t, week, 4)
	// Oldest first.
	assert.Equal(t, uint64(4), week[0].BytesInDelta)

	// Unknown period falls back to 24h.
	fallback, err := s.GetTrafficHistory(tunnel.ID, "bogus")
	require.NoError(t, err)
	assert.Len(t, fallback, 3)
}
