package service

import (
	"time"

	"github.com/EdoardoFiore/madmin-strongswan/database"
	"github.com/EdoardoFiore/madmin-strongswan/database/model"
	"github.com/EdoardoFiore/madmin-strongswan/logger"
)

// StatusNotifier, when set, is called whenever the collector observes a
// tunnel change status. The telegram bot hooks in here.
var StatusNotifier func(tunnelName, oldStatus, newStatus string)

type StatsService struct{}

// counterDelta computes the traffic delta between two cumulative samples.
// When the current value is below the previous one the daemon's counters
// were reset by a reconnect, so the first sample after the reset is
// attributed its full observed traffic instead of zero.
func counterDelta(cur, prev uint64) uint64 {
	if cur >= prev {
		return cur - prev
	}
	return cur
}

// SaveStats samples traffic counters for every enabled tunnel and persists
// one TrafficSample per tunnel. A single tunnel's resolution failure skips
// that tunnel only. The observed IKE state also drives the stored tunnel
// status.
func (s *StatsService) SaveStats() error {
	db := database.GetDB()
	vici := NewViciService()

	var tunnels []model.Tunnel
	if err := db.Where("enabled = ?", true).Find(&tunnels).Error; err != nil {
		return err
	}

	now := time.Now()
	for i := range tunnels {
		tunnel := &tunnels[i]

		live, err := vici.Resolve(tunnel.Name)
		if err != nil {
			logger.Debug("Skipping stats for tunnel '", tunnel.Name, "': ", err)
			continue
		}

		observed := model.TunnelDisconnected
		if live != nil {
			switch live.IkeState {
			case saEstablished:
				observed = model.TunnelEstablished
			case saConnecting:
				observed = model.TunnelConnecting
			}
		}
		if observed != tunnel.Status {
			if StatusNotifier != nil {
				StatusNotifier(tunnel.Name, tunnel.Status, observed)
			}
			if err := db.Model(tunnel).Update("status", observed).Error; err != nil {
				logger.Warning("Failed to update status of tunnel '", tunnel.Name, "': ", err)
			}
		}
		if live == nil {
			continue
		}

		var cur model.TrafficSample
		cur.TunnelID = tunnel.ID
		cur.Timestamp = now
		for _, child := range live.ChildSas {
			cur.BytesIn += child.BytesIn
			cur.BytesOut += child.BytesOut
			cur.PacketsIn += child.PacketsIn
			cur.PacketsOut += child.PacketsOut
		}

		var prev model.TrafficSample
		err = db.Where("tunnel_id = ?", tunnel.ID).Order("timestamp desc").First(&prev).Error
		if err == nil {
			cur.BytesInDelta = counterDelta(cur.BytesIn, prev.BytesIn)
			cur.BytesOutDelta = counterDelta(cur.BytesOut, prev.BytesOut)
		} else if !database.IsNotFound(err) {
			logger.Warning("Failed to load previous sample for tunnel '", tunnel.Name, "': ", err)
			continue
		}

		if err := db.Create(&cur).Error; err != nil {
			logger.Warning("Failed to save traffic sample for tunnel '", tunnel.Name, "': ", err)
		}
	}
	return nil
}

// DelOldStats removes traffic samples older than the retention window.
func (s *StatsService) DelOldStats(days int) error {
	cutoff := time.Now().AddDate(0, 0, -days)
	return database.GetDB().
		Where("timestamp < ?", cutoff).
		Delete(&model.TrafficSample{}).Error
}

// GetTrafficHistory returns the samples of a tunnel within a charting
// window: "1h", "6h", "24h" or "7d" (default 24h), oldest first.
func (s *StatsService) GetTrafficHistory(tunnelID uint, period string) ([]model.TrafficSample, error) {
	windows := map[string]time.Duration{
		"1h":  time.Hour,
		"6h":  6 * time.Hour,
		"24h": 24 * time.Hour,
		"7d":  7 * 24 * time.Hour,
	}
	window, ok := windows[period]
	if !ok {
		window = 24 * time.Hour
	}
	since := time.Now().Add(-window)

	var samples []model.TrafficSample
	err := database.GetDB().
		Where("tunnel_id = ? AND timestamp >= ?", tunnelID, since).
		Order("timestamp asc").
		Find(&samples).Error
	return samples, err
}
