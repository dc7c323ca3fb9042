package model

import "time"

// TrafficSample is one collector observation for a tunnel: the cumulative
// counters reported by charon plus the delta since the previous sample.
// Samples are immutable once written and pruned by age.
type TrafficSample struct {
	ID       uint `json:"id" gorm:"primaryKey;autoIncrement"`
	TunnelID uint `json:"tunnel_id" gorm:"index;not null"`

	BytesIn    uint64 `json:"bytes_in"`
	BytesOut   uint64 `json:"bytes_out"`
	PacketsIn  uint64 `json:"packets_in"`
	PacketsOut uint64 `json:"packets_out"`

	BytesInDelta  uint64 `json:"bytes_in_delta"`
	BytesOutDelta uint64 `json:"bytes_out_delta"`

	Timestamp time.Time `json:"timestamp" gorm:"index"`
}

// TunnelStatus is the live view of a tunnel resolved from the daemon's SA
// listing. It is derived, never stored.
type TunnelStatus struct {
	TunnelID    uint            `json:"tunnel_id"`
	IkeState    string          `json:"ike_state"` // ESTABLISHED, CONNECTING, DISCONNECTED
	LocalHost   string          `json:"local_host"`
	RemoteHost  string          `json:"remote_host"`
	Initiator   bool            `json:"initiator"`
	Established int64           `json:"established_time"` // seconds since established
	RekeyTime   int64           `json:"rekey_time"`       // seconds until rekey
	ChildSas    []ChildSaStatus `json:"child_sas"`
}

// ChildSaStatus summarizes one live child SA under an IKE SA.
type ChildSaStatus struct {
	Name       string `json:"name"`
	State      string `json:"state"`
	BytesIn    uint64 `json:"bytes_in"`
	BytesOut   uint64 `json:"bytes_out"`
	PacketsIn  uint64 `json:"packets_in"`
	PacketsOut uint64 `json:"packets_out"`
}
