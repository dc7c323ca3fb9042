package model

import (
	"time"
)

// Tunnel statuses as observed via VICI polling. The stored value is derived
// state, never authoritative.
const (
	TunnelDisconnected = "disconnected"
	TunnelConnecting   = "connecting"
	TunnelEstablished  = "established"
)

// Tunnel represents a site-to-site IPsec connection (Phase 1 - IKE SA).
// A tunnel can have multiple Child SAs (Phase 2) for different traffic selectors.
type Tunnel struct {
	ID      uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	Name    string `json:"name" gorm:"uniqueIndex;not null"`
	Enabled bool   `json:"enabled" gorm:"default:true"`

	IkeVersion string `json:"ike_version" gorm:"default:'2'"` // "1" or "2"
	Mode       string `json:"mode" gorm:"default:'main'"`     // "main" or "aggressive" (IKEv1 only)

	LocalAddress  string `json:"local_address"` // local gateway IP, empty means %any
	RemoteAddress string `json:"remote_address" gorm:"not null"`

	LocalID  string `json:"local_id"`
	RemoteID string `json:"remote_id"`

	AuthMethod string `json:"auth_method" gorm:"default:'psk'"` // "psk" or "pubkey"
	Psk        string `json:"psk,omitempty"`                    // rendered only into the secrets file

	IkeProposal string `json:"ike_proposal" gorm:"default:'aes256-sha256-modp2048'"`
	IkeLifetime int    `json:"ike_lifetime" gorm:"default:28800"` // seconds

	DpdAction string `json:"dpd_action" gorm:"default:'restart'"` // "restart", "clear", "none"
	DpdDelay  int    `json:"dpd_delay" gorm:"default:30"`         // seconds

	NatTraversal bool `json:"nat_traversal" gorm:"default:true"`

	Status string `json:"status" gorm:"default:'disconnected'"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ChildSas []ChildSa `json:"child_sas,omitempty" gorm:"constraint:OnDelete:CASCADE"`
}

// ChildSa represents a Phase 2 security association: a traffic-selector pair
// with ESP parameters, plus the packet-filter policy guarding that pair.
type ChildSa struct {
	ID       uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	TunnelID uint   `json:"tunnel_id" gorm:"index;not null"`
	Name     string `json:"name" gorm:"not null"`

	LocalTs  string `json:"local_ts" gorm:"not null"`  // CIDR, e.g. "192.168.1.0/24"
	RemoteTs string `json:"remote_ts" gorm:"not null"` // CIDR, e.g. "10.0.0.0/24"

	EspProposal string `json:"esp_proposal" gorm:"default:'aes256-sha256-modp2048'"`
	EspLifetime int    `json:"esp_lifetime" gorm:"default:3600"` // seconds

	PfsGroup string `json:"pfs_group" gorm:"default:'modp2048'"` // DH group, empty disables PFS

	StartAction string `json:"start_action" gorm:"default:'trap'"`    // "none", "start", "trap"
	CloseAction string `json:"close_action" gorm:"default:'restart'"` // "none", "restart", "clear"

	Enabled bool `json:"enabled" gorm:"default:true"`

	// Default chain policies applied after the ordered rules.
	PolicyIn  string `json:"policy_in" gorm:"default:'ACCEPT'"`
	PolicyOut string `json:"policy_out" gorm:"default:'ACCEPT'"`

	Rules []FirewallRule `json:"rules,omitempty" gorm:"constraint:OnDelete:CASCADE"`
}

// Firewall rule directions.
const (
	RuleDirIn   = "in"
	RuleDirOut  = "out"
	RuleDirBoth = "both"
)

// FirewallRule is one entry of a Child SA's per-direction chain. Rules apply
// in ascending Sort order; the chain's default policy applies last.
type FirewallRule struct {
	ID        uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	ChildSaID uint   `json:"child_sa_id" gorm:"index;not null"`
	Sort      int    `json:"sort" gorm:"default:0"`
	Direction string `json:"direction" gorm:"default:'both'"` // "in", "out", "both"

	Protocol    string `json:"protocol"` // "tcp", "udp", "icmp", empty for any
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Port        string `json:"port"` // destination port or range
	Description string `json:"description"`

	Action string `json:"action" gorm:"default:'ACCEPT'"` // "ACCEPT", "DROP", "REJECT"
}
