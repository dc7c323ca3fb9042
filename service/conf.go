package service

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/EdoardoFiore/madmin-strongswan/config"
	"github.com/EdoardoFiore/madmin-strongswan/database/model"
	"github.com/EdoardoFiore/madmin-strongswan/logger"
)

// connPrefix namespaces every artifact this panel writes: connection names,
// config files and secret keys all derive from it.
const (
	connPrefix      = "madmin_"
	secretsFileName = "madmin_secrets.conf"
)

// ConnName derives the swanctl connection identifier for a tunnel. All
// firewall and daemon state is keyed by this name, so it must be stable.
func ConnName(tunnelName string) string {
	return connPrefix + tunnelName
}

// confSection is an ordered key/value block of a swanctl.conf document.
// Building the document as a tree instead of interpolating strings keeps
// field order stable and makes empty values impossible to emit by accident.
type confSection struct {
	name     string
	keys     []string
	values   map[string]string
	children []*confSection
}

func newConfSection(name string) *confSection {
	return &confSection{
		name:   name,
		values: make(map[string]string),
	}
}

func (s *confSection) set(key, value string) {
	if value == "" {
		return
	}
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

func (s *confSection) add(child *confSection) {
	s.children = append(s.children, child)
}

func (s *confSection) write(b *strings.Builder, depth int) {
	indent := strings.Repeat("    ", depth)
	b.WriteString(indent)
	b.WriteString(s.name)
	b.WriteString(" {\n")
	for _, k := range s.keys {
		b.WriteString(indent)
		b.WriteString("    ")
		b.WriteString(k)
		b.WriteString(" = ")
		b.WriteString(s.values[k])
		b.WriteString("\n")
	}
	for _, c := range s.children {
		c.write(b, depth+1)
	}
	b.WriteString(indent)
	b.WriteString("}\n")
}

func (s *confSection) String() string {
	var b strings.Builder
	s.write(&b, 0)
	return b.String()
}

// espProposals folds the PFS group into the ESP proposal string, the way
// swanctl expects it. An empty group leaves the proposal untouched.
func espProposals(child *model.ChildSa) string {
	proposal := child.EspProposal
	if child.PfsGroup != "" && !strings.HasSuffix(proposal, "-"+child.PfsGroup) {
		proposal += "-" + child.PfsGroup
	}
	return proposal
}

// RenderConnection renders the swanctl.conf document for a tunnel and its
// child SAs. The output is deterministic: identical inputs yield identical
// bytes, so rewriting and reloading an unchanged tunnel is a no-op for the
// daemon. Disabled children are omitted entirely.
func RenderConnection(t *model.Tunnel, children []model.ChildSa) string {
	conn := newConfSection(ConnName(t.Name))
	conn.set("version", t.IkeVersion)
	if t.IkeVersion == "1" && t.Mode == "aggressive" {
		conn.set("aggressive", "yes")
	}
	if t.LocalAddress != "" {
		conn.set("local_addrs", t.LocalAddress)
	} else {
		conn.set("local_addrs", "%any")
	}
	conn.set("remote_addrs", t.RemoteAddress)
	conn.set("proposals", t.IkeProposal)
	conn.set("rekey_time", fmt.Sprintf("%ds", t.IkeLifetime))
	conn.set("dpd_delay", fmt.Sprintf("%ds", t.DpdDelay))
	if t.NatTraversal {
		conn.set("encap", "yes")
	} else {
		conn.set("encap", "no")
	}

	local := newConfSection("local")
	local.set("auth", t.AuthMethod)
	local.set("id", t.LocalID)
	conn.add(local)

	remote := newConfSection("remote")
	remote.set("auth", t.AuthMethod)
	remote.set("id", t.RemoteID)
	conn.add(remote)

	childrenSec := newConfSection("children")
	for i := range children {
		child := &children[i]
		if !child.Enabled {
			continue
		}
		c := newConfSection(child.Name)
		c.set("local_ts", child.LocalTs)
		c.set("remote_ts", child.RemoteTs)
		c.set("esp_proposals", espProposals(child))
		c.set("life_time", fmt.Sprintf("%ds", child.EspLifetime))
		c.set("start_action", child.StartAction)
		c.set("close_action", child.CloseAction)
		c.set("dpd_action", t.DpdAction)
		childrenSec.add(c)
	}
	conn.add(childrenSec)

	root := newConfSection("connections")
	root.add(conn)

	var b strings.Builder
	b.WriteString("# MADMIN IPsec VPN - ")
	b.WriteString(t.Name)
	b.WriteString("\n\n")
	b.WriteString(root.String())
	return b.String()
}

// quoteSecret wraps a secret for the swanctl secrets format. The parser only
// understands quoted strings with escaped double quotes; Go-style %q would
// emit \x escapes it takes literally.
func quoteSecret(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// RenderSecrets renders the shared secrets document. Only PSK tunnels with a
// non-empty key produce an entry; the id list is the ordered non-empty subset
// of {local_id, remote_id}.
func RenderSecrets(tunnels []model.Tunnel) string {
	root := newConfSection("secrets")
	for i := range tunnels {
		t := &tunnels[i]
		if t.AuthMethod != "psk" || t.Psk == "" {
			continue
		}
		entry := newConfSection("ike-" + connPrefix + t.Name)
		var ids []string
		if t.LocalID != "" {
			ids = append(ids, t.LocalID)
		}
		if t.RemoteID != "" {
			ids = append(ids, t.RemoteID)
		}
		entry.set("id", strings.Join(ids, " "))
		entry.set("secret", quoteSecret(t.Psk))
		root.add(entry)
	}

	var b strings.Builder
	b.WriteString("# MADMIN IPsec VPN secrets - managed by MADMIN\n")
	b.WriteString(root.String())
	return b.String()
}

// ConfigService persists rendered swanctl documents into the daemon's
// configuration directory. Writes are whole-file replacements.
type ConfigService struct {
	confDir string
}

func NewConfigService() *ConfigService {
	return &ConfigService{
		confDir: config.GetSwanctlDir(),
	}
}

// ConfigPath returns the config file path for a tunnel name.
func (s *ConfigService) ConfigPath(tunnelName string) string {
	return path.Join(s.confDir, connPrefix+tunnelName+".conf")
}

// SaveTunnelConfig renders and writes the per-tunnel connection file with
// owner-only permissions.
func (s *ConfigService) SaveTunnelConfig(t *model.Tunnel, children []model.ChildSa) error {
	if err := os.MkdirAll(s.confDir, 0o755); err != nil {
		return fmt.Errorf("failed to create swanctl config dir: %w", err)
	}
	file := s.ConfigPath(t.Name)
	if err := os.WriteFile(file, []byte(RenderConnection(t, children)), 0o600); err != nil {
		return fmt.Errorf("failed to write tunnel config '%s': %w", file, err)
	}
	logger.Info("Saved tunnel config: ", file)
	return nil
}

// DeleteTunnelConfig removes a tunnel's connection file. A missing file is
// not an error.
func (s *ConfigService) DeleteTunnelConfig(tunnelName string) error {
	file := s.ConfigPath(tunnelName)
	err := os.Remove(file)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete tunnel config '%s': %w", file, err)
	}
	if err == nil {
		logger.Info("Deleted tunnel config: ", file)
	}
	return nil
}

// WriteSecrets rewrites the shared secrets file from the full tunnel set.
// The content is never logged.
func (s *ConfigService) WriteSecrets(tunnels []model.Tunnel) error {
	if err := os.MkdirAll(s.confDir, 0o755); err != nil {
		return fmt.Errorf("failed to create swanctl config dir: %w", err)
	}
	file := path.Join(s.confDir, secretsFileName)
	if err := os.WriteFile(file, []byte(RenderSecrets(tunnels)), 0o600); err != nil {
		return fmt.Errorf("failed to write secrets file: %w", err)
	}
	logger.Info("Updated secrets file")
	return nil
}
