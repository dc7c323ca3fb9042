package service

import (
	"os"
	"path"
	"strings"
	"testing"

	"github.com/EdoardoFiore/madmin-strongswan/database/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTunnel() *model.Tunnel {
	return &model.Tunnel{
		ID:            1,
		Name:          "branch-a",
		Enabled:       true,
		IkeVersion:    "2",
		LocalAddress:  "203.0.113.1",
		RemoteAddress: "198.51.100.7",
		LocalID:       "gw-hq",
		RemoteID:      "gw-branch",
		AuthMethod:    "psk",
		Psk:           "secret123",
		IkeProposal:   "aes256-sha256-modp2048",
		IkeLifetime:   28800,
		DpdAction:     "restart",
		DpdDelay:      30,
		NatTraversal:  true,
	}
}

func testChildren() []model.ChildSa {
	return []model.ChildSa{
		{
			ID:          10,
			TunnelID:    1,
			Name:        "net1",
			LocalTs:     "10.0.0.0/24",
			RemoteTs:    "10.1.0.0/24",
			EspProposal: "aes256-sha256",
			EspLifetime: 3600,
			PfsGroup:    "modp2048",
			StartAction: "trap",
			CloseAction: "restart",
			Enabled:     true,
		},
		{
			ID:          11,
			TunnelID:    1,
			Name:        "net2",
			LocalTs:     "10.0.1.0/24",
			RemoteTs:    "10.1.1.0/24",
			EspProposal: "aes256-sha256-modp2048",
			EspLifetime: 3600,
			StartAction: "trap",
			CloseAction: "restart",
			Enabled:     false,
		},
	}
}

func TestConnName(t *testing.T) {
	assert.Equal(t, "madmin_branch-a", ConnName("branch-a"))
}

func TestRenderConnectionDeterministic(t *testing.T) {
	tunnel := testTunnel()
	children := testChildren()

	first := RenderConnection(tunnel, children)
	second := RenderConnection(tunnel, children)
	assert.Equal(t, first, second)
}

func TestRenderConnectionContent(t *testing.T) {
	out := RenderConnection(testTunnel(), testChildren())

	assert.Contains(t, out, "madmin_branch-a {")
	assert.Contains(t, out, "version = 2")
	assert.Contains(t, out, "local_addrs = 203.0.113.1")
	assert.Contains(t, out, "remote_addrs = 198.51.100.7")
	assert.Contains(t, out, "proposals = aes256-sha256-modp2048")
	assert.Contains(t, out, "rekey_time = 28800s")
	assert.Contains(t, out, "dpd_delay = 30s")
	assert.Contains(t, out, "encap = yes")
	assert.Contains(t, out, "id = gw-hq")
	assert.Contains(t, out, "id = gw-branch")
	assert.Contains(t, out, "local_ts = 10.0.0.0/24")
	assert.Contains(t, out, "remote_ts = 10.1.0.0/24")
	assert.Contains(t, out, "life_time = 3600s")
	assert.Contains(t, out, "start_action = trap")
	assert.Contains(t, out, "dpd_action = restart")
}

func TestRenderConnectionOmitsDisabledChildren(t *testing.T) {
	out := RenderConnection(testTunnel(), testChildren())

	assert.Contains(t, out, "net1 {")
	assert.NotContains(t, out, "net2")
	assert.NotContains(t, out, "10.0.1.0/24")
}

func TestRenderConnectionTogglingChildChangesOnlyChildren(t *testing.T) {
	tunnel := testTunnel()
	children := testChildren()

	before := RenderConnection(tunnel, children)
	children[1].Enabled = true
	after := RenderConnection(tunnel, children)

	assert.NotEqual(t, before, after)
	assert.Contains(t, after, "net2 {")
	// The connection-level fields are untouched.
	assert.Contains(t, after, "rekey_time = 28800s")
}

func TestRenderConnectionEmptyLocalAddress(t *testing.T) {
	tunnel := testTunnel()
	tunnel.LocalAddress = ""
	out := RenderConnection(tunnel, nil)

	assert.Contains(t, out, "local_addrs = %any")
}

func TestRenderConnectionFoldsPfsIntoEspProposal(t *testing.T) {
	out := RenderConnection(testTunnel(), testChildren())
	assert.Contains(t, out, "esp_proposals = aes256-sha256-modp2048")

	// Already-folded proposals are not doubled.
	children := testChildren()
	children[0].EspProposal = "aes256-sha256-modp2048"
	children[0].PfsGroup = "modp2048"
	out = RenderConnection(testTunnel(), children)
	assert.NotContains(t, out, "modp2048-modp2048")
}

func TestRenderConnectionIkev1Aggressive(t *testing.T) {
	tunnel := testTunnel()
	tunnel.IkeVersion = "1"
	tunnel.Mode = "aggressive"
	out := RenderConnection(tunnel, nil)

	assert.Contains(t, out, "version = 1")
	assert.Contains(t, out, "aggressive = yes")
}

func TestRenderSecrets(t *testing.T) {
	tunnels := []model.Tunnel{
		*testTunnel(),
		{Name: "no-psk", AuthMethod: "psk", Psk: ""},
		{Name: "certs", AuthMethod: "pubkey", Psk: "ignored"},
	}
	out := RenderSecrets(tunnels)

	assert.Contains(t, out, "ike-madmin_branch-a {")
	assert.Contains(t, out, `secret = "secret123"`)
	assert.Contains(t, out, "id = gw-hq gw-branch")
	assert.NotContains(t, out, "no-psk")
	assert.NotContains(t, out, "certs")
}

func TestRenderSecretsQuoting(t *testing.T) {
	// Backslashes and non-ASCII pass through verbatim; only embedded double
	// quotes are escaped.
	tunnel := testTunnel()
	tunnel.Psk = `pa\ss"wörd`
	out := RenderSecrets([]model.Tunnel{*tunnel})

	assert.Contains(t, out, `secret = "pa\ss\"wörd"`)
	assert.NotContains(t, out, `\x`)
	assert.NotContains(t, out, `\\`)
}

func TestRenderSecretsIdSubset(t *testing.T) {
	tunnel := testTunnel()
	tunnel.LocalID = ""
	out := RenderSecrets([]model.Tunnel{*tunnel})
	assert.Contains(t, out, "id = gw-branch")

	tunnel.RemoteID = ""
	out = RenderSecrets([]model.Tunnel{*tunnel})
	assert.NotContains(t, out, "id =")
	assert.Contains(t, out, `secret = "secret123"`)
}

func TestConfigServiceFileLifecycle(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MADMIN_SWANCTL_DIR", dir)
	s := NewConfigService()

	tunnel := testTunnel()
	require.NoError(t, s.SaveTunnelConfig(tunnel, testChildren()))

	file := path.Join(dir, "madmin_branch-a.conf")
	info, err := os.Stat(file)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	content, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(content), "madmin_branch-a"))

	require.NoError(t, s.DeleteTunnelConfig(tunnel.Name))
	_, err = os.Stat(file)
	assert.True(t, os.IsNotExist(err))

	// Deleting twice is fine.
	require.NoError(t, s.DeleteTunnelConfig(tunnel.Name))
}

func TestWriteSecretsPermissions(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MADMIN_SWANCTL_DIR", dir)
	s := NewConfigService()

	require.NoError(t, s.WriteSecrets([]model.Tunnel{*testTunnel()}))

	info, err := os.Stat(path.Join(dir, "madmin_secrets.conf"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
