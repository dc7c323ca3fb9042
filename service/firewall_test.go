package service

import (
	"strings"
	"testing"

	"github.com/EdoardoFiore/madmin-strongswan/database/model"
	"github.com/stretchr/testify/assert"
)

func TestChildChainNameShort(t *testing.T) {
	name := ChildChainName("branch-a", 10, "in")
	assert.Equal(t, "IPSEC_BRANCH_A_10_IN", name)
	assert.LessOrEqual(t, len(name), maxChainNameLen)
}

func TestChildChainNamePure(t *testing.T) {
	first := ChildChainName("branch-a", 10, "out")
	second := ChildChainName("branch-a", 10, "out")
	assert.Equal(t, first, second)
}

func TestChildChainNameTruncation(t *testing.T) {
	name := ChildChainName("very-long-office-site-name-frankfurt", 3, "out")
	assert.LessOrEqual(t, len(name), maxChainNameLen)
	assert.True(t, strings.HasPrefix(name, "IPSEC_"))
	assert.True(t, strings.HasSuffix(name, "_3_OUT"))
}

func TestChildChainNameCollisionResistance(t *testing.T) {
	// Two distinct tunnels whose sanitized names share the truncation
	// prefix must still yield distinct chains.
	a := ChildChainName("datacenter-milano-primary-link", 1, "in")
	b := ChildChainName("datacenter-milano-primary-line", 1, "in")
	assert.NotEqual(t, a, b)
	assert.LessOrEqual(t, len(a), maxChainNameLen)
	assert.LessOrEqual(t, len(b), maxChainNameLen)
}

func TestChildChainNameDistinguishesChildrenAndDirections(t *testing.T) {
	assert.NotEqual(t,
		ChildChainName("branch-a", 1, "in"),
		ChildChainName("branch-a", 2, "in"))
	assert.NotEqual(t,
		ChildChainName("branch-a", 1, "in"),
		ChildChainName("branch-a", 1, "out"))
}

func TestBuildRuleSpec(t *testing.T) {
	rule := &model.FirewallRule{
		Protocol:    "tcp",
		Source:      "10.0.0.0/24",
		Destination: "10.1.0.5",
		Port:        "443",
		Description: "web",
		Action:      "ACCEPT",
	}
	spec := buildRuleSpec(rule)
	assert.Equal(t, []string{
		"-p", "tcp",
		"-s", "10.0.0.0/24",
		"-d", "10.1.0.5",
		"--dport", "443",
		"-m", "comment", "--comment", "web",
		"-j", "ACCEPT",
	}, spec)
}

func TestBuildRuleSpecPortNeedsProtocol(t *testing.T) {
	rule := &model.FirewallRule{Port: "443", Action: "DROP"}
	spec := buildRuleSpec(rule)
	assert.NotContains(t, spec, "--dport")
	assert.Equal(t, []string{"-j", "DROP"}, spec)
}

func TestBuildRuleSpecDefaultAction(t *testing.T) {
	spec := buildRuleSpec(&model.FirewallRule{Protocol: "icmp"})
	assert.Equal(t, []string{"-p", "icmp", "-j", "ACCEPT"}, spec)
}

func TestChainRulesOrderAndDefaultPolicy(t *testing.T) {
	child := &model.ChildSa{
		LocalTs:   "10.0.0.0/24",
		RemoteTs:  "10.1.0.0/24",
		PolicyIn:  "DROP",
		PolicyOut: "ACCEPT",
		Rules: []model.FirewallRule{
			{Sort: 2, Direction: "in", Protocol: "udp", Port: "53", Action: "ACCEPT"},
			{Sort: 1, Direction: "both", Protocol: "tcp", Port: "22", Action: "ACCEPT"},
			{Sort: 3, Direction: "out", Protocol: "tcp", Port: "80", Action: "REJECT"},
		},
	}

	in := chainRules(child, model.RuleDirIn)
	assert.Len(t, in, 3)
	assert.Contains(t, in[0], "22")
	assert.Contains(t, in[1], "53")
	assert.Equal(t, []string{"-j", "DROP"}, in[len(in)-1])

	out := chainRules(child, model.RuleDirOut)
	assert.Len(t, out, 3)
	assert.Contains(t, out[0], "22")
	assert.Contains(t, out[1], "80")
	assert.Equal(t, []string{"-j", "ACCEPT"}, out[len(out)-1])
}

func TestJumpRuleSpecDirections(t *testing.T) {
	child := &model.ChildSa{ID: 7, LocalTs: "10.0.0.0/24", RemoteTs: "10.1.0.0/24"}

	in := jumpRuleSpec(child, model.RuleDirIn, "IPSEC_T_7_IN")
	assert.Equal(t, []string{"-s", "10.1.0.0/24", "-d", "10.0.0.0/24", "-j", "IPSEC_T_7_IN"}, in)

	out := jumpRuleSpec(child, model.RuleDirOut, "IPSEC_T_7_OUT")
	assert.Equal(t, []string{"-s", "10.0.0.0/24", "-d", "10.1.0.0/24", "-j", "IPSEC_T_7_OUT"}, out)
}

func TestSanitizeChainName(t *testing.T) {
	assert.Equal(t, "BRANCH_A_1", sanitizeChainName("branch-a.1"))
	assert.Equal(t, "OFFICE", sanitizeChainName("office"))
}
