package service

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/EdoardoFiore/madmin-strongswan/database/model"
	"github.com/EdoardoFiore/madmin-strongswan/logger"
	"github.com/coreos/go-iptables/iptables"
)

const (
	// Fixed chains provisioned at install time. INPUT gates the IKE/ESP
	// control plane, FORWARD gates tunneled traffic via per-child jumps.
	IpsecInputChain   = "MOD_IPSEC_INPUT"
	IpsecForwardChain = "MOD_IPSEC_FORWARD"

	filterTable = "filter"

	childChainPrefix = "IPSEC_"
	// iptables rejects chain names longer than 28 characters.
	maxChainNameLen = 28
)

func sanitizeChainName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// ChildChainName derives the packet-filter chain name for one child SA
// direction. Pure function of its inputs, so teardown can recompute names
// without storing them. Children are keyed by their stable database id;
// positional indexes would silently repoint a chain to a different selector
// pair when children are reordered or deleted.
//
// When the derived name exceeds the iptables limit, the tunnel-name portion
// is truncated and a short FNV hash of the full name is spliced in so that
// distinct tunnels sharing a truncation prefix still get distinct chains.
func ChildChainName(tunnelName string, childID uint, direction string) string {
	dir := strings.ToUpper(direction)
	name := sanitizeChainName(tunnelName)
	suffix := fmt.Sprintf("_%d_%s", childID, dir)

	full := childChainPrefix + name + suffix
	if len(full) <= maxChainNameLen {
		return full
	}

	h := fnv.New32a()
	h.Write([]byte(tunnelName))
	hash := fmt.Sprintf("%06x", h.Sum32()&0xffffff)

	budget := maxChainNameLen - len(childChainPrefix) - len(suffix) - len(hash) - 1
	if budget < 1 {
		budget = 1
	}
	if budget > len(name) {
		budget = len(name)
	}
	return childChainPrefix + name[:budget] + "_" + hash + suffix
}

// ruleAppliesTo reports whether a rule participates in the given direction.
func ruleAppliesTo(r *model.FirewallRule, direction string) bool {
	return r.Direction == direction || r.Direction == model.RuleDirBoth || r.Direction == ""
}

// buildRuleSpec translates one FirewallRule into an iptables rule spec.
// A port match is only emitted for protocols that carry ports.
func buildRuleSpec(r *model.FirewallRule) []string {
	var spec []string
	if r.Protocol != "" {
		spec = append(spec, "-p", r.Protocol)
	}
	if r.Source != "" {
		spec = append(spec, "-s", r.Source)
	}
	if r.Destination != "" {
		spec = append(spec, "-d", r.Destination)
	}
	if r.Port != "" && (r.Protocol == "tcp" || r.Protocol == "udp") {
		spec = append(spec, "--dport", r.Port)
	}
	if r.Description != "" {
		spec = append(spec, "-m", "comment", "--comment", r.Description)
	}
	action := r.Action
	if action == "" {
		action = "ACCEPT"
	}
	return append(spec, "-j", action)
}

// chainRules returns the full ordered rule-spec list for one direction of a
// child SA's chain: user rules in ascending sort order, then the direction's
// default policy as the final rule.
func chainRules(child *model.ChildSa, direction string) [][]string {
	rules := make([]model.FirewallRule, 0, len(child.Rules))
	for _, r := range child.Rules {
		if ruleAppliesTo(&r, direction) {
			rules = append(rules, r)
		}
	}
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Sort < rules[j].Sort })

	specs := make([][]string, 0, len(rules)+1)
	for i := range rules {
		specs = append(specs, buildRuleSpec(&rules[i]))
	}

	policy := child.PolicyIn
	if direction == model.RuleDirOut {
		policy = child.PolicyOut
	}
	if policy == "" {
		policy = "ACCEPT"
	}
	return append(specs, []string{"-j", policy})
}

// jumpRuleSpec builds the FORWARD-chain jump matching a child SA's traffic
// selector pair for one direction.
func jumpRuleSpec(child *model.ChildSa, direction, chain string) []string {
	if direction == model.RuleDirIn {
		return []string{"-s", child.RemoteTs, "-d", child.LocalTs, "-j", chain}
	}
	return []string{"-s", child.LocalTs, "-d", child.RemoteTs, "-j", chain}
}

// FirewallService keeps the packet-filter chain table in sync with the
// child-SA model. All mutations go through this one service.
type FirewallService struct {
	ipt *iptables.IPTables
}

func NewFirewallService() (*FirewallService, error) {
	ipt, err := iptables.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize iptables: %w", err)
	}
	return &FirewallService{ipt: ipt}, nil
}

func (s *FirewallService) ensureChain(chain string) error {
	exists, err := s.ipt.ChainExists(filterTable, chain)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.ipt.NewChain(filterTable, chain)
}

// EnsureBaseRules provisions the fixed chains and the control-plane allow
// rules: IKE (UDP 500), NAT-T (UDP 4500) and ESP. Idempotent.
func (s *FirewallService) EnsureBaseRules() error {
	for _, chain := range []string{IpsecInputChain, IpsecForwardChain} {
		if err := s.ensureChain(chain); err != nil {
			return fmt.Errorf("failed to ensure chain %s: %w", chain, err)
		}
	}

	baseRules := [][]string{
		{"-p", "udp", "--dport", "500", "-j", "ACCEPT"},
		{"-p", "udp", "--dport", "4500", "-j", "ACCEPT"},
		{"-p", "esp", "-j", "ACCEPT"},
	}
	for _, rule := range baseRules {
		if err := s.ipt.AppendUnique(filterTable, IpsecInputChain, rule...); err != nil {
			return fmt.Errorf("failed to install base rule in %s: %w", IpsecInputChain, err)
		}
	}
	logger.Info("IPsec base firewall rules configured")
	return nil
}

// SyncChildChains reconciles the IN/OUT chain pair of one child SA: each
// chain is flushed and repopulated from the stored rule list, and the jump
// rules in the forward chain are installed without duplicates. Running it
// twice with the same input yields the same rule set.
func (s *FirewallService) SyncChildChains(tunnelName string, child *model.ChildSa) error {
	for _, direction := range []string{model.RuleDirIn, model.RuleDirOut} {
		chain := ChildChainName(tunnelName, child.ID, direction)

		// ClearChain creates the chain when missing, flushes it otherwise.
		if err := s.ipt.ClearChain(filterTable, chain); err != nil {
			return fmt.Errorf("failed to prepare chain %s: %w", chain, err)
		}
		for _, spec := range chainRules(child, direction) {
			if err := s.ipt.Append(filterTable, chain, spec...); err != nil {
				return fmt.Errorf("failed to populate chain %s: %w", chain, err)
			}
		}
		if err := s.ipt.AppendUnique(filterTable, IpsecForwardChain, jumpRuleSpec(child, direction, chain)...); err != nil {
			return fmt.Errorf("failed to install jump to %s: %w", chain, err)
		}
	}
	logger.Infof("Firewall chains synced for child '%s' of tunnel '%s'", child.Name, tunnelName)
	return nil
}

// TeardownChildChains removes a child SA's firewall state in strict order:
// jump rules first, then flush, then delete. Every step tolerates absence so
// a broken chain never blocks the rest of a tunnel teardown; failures are
// collected and reported together.
func (s *FirewallService) TeardownChildChains(tunnelName string, child *model.ChildSa) error {
	var failures []string
	for _, direction := range []string{model.RuleDirIn, model.RuleDirOut} {
		chain := ChildChainName(tunnelName, child.ID, direction)

		if err := s.ipt.DeleteIfExists(filterTable, IpsecForwardChain, jumpRuleSpec(child, direction, chain)...); err != nil {
			logger.Warningf("Failed to remove jump to %s: %v", chain, err)
			failures = append(failures, fmt.Sprintf("jump %s: %v", chain, err))
		}

		exists, err := s.ipt.ChainExists(filterTable, chain)
		if err != nil || !exists {
			continue
		}
		if err := s.ipt.ClearChain(filterTable, chain); err != nil {
			logger.Warningf("Failed to flush chain %s: %v", chain, err)
			failures = append(failures, fmt.Sprintf("flush %s: %v", chain, err))
			continue
		}
		if err := s.ipt.DeleteChain(filterTable, chain); err != nil {
			logger.Warningf("Failed to delete chain %s: %v", chain, err)
			failures = append(failures, fmt.Sprintf("delete %s: %v", chain, err))
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("firewall teardown incomplete: %s", strings.Join(failures, "; "))
	}
	return nil
}

// TeardownTunnelChains removes firewall state for every child of a tunnel.
// A failing child does not stop the others.
func (s *FirewallService) TeardownTunnelChains(tunnelName string, children []model.ChildSa) error {
	var failures []string
	for i := range children {
		if err := s.TeardownChildChains(tunnelName, &children[i]); err != nil {
			failures = append(failures, err.Error())
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("%s", strings.Join(failures, "; "))
	}
	return nil
}
