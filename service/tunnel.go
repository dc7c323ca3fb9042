package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/EdoardoFiore/madmin-strongswan/database"
	"github.com/EdoardoFiore/madmin-strongswan/database/model"
	"github.com/EdoardoFiore/madmin-strongswan/logger"
	"gorm.io/gorm"
)

// TunnelService owns the tunnel lifecycle: persistence, config generation,
// daemon control and firewall state, sequenced so that config is written and
// reloaded before initiation and firewall state is removed only after
// termination.
// NOTE: All methods that touch swanctl or iptables require root privileges.
type TunnelService struct {
	db       *gorm.DB
	conf     *ConfigService
	swanctl  *SwanctlService
	vici     *ViciService
	logs     *LogService
	firewall *FirewallService
}

func NewTunnelService() *TunnelService {
	return &TunnelService{
		db:      database.GetDB(),
		conf:    NewConfigService(),
		swanctl: NewSwanctlService(),
		vici:    NewViciService(),
		logs:    NewLogService(),
	}
}

// fw initializes the firewall backend lazily so a host without iptables can
// still serve read-only requests.
func (s *TunnelService) fw() (*FirewallService, error) {
	if s.firewall == nil {
		f, err := NewFirewallService()
		if err != nil {
			return nil, err
		}
		s.firewall = f
	}
	return s.firewall, nil
}

// GetAllTunnels retrieves all tunnels with their child SAs, ordered by name.
func (s *TunnelService) GetAllTunnels() ([]model.Tunnel, error) {
	var tunnels []model.Tunnel
	err := s.db.Preload("ChildSas").Order("name").Find(&tunnels).Error
	return tunnels, err
}

// GetTunnelByName retrieves a single tunnel by its unique name.
func (s *TunnelService) GetTunnelByName(name string) (*model.Tunnel, error) {
	var tunnel model.Tunnel
	err := s.db.Preload("ChildSas").Where("name = ?", name).First(&tunnel).Error
	return &tunnel, err
}

// GetTunnel retrieves one tunnel with its children and their rules.
func (s *TunnelService) GetTunnel(id uint) (*model.Tunnel, error) {
	var tunnel model.Tunnel
	err := s.db.Preload("ChildSas.Rules").First(&tunnel, id).Error
	return &tunnel, err
}

func (s *TunnelService) loadChildren(tunnelID uint) ([]model.ChildSa, error) {
	var children []model.ChildSa
	err := s.db.Preload("Rules").Where("tunnel_id = ?", tunnelID).Order("id").Find(&children).Error
	return children, err
}

// writeConfig regenerates and persists a tunnel's connection file from its
// current database state.
func (s *TunnelService) writeConfig(t *model.Tunnel) error {
	children, err := s.loadChildren(t.ID)
	if err != nil {
		return fmt.Errorf("failed to load child SAs for tunnel '%s': %w", t.Name, err)
	}
	return s.conf.SaveTunnelConfig(t, children)
}

// rewriteSecrets regenerates the shared secrets file from the full tunnel
// set.
func (s *TunnelService) rewriteSecrets() error {
	var tunnels []model.Tunnel
	if err := s.db.Order("name").Find(&tunnels).Error; err != nil {
		return fmt.Errorf("failed to load tunnels for secrets file: %w", err)
	}
	return s.conf.WriteSecrets(tunnels)
}

// CreateTunnel creates a tunnel record, writes its config and secrets and
// reloads the daemon. The tunnel name must be unique.
func (s *TunnelService) CreateTunnel(t *model.Tunnel) error {
	var existing model.Tunnel
	err := s.db.Where("name = ?", t.Name).First(&existing).Error
	if err == nil {
		return fmt.Errorf("tunnel name '%s' already exists", t.Name)
	}
	if !database.IsNotFound(err) {
		return err
	}

	if err := s.db.Create(t).Error; err != nil {
		return fmt.Errorf("failed to save tunnel '%s': %w", t.Name, err)
	}

	if err := s.writeConfig(t); err != nil {
		return err
	}
	if t.AuthMethod == "psk" && t.Psk != "" {
		if err := s.rewriteSecrets(); err != nil {
			return err
		}
	}
	if fw, err := s.fw(); err == nil {
		if err := fw.EnsureBaseRules(); err != nil {
			logger.Warning("Failed to set up base firewall rules: ", err)
		}
	} else {
		logger.Warning("Firewall unavailable: ", err)
	}
	if err := s.swanctl.LoadAll(); err != nil {
		return err
	}

	logger.Info("Created IPsec tunnel: ", t.Name)
	return nil
}

// UpdateTunnel applies changes to a tunnel. A rename removes the artifacts
// keyed by the old name before new ones are written, since config files and
// chain names both derive from it.
func (s *TunnelService) UpdateTunnel(t *model.Tunnel) error {
	old, err := s.GetTunnel(t.ID)
	if err != nil {
		return fmt.Errorf("failed to find tunnel with ID %d: %w", t.ID, err)
	}

	if t.Name != old.Name {
		if err := s.conf.DeleteTunnelConfig(old.Name); err != nil {
			logger.Warning(err)
		}
		if fw, err := s.fw(); err == nil {
			if err := fw.TeardownTunnelChains(old.Name, old.ChildSas); err != nil {
				logger.Warning(err)
			}
		}
	}

	t.CreatedAt = old.CreatedAt
	if err := s.db.Save(t).Error; err != nil {
		return fmt.Errorf("failed to update tunnel '%s': %w", t.Name, err)
	}

	if err := s.writeConfig(t); err != nil {
		return err
	}
	if t.AuthMethod == "psk" {
		if err := s.rewriteSecrets(); err != nil {
			return err
		}
	}
	if t.Name != old.Name {
		if err := s.syncTunnelChains(t); err != nil {
			logger.Warning(err)
		}
	}
	if err := s.swanctl.LoadAll(); err != nil {
		return err
	}

	logger.Info("Updated IPsec tunnel: ", t.Name)
	return nil
}

func (s *TunnelService) syncTunnelChains(t *model.Tunnel) error {
	fw, err := s.fw()
	if err != nil {
		return err
	}
	children, err := s.loadChildren(t.ID)
	if err != nil {
		return err
	}
	var failures []string
	for i := range children {
		if !children[i].Enabled {
			continue
		}
		if err := fw.SyncChildChains(t.Name, &children[i]); err != nil {
			failures = append(failures, err.Error())
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("%s", strings.Join(failures, "; "))
	}
	return nil
}

// DeleteTunnel tears down a tunnel completely. Sub-steps that fail are
// collected and reported together, but never abort the remaining teardown;
// firewall state goes away only after the SA has been terminated.
func (s *TunnelService) DeleteTunnel(id uint) error {
	tunnel, err := s.GetTunnel(id)
	if err != nil {
		return fmt.Errorf("failed to find tunnel with ID %d: %w", id, err)
	}

	var failures []string
	step := func(name string, err error) {
		if err != nil && !errors.Is(err, ErrSwanctlNotFound) {
			logger.Warningf("Tunnel '%s' %s failed: %v", tunnel.Name, name, err)
			failures = append(failures, fmt.Sprintf("%s: %v", name, err))
		}
	}

	step("terminate", s.swanctl.Terminate(tunnel.Name))
	step("unload", s.vici.UnloadConn(tunnel.Name))
	step("config removal", s.conf.DeleteTunnelConfig(tunnel.Name))
	step("reload", s.swanctl.LoadAll())

	if fw, err := s.fw(); err == nil {
		step("firewall teardown", fw.TeardownTunnelChains(tunnel.Name, tunnel.ChildSas))
	} else {
		step("firewall teardown", err)
	}

	// Children and rules go with the tunnel via FK cascade.
	if err := s.db.Delete(&model.Tunnel{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete tunnel '%s' from database: %w", tunnel.Name, err)
	}
	step("secrets rewrite", s.rewriteSecrets())

	logger.Info("Deleted IPsec tunnel: ", tunnel.Name)
	if len(failures) > 0 {
		return fmt.Errorf("tunnel '%s' deleted with failed sub-steps: %s", tunnel.Name, strings.Join(failures, "; "))
	}
	return nil
}

// StartTunnel enables a tunnel, regenerates its artifacts, reloads the
// daemon and initiates the connection. The returned status is "established"
// when the SA converged within the initiate wait, "initiated" otherwise.
func (s *TunnelService) StartTunnel(id uint) (string, error) {
	tunnel, err := s.GetTunnel(id)
	if err != nil {
		return "", fmt.Errorf("failed to find tunnel with ID %d: %w", id, err)
	}

	tunnel.Enabled = true
	if err := s.db.Model(tunnel).Update("enabled", true).Error; err != nil {
		return "", err
	}

	if err := s.writeConfig(tunnel); err != nil {
		return "", err
	}
	if err := s.syncTunnelChains(tunnel); err != nil {
		logger.Warning(err)
	}
	if err := s.swanctl.LoadAll(); err != nil {
		return "", err
	}
	if err := s.swanctl.Initiate(tunnel.Name, ""); err != nil {
		return "", err
	}

	status := model.TunnelConnecting
	response := "initiated"
	if live, err := s.vici.Resolve(tunnel.Name); err == nil && live != nil && live.IkeState == saEstablished {
		status = model.TunnelEstablished
		response = "established"
	}
	if err := s.db.Model(tunnel).Update("status", status).Error; err != nil {
		return "", err
	}
	return response, nil
}

// StopTunnel terminates a tunnel, unloads it from the daemon runtime and
// removes its config file so it does not come back on restart. The firewall
// chains stay in place until the tunnel is deleted.
func (s *TunnelService) StopTunnel(id uint) error {
	tunnel, err := s.GetTunnel(id)
	if err != nil {
		return fmt.Errorf("failed to find tunnel with ID %d: %w", id, err)
	}

	if err := s.swanctl.Terminate(tunnel.Name); err != nil {
		return err
	}
	if err := s.vici.UnloadConn(tunnel.Name); err != nil {
		logger.Warning("Failed to unload connection: ", err)
	}
	if err := s.conf.DeleteTunnelConfig(tunnel.Name); err != nil {
		logger.Warning(err)
	}

	return s.db.Model(tunnel).Updates(map[string]interface{}{
		"enabled": false,
		"status":  model.TunnelDisconnected,
	}).Error
}

// GetTunnelStatus resolves a tunnel's live state and persists the observed
// status. An absent SA is a disconnected tunnel, not an error; an
// unreachable daemon is.
func (s *TunnelService) GetTunnelStatus(id uint) (*model.TunnelStatus, error) {
	tunnel, err := s.GetTunnel(id)
	if err != nil {
		return nil, fmt.Errorf("failed to find tunnel with ID %d: %w", id, err)
	}

	live, err := s.vici.Resolve(tunnel.Name)
	if err != nil {
		return nil, err
	}
	if live == nil {
		live = &model.TunnelStatus{IkeState: "DISCONNECTED"}
	}
	live.TunnelID = tunnel.ID

	observed := model.TunnelDisconnected
	switch live.IkeState {
	case saEstablished:
		observed = model.TunnelEstablished
	case saConnecting:
		observed = model.TunnelConnecting
	}
	if observed != tunnel.Status {
		if err := s.db.Model(tunnel).Update("status", observed).Error; err != nil {
			logger.Warning("Failed to persist tunnel status: ", err)
		}
	}
	return live, nil
}

// GetTunnelLogs returns recent daemon log lines for a tunnel with detected
// failure diagnoses.
func (s *TunnelService) GetTunnelLogs(id uint, lines int) (*TunnelLogs, error) {
	tunnel, err := s.GetTunnel(id)
	if err != nil {
		return nil, fmt.Errorf("failed to find tunnel with ID %d: %w", id, err)
	}
	return s.logs.GetTunnelLogs(tunnel.Name, lines), nil
}

// ListSAs returns name and state of every live SA known to the daemon.
func (s *TunnelService) ListSAs() ([]SaSummary, error) {
	return s.vici.ListSAs()
}

// --- Child SAs ---

// GetChildSas retrieves a tunnel's child SAs with their firewall rules.
func (s *TunnelService) GetChildSas(tunnelID uint) ([]model.ChildSa, error) {
	var children []model.ChildSa
	err := s.db.Preload("Rules").Where("tunnel_id = ?", tunnelID).Order("id").Find(&children).Error
	return children, err
}

// CreateChildSa adds a child SA to a tunnel, regenerates the tunnel config,
// installs the child's firewall chains and reloads the daemon.
func (s *TunnelService) CreateChildSa(child *model.ChildSa) error {
	tunnel, err := s.GetTunnel(child.TunnelID)
	if err != nil {
		return fmt.Errorf("failed to find tunnel with ID %d: %w", child.TunnelID, err)
	}

	if err := s.db.Create(child).Error; err != nil {
		return fmt.Errorf("failed to save child SA '%s': %w", child.Name, err)
	}

	if err := s.writeConfig(tunnel); err != nil {
		return err
	}
	if child.Enabled {
		if fw, err := s.fw(); err == nil {
			if err := fw.SyncChildChains(tunnel.Name, child); err != nil {
				logger.Warning(err)
			}
		}
	}
	if err := s.swanctl.LoadAll(); err != nil {
		return err
	}

	logger.Infof("Created child SA '%s' for tunnel '%s'", child.Name, tunnel.Name)
	return nil
}

// UpdateChildSa applies changes to a child SA. A changed traffic-selector
// pair tears down the firewall state keyed by the old pair before the new
// pair's chains are installed.
func (s *TunnelService) UpdateChildSa(child *model.ChildSa) error {
	var old model.ChildSa
	if err := s.db.Preload("Rules").First(&old, child.ID).Error; err != nil {
		return fmt.Errorf("failed to find child SA with ID %d: %w", child.ID, err)
	}
	child.TunnelID = old.TunnelID

	tunnel, err := s.GetTunnel(old.TunnelID)
	if err != nil {
		return fmt.Errorf("failed to find tunnel with ID %d: %w", old.TunnelID, err)
	}

	selectorsChanged := old.LocalTs != child.LocalTs || old.RemoteTs != child.RemoteTs
	if selectorsChanged || (!child.Enabled && old.Enabled) {
		if fw, err := s.fw(); err == nil {
			if err := fw.TeardownChildChains(tunnel.Name, &old); err != nil {
				logger.Warning(err)
			}
		}
	}

	if err := s.db.Save(child).Error; err != nil {
		return fmt.Errorf("failed to update child SA '%s': %w", child.Name, err)
	}

	if child.Enabled {
		if fw, err := s.fw(); err == nil {
			if err := fw.SyncChildChains(tunnel.Name, child); err != nil {
				logger.Warning(err)
			}
		}
	}
	if err := s.writeConfig(tunnel); err != nil {
		return err
	}
	if err := s.swanctl.LoadAll(); err != nil {
		return err
	}

	logger.Infof("Updated child SA '%s' of tunnel '%s'", child.Name, tunnel.Name)
	return nil
}

// DeleteChildSa removes a child SA, its firewall chains and its block in the
// tunnel config.
func (s *TunnelService) DeleteChildSa(id uint) error {
	var child model.ChildSa
	if err := s.db.Preload("Rules").First(&child, id).Error; err != nil {
		return fmt.Errorf("failed to find child SA with ID %d: %w", id, err)
	}
	tunnel, err := s.GetTunnel(child.TunnelID)
	if err != nil {
		return fmt.Errorf("failed to find tunnel with ID %d: %w", child.TunnelID, err)
	}

	if fw, err := s.fw(); err == nil {
		if err := fw.TeardownChildChains(tunnel.Name, &child); err != nil {
			logger.Warning(err)
		}
	}

	if err := s.db.Delete(&model.ChildSa{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete child SA '%s': %w", child.Name, err)
	}

	if err := s.writeConfig(tunnel); err != nil {
		return err
	}
	if err := s.swanctl.LoadAll(); err != nil {
		return err
	}

	logger.Infof("Deleted child SA '%s' of tunnel '%s'", child.Name, tunnel.Name)
	return nil
}

// --- Firewall rules ---

// SaveFirewallRules replaces a child SA's rule list and resyncs its chains.
func (s *TunnelService) SaveFirewallRules(childID uint, rules []model.FirewallRule) error {
	var child model.ChildSa
	if err := s.db.First(&child, childID).Error; err != nil {
		return fmt.Errorf("failed to find child SA with ID %d: %w", childID, err)
	}
	tunnel, err := s.GetTunnel(child.TunnelID)
	if err != nil {
		return err
	}

	if err := s.db.Where("child_sa_id = ?", childID).Delete(&model.FirewallRule{}).Error; err != nil {
		return fmt.Errorf("failed to clear rules for child SA %d: %w", childID, err)
	}
	for i := range rules {
		rules[i].ID = 0
		rules[i].ChildSaID = childID
	}
	if len(rules) > 0 {
		if err := s.db.Create(&rules).Error; err != nil {
			return fmt.Errorf("failed to save rules for child SA %d: %w", childID, err)
		}
	}

	child.Rules = rules
	if child.Enabled {
		if fw, err := s.fw(); err == nil {
			return fw.SyncChildChains(tunnel.Name, &child)
		}
	}
	return nil
}
