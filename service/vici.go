package service

import (
	"fmt"
	"sort"

	"github.com/EdoardoFiore/madmin-strongswan/config"
	"github.com/EdoardoFiore/madmin-strongswan/database/model"
	"github.com/EdoardoFiore/madmin-strongswan/logger"
	"github.com/strongswan/govici/vici"
)

// IKE SA states as reported by charon.
const (
	saEstablished = "ESTABLISHED"
	saConnecting  = "CONNECTING"
)

// ikeSaData mirrors one list-sa entry from the VICI stream.
type ikeSaData struct {
	UniqueID    string                 `vici:"uniqueid"`
	State       string                 `vici:"state"`
	LocalHost   string                 `vici:"local-host"`
	RemoteHost  string                 `vici:"remote-host"`
	Initiator   string                 `vici:"initiator"`
	Established int64                  `vici:"established"`
	RekeyTime   int64                  `vici:"rekey-time"`
	Children    map[string]childSaData `vici:"child-sas"`
}

type childSaData struct {
	Name       string `vici:"name"`
	State      string `vici:"state"`
	BytesIn    int64  `vici:"bytes-in"`
	BytesOut   int64  `vici:"bytes-out"`
	PacketsIn  int64  `vici:"packets-in"`
	PacketsOut int64  `vici:"packets-out"`
}

// SaSummary is one row of the full SA listing.
type SaSummary struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

// ViciService talks to the charon control socket. Sessions are opened per
// call; the daemon being down is reported as an error and callers degrade.
type ViciService struct{}

func NewViciService() *ViciService {
	return &ViciService{}
}

func (s *ViciService) session() (*vici.Session, error) {
	session, err := vici.NewSession(vici.WithSocketPath(config.GetViciSocket()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to VICI socket: %w", err)
	}
	return session, nil
}

// listSAs streams the full SA listing. The stream yields one message per IKE
// SA instance; duplicate names occur while an old negotiation attempt has not
// been garbage-collected yet.
func (s *ViciService) listSAs() ([]ikeSaData, []string, error) {
	session, err := s.session()
	if err != nil {
		return nil, nil, err
	}
	defer session.Close()

	msgs, err := session.StreamedCommandRequest("list-sas", "list-sa", nil)
	if err != nil {
		return nil, nil, fmt.Errorf("list-sas failed: %w", err)
	}

	var sas []ikeSaData
	var names []string
	for _, m := range msgs {
		for _, name := range m.Keys() {
			sub, ok := m.Get(name).(*vici.Message)
			if !ok {
				continue
			}
			var data ikeSaData
			if err := vici.UnmarshalMessage(sub, &data); err != nil {
				logger.Warning("Failed to decode SA entry '", name, "': ", err)
				continue
			}
			sas = append(sas, data)
			names = append(names, name)
		}
	}
	return sas, names, nil
}

// selectBestSa picks the representative SA among duplicates for one logical
// tunnel. The order is total: ESTABLISHED beats CONNECTING beats anything
// else, then an SA with children beats one without, then the most recently
// established wins. Remaining ties keep input order.
func selectBestSa(candidates []ikeSaData) *ikeSaData {
	if len(candidates) == 0 {
		return nil
	}
	sorted := make([]ikeSaData, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		si, sj := saStateRank(sorted[i].State), saStateRank(sorted[j].State)
		if si != sj {
			return si > sj
		}
		ci, cj := len(sorted[i].Children) > 0, len(sorted[j].Children) > 0
		if ci != cj {
			return ci
		}
		return sorted[i].Established < sorted[j].Established
	})
	return &sorted[0]
}

func saStateRank(state string) int {
	switch state {
	case saEstablished:
		return 2
	case saConnecting:
		return 1
	default:
		return 0
	}
}

// Resolve maps a logical tunnel name onto its live SA state. Returns
// (nil, nil) when no SA matches and (nil, err) when the daemon cannot be
// queried at all.
func (s *ViciService) Resolve(tunnelName string) (*model.TunnelStatus, error) {
	sas, names, err := s.listSAs()
	if err != nil {
		return nil, err
	}

	connName := ConnName(tunnelName)
	var matches []ikeSaData
	for i := range sas {
		if names[i] == connName {
			matches = append(matches, sas[i])
		}
	}

	best := selectBestSa(matches)
	if best == nil {
		return nil, nil
	}

	status := &model.TunnelStatus{
		IkeState:    best.State,
		LocalHost:   best.LocalHost,
		RemoteHost:  best.RemoteHost,
		Initiator:   best.Initiator == "yes",
		Established: best.Established,
		RekeyTime:   best.RekeyTime,
	}

	// The map key carries an instance suffix; the config name lives in the
	// entry's own name field when present.
	childKeys := make([]string, 0, len(best.Children))
	for key := range best.Children {
		childKeys = append(childKeys, key)
	}
	sort.Strings(childKeys)
	for _, key := range childKeys {
		child := best.Children[key]
		name := child.Name
		if name == "" {
			name = key
		}
		status.ChildSas = append(status.ChildSas, model.ChildSaStatus{
			Name:       name,
			State:      child.State,
			BytesIn:    uint64(child.BytesIn),
			BytesOut:   uint64(child.BytesOut),
			PacketsIn:  uint64(child.PacketsIn),
			PacketsOut: uint64(child.PacketsOut),
		})
	}
	return status, nil
}

// ListSAs returns name and state of every active SA.
func (s *ViciService) ListSAs() ([]SaSummary, error) {
	sas, names, err := s.listSAs()
	if err != nil {
		return nil, err
	}
	result := make([]SaSummary, 0, len(sas))
	for i := range sas {
		result = append(result, SaSummary{Name: names[i], State: sas[i].State})
	}
	return result, nil
}

// UnloadConn removes a loaded connection from the daemon runtime.
func (s *ViciService) UnloadConn(tunnelName string) error {
	session, err := s.session()
	if err != nil {
		return err
	}
	defer session.Close()

	m := vici.NewMessage()
	if err := m.Set("name", ConnName(tunnelName)); err != nil {
		return err
	}
	resp, err := session.CommandRequest("unload-conn", m)
	if err != nil {
		return fmt.Errorf("unload-conn failed: %w", err)
	}
	if err := resp.Err(); err != nil {
		return fmt.Errorf("unload-conn rejected: %w", err)
	}
	logger.Info("Unloaded connection ", tunnelName)
	return nil
}
