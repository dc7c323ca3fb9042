package service

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/EdoardoFiore/madmin-strongswan/logger"
)

// ErrSwanctlNotFound reports that the swanctl binary is not installed. The
// API layer maps it to a service-unavailable response.
var ErrSwanctlNotFound = errors.New("swanctl binary not found")

// SwanctlService wraps the swanctl command-line tool. All methods are
// synchronous and expect to run with root privileges.
type SwanctlService struct{}

func NewSwanctlService() *SwanctlService {
	return &SwanctlService{}
}

// run executes swanctl with the given args and returns the combined output.
// A missing binary is reported as ErrSwanctlNotFound; a non-zero exit is
// returned alongside whatever output the tool produced.
func (s *SwanctlService) run(args ...string) (string, error) {
	bin, err := exec.LookPath("swanctl")
	if err != nil {
		return "", ErrSwanctlNotFound
	}
	out, err := exec.Command(bin, args...).CombinedOutput()
	return string(out), err
}

// LoadAll reloads all swanctl connections and secrets from the config
// directory.
func (s *SwanctlService) LoadAll() error {
	out, err := s.run("--load-all")
	if err != nil {
		if errors.Is(err, ErrSwanctlNotFound) {
			return err
		}
		return fmt.Errorf("swanctl --load-all failed: %s", strings.TrimSpace(out))
	}
	return nil
}

// Initiate starts negotiation for a tunnel, optionally scoped to one child
// SA. The wait is bounded; if it expires while the daemon keeps negotiating
// in the background, the initiate is reported as accepted.
func (s *SwanctlService) Initiate(tunnelName string, childName string) error {
	args := []string{"--initiate", "--ike", ConnName(tunnelName), "--timeout", "5"}
	if childName != "" {
		args = append(args, "--child", childName)
	}
	out, err := s.run(args...)
	if err == nil {
		logger.Info("Initiated tunnel ", tunnelName)
		return nil
	}
	if errors.Is(err, ErrSwanctlNotFound) {
		return err
	}
	if initiateTimedOut(out) {
		logger.Warning("Initiate tunnel ", tunnelName, " timed out, daemon keeps retrying in background")
		return nil
	}
	return fmt.Errorf("failed to initiate tunnel '%s': %s", tunnelName, strings.TrimSpace(out))
}

// initiateTimedOut reports whether swanctl output indicates the bounded wait
// expired while negotiation continues asynchronously.
func initiateTimedOut(out string) bool {
	lower := strings.ToLower(out)
	return strings.Contains(lower, "timeout") || strings.Contains(lower, "not established after")
}

// Terminate tears down a tunnel's IKE SA. Terminating a tunnel that is not
// active is not an error.
func (s *SwanctlService) Terminate(tunnelName string) error {
	out, err := s.run("--terminate", "--ike", ConnName(tunnelName))
	if err != nil {
		if errors.Is(err, ErrSwanctlNotFound) {
			return err
		}
		logger.Info("Tunnel ", tunnelName, " termination result: ", strings.TrimSpace(out))
		return nil
	}
	logger.Info("Terminated tunnel ", tunnelName)
	return nil
}

// Version returns the swanctl version line, used by the server status view.
func (s *SwanctlService) Version() (string, error) {
	out, err := s.run("--version")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
