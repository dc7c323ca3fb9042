package service

import (
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/EdoardoFiore/madmin-strongswan/logger"
)

// LogDiagnosis is a known failure signature found in the daemon log, mapped
// to a human-readable explanation.
type LogDiagnosis struct {
	Pattern     string `json:"pattern"`
	Description string `json:"description"`
	LogLine     string `json:"log_line"`
}

// TunnelLogs is the result of a filtered log query.
type TunnelLogs struct {
	Logs       []string       `json:"logs"`
	Errors     []LogDiagnosis `json:"errors"`
	TotalLines int            `json:"total_lines"`
}

type errorPattern struct {
	re          *regexp.Regexp
	pattern     string
	description string
}

// Known charon failure messages and what they mean to an operator.
var errorPatterns = []errorPattern{
	{pattern: "received AUTH_FAILED", description: "Authentication failed - wrong or mismatched PSK"},
	{pattern: "no matching peer config found", description: "No matching peer config - check local/remote IDs"},
	{pattern: "received NO_PROPOSAL_CHOSEN", description: "No proposal accepted - incompatible algorithms"},
	{pattern: "establishing IKE_SA.*failed", description: "IKE connection failed - endpoint unreachable"},
	{pattern: "unable to resolve", description: "Cannot resolve hostname - DNS problem"},
	{pattern: "peer didn't accept", description: "Peer rejected the exchange - check the remote configuration"},
	{pattern: "connection timeout", description: "Connection timeout - endpoint not responding"},
	{pattern: "AUTHENTICATION_FAILED", description: "Authentication rejected by the peer"},
	{pattern: "INVALID_KE_PAYLOAD", description: "Invalid DH payload - DH group not supported"},
	{pattern: "INVALID_SYNTAX", description: "Syntax error in IKE message"},
	{pattern: "TS_UNACCEPTABLE", description: "Traffic selector rejected - subnets do not match"},
}

func init() {
	for i := range errorPatterns {
		errorPatterns[i].re = regexp.MustCompile("(?i)" + errorPatterns[i].pattern)
	}
}

// scanLogLine matches one log line against the known failure table.
func scanLogLine(line string) *LogDiagnosis {
	for i := range errorPatterns {
		p := &errorPatterns[i]
		if p.re.MatchString(line) {
			truncated := line
			if len(truncated) > 200 {
				truncated = truncated[:200]
			}
			return &LogDiagnosis{
				Pattern:     p.pattern,
				Description: p.description,
				LogLine:     truncated,
			}
		}
	}
	return nil
}

// filterTunnelLogs selects the lines relevant to a tunnel and collects the
// failure diagnoses found in them. When no line mentions the tunnel, the last
// general charon/IKE lines are returned instead so the operator is not left
// with an empty view.
func filterTunnelLogs(allLines []string, tunnelName string) *TunnelLogs {
	connName := ConnName(tunnelName)
	result := &TunnelLogs{}

	seen := make(map[string]bool)
	for _, line := range allLines {
		if line == "" {
			continue
		}
		if !strings.Contains(line, connName) && !strings.Contains(line, tunnelName) {
			continue
		}
		result.Logs = append(result.Logs, line)
		if diag := scanLogLine(line); diag != nil && !seen[diag.Pattern] {
			seen[diag.Pattern] = true
			result.Errors = append(result.Errors, *diag)
		}
	}

	if len(result.Logs) == 0 && len(allLines) > 0 {
		tail := allLines
		if len(tail) > 20 {
			tail = tail[len(tail)-20:]
		}
		for _, line := range tail {
			lower := strings.ToLower(line)
			if strings.Contains(lower, "charon") || strings.Contains(lower, "ike") {
				result.Logs = append(result.Logs, line)
			}
		}
	}

	result.TotalLines = len(result.Logs)
	if len(result.Logs) > 50 {
		result.Logs = result.Logs[len(result.Logs)-50:]
	}
	return result
}

// LogService queries the strongSwan unit journal.
type LogService struct{}

func NewLogService() *LogService {
	return &LogService{}
}

// GetTunnelLogs fetches recent strongSwan journal lines filtered by tunnel
// name, scanned against the known failure table.
func (s *LogService) GetTunnelLogs(tunnelName string, lines int) *TunnelLogs {
	if lines <= 0 {
		lines = 100
	}
	bin, err := exec.LookPath("journalctl")
	if err != nil {
		logger.Warning("journalctl not found")
		return &TunnelLogs{}
	}
	out, err := exec.Command(bin,
		"-u", "strongswan", "-n", strconv.Itoa(lines), "--no-pager", "-o", "short-iso",
	).Output()
	if err != nil {
		logger.Error("Failed to query strongswan journal: ", err)
		return &TunnelLogs{}
	}
	allLines := strings.Split(strings.TrimSpace(string(out)), "\n")
	return filterTunnelLogs(allLines, tunnelName)
}
