package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanLogLineKnownPatterns(t *testing.T) {
	cases := []struct {
		line    string
		pattern string
	}{
		{"charon: received AUTH_FAILED notify error", "received AUTH_FAILED"},
		{"charon: no matching peer config found", "no matching peer config found"},
		{"charon: received NO_PROPOSAL_CHOSEN notify", "received NO_PROPOSAL_CHOSEN"},
		{"charon: establishing IKE_SA madmin_branch-a failed", "establishing IKE_SA.*failed"},
		{"charon: unable to resolve vpn.example.org", "unable to resolve"},
		{"charon: received TS_UNACCEPTABLE notify", "TS_UNACCEPTABLE"},
	}
	for _, tc := range cases {
		diag := scanLogLine(tc.line)
		require.NotNil(t, diag, tc.line)
		assert.Equal(t, tc.pattern, diag.Pattern)
		assert.NotEmpty(t, diag.Description)
	}
}

func TestScanLogLineCaseInsensitive(t *testing.T) {
	diag := scanLogLine("charon: Connection Timeout while retransmitting")
	require.NotNil(t, diag)
	assert.Equal(t, "connection timeout", diag.Pattern)
}

func TestScanLogLineNoMatch(t *testing.T) {
	assert.Nil(t, scanLogLine("charon: IKE_SA madmin_branch-a established"))
}

func TestFilterTunnelLogs(t *testing.T) {
	lines := []string{
		"charon: 05[IKE] initiating IKE_SA madmin_branch-a[1]",
		"charon: 05[IKE] received AUTH_FAILED notify for madmin_branch-a",
		"charon: 07[IKE] something about madmin_other",
		"systemd: unrelated line",
	}

	result := filterTunnelLogs(lines, "branch-a")
	assert.Len(t, result.Logs, 2)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "received AUTH_FAILED", result.Errors[0].Pattern)
}

func TestFilterTunnelLogsDeduplicatesErrors(t *testing.T) {
	lines := []string{
		"charon: received AUTH_FAILED for madmin_branch-a",
		"charon: received AUTH_FAILED for madmin_branch-a again",
	}
	result := filterTunnelLogs(lines, "branch-a")
	assert.Len(t, result.Errors, 1)
}

func TestFilterTunnelLogsFallbackToGeneralLines(t *testing.T) {
	lines := []string{
		"systemd: started something",
		"charon: 05[IKE] daemon message",
		"kernel: unrelated",
	}
	result := filterTunnelLogs(lines, "branch-a")
	assert.Equal(t, []string{"charon: 05[IKE] daemon message"}, result.Logs)
	assert.Empty(t, result.Errors)
}
