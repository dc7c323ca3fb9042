package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitiateTimedOut(t *testing.T) {
	assert.True(t, initiateTimedOut("initiate failed: timeout"))
	assert.True(t, initiateTimedOut("IKE_SA madmin_branch-a not established after 5000ms"))
	assert.True(t, initiateTimedOut("TIMEOUT while waiting"))
	assert.False(t, initiateTimedOut("initiate failed: peer not responding to initial message"))
	assert.False(t, initiateTimedOut(""))
}
