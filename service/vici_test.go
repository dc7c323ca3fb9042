package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectBestSaEmpty(t *testing.T) {
	assert.Nil(t, selectBestSa(nil))
}

func TestSelectBestSaPrefersEstablished(t *testing.T) {
	candidates := []ikeSaData{
		{UniqueID: "1", State: "CONNECTING"},
		{UniqueID: "2", State: "ESTABLISHED"},
		{UniqueID: "3", State: "DELETING"},
	}
	best := selectBestSa(candidates)
	require.NotNil(t, best)
	assert.Equal(t, "2", best.UniqueID)
}

func TestSelectBestSaPrefersConnectingOverOther(t *testing.T) {
	candidates := []ikeSaData{
		{UniqueID: "1", State: "DELETING"},
		{UniqueID: "2", State: "CONNECTING"},
	}
	assert.Equal(t, "2", selectBestSa(candidates).UniqueID)
}

func TestSelectBestSaPrefersChildrenAmongEqualState(t *testing.T) {
	candidates := []ikeSaData{
		{UniqueID: "1", State: "ESTABLISHED"},
		{UniqueID: "2", State: "ESTABLISHED", Children: map[string]childSaData{
			"net1-1": {Name: "net1"},
		}},
	}
	assert.Equal(t, "2", selectBestSa(candidates).UniqueID)
}

func TestSelectBestSaPrefersNewestEstablished(t *testing.T) {
	children := map[string]childSaData{"net1-1": {Name: "net1"}}
	candidates := []ikeSaData{
		{UniqueID: "old", State: "ESTABLISHED", Established: 900, Children: children},
		{UniqueID: "new", State: "ESTABLISHED", Established: 5, Children: children},
	}
	assert.Equal(t, "new", selectBestSa(candidates).UniqueID)
}

func TestSelectBestSaDeterministicOnFullTies(t *testing.T) {
	candidates := []ikeSaData{
		{UniqueID: "first", State: "CONNECTING"},
		{UniqueID: "second", State: "CONNECTING"},
	}
	for i := 0; i < 10; i++ {
		assert.Equal(t, "first", selectBestSa(candidates).UniqueID)
	}
}

func TestSelectBestSaDoesNotMutateInput(t *testing.T) {
	candidates := []ikeSaData{
		{UniqueID: "1", State: "DELETING"},
		{UniqueID: "2", State: "ESTABLISHED"},
	}
	selectBestSa(candidates)
	assert.Equal(t, "1", candidates[0].UniqueID)
	assert.Equal(t, "2", candidates[1].UniqueID)
}

func TestSaStateRank(t *testing.T) {
	assert.Greater(t, saStateRank("ESTABLISHED"), saStateRank("CONNECTING"))
	assert.Greater(t, saStateRank("CONNECTING"), saStateRank("DELETING"))
	assert.Equal(t, saStateRank("DELETING"), saStateRank("REKEYING"))
}
