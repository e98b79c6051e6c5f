package msig_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnomandev/gnoman/msig"
)

func validState() msig.SafeState {
	return msig.SafeState{
		Address:   "0xaaaa",
		Owners:    []string{"0x1", "0x2", "0x3"},
		Threshold: 2,
	}
}

func TestPersistAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "gnosis_safe_state.json")
	require.NoError(t, msig.Persist(path, validState()))

	loaded, err := msig.Load(path)
	require.NoError(t, err)
	assert.Equal(t, validState(), loaded)
}

func TestPersistRejectsInvalidState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	tests := []struct {
		name  string
		state msig.SafeState
	}{
		{"no address", msig.SafeState{Owners: []string{"0x1", "0x2", "0x3"}, Threshold: 2}},
		{"too few owners", msig.SafeState{Address: "0xaaaa", Owners: []string{"0x1", "0x2"}, Threshold: 2}},
		{"threshold above owners", msig.SafeState{Address: "0xaaaa", Owners: []string{"0x1", "0x2", "0x3"}, Threshold: 4}},
		{"zero threshold", msig.SafeState{Address: "0xaaaa", Owners: []string{"0x1", "0x2", "0x3"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, msig.Persist(path, tt.state))
			_, err := os.Stat(path)
			assert.True(t, os.IsNotExist(err), "invalid state must not be written")
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := msig.Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.True(t, errors.Is(err, msig.ErrStateMissing))
}

func TestLoadRejectsIncompleteOwners(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"address":"0xaaaa","owners":["0x1"],"threshold":1}`), 0o644))

	_, err := msig.Load(path)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, msig.ErrStateMissing)
}
