// Package msig persists and reloads the state of the tracked multisig safe:
// its address, owner list and confirmation threshold, as flat JSON.
package msig

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const (
	DEFAULT_STATE_PATH string = "state/gnosis_safe_state.json"

	// MIN_OWNERS is the smallest owner set a safe is allowed to persist with.
	MIN_OWNERS int = 3
)

var ErrStateMissing = errors.New("safe state file missing")

type SafeState struct {
	Address   string   `json:"address"`
	Owners    []string `json:"owners"`
	Threshold int      `json:"threshold"`
}

func (s SafeState) validate() error {
	if s.Address == "" {
		return errors.New("safe state is missing an address")
	}
	if len(s.Owners) < MIN_OWNERS {
		return errors.Errorf("safe must have at least %d owners, got %d", MIN_OWNERS, len(s.Owners))
	}
	if s.Threshold < 1 || s.Threshold > len(s.Owners) {
		return errors.Errorf("safe threshold %d out of range for %d owners", s.Threshold, len(s.Owners))
	}
	return nil
}

// Persist validates the state and writes it to path, creating parent
// directories as needed. The file is published via temp-then-rename so a
// concurrent reader never sees a truncated state.
func Persist(path string, state SafeState) error {
	if path == "" {
		path = DEFAULT_STATE_PATH
	}
	if err := state.validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating state dir for %s", path)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Wrap(err, "serializing safe state")
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp")
	if err != nil {
		return errors.Wrapf(err, "writing safe state %s", path)
	}
	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "writing safe state %s", path)
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "writing safe state %s", path)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "writing safe state %s", path)
	}
	return nil
}

// Load reads and validates the persisted safe state. A missing file is
// reported as ErrStateMissing so callers can tell persistence failures from
// corrupt state.
func Load(path string) (SafeState, error) {
	if path == "" {
		path = DEFAULT_STATE_PATH
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return SafeState{}, errors.Wrap(ErrStateMissing, path)
		}
		return SafeState{}, errors.Wrapf(err, "reading safe state %s", path)
	}
	var state SafeState
	if err = json.Unmarshal(content, &state); err != nil {
		return SafeState{}, errors.Wrapf(err, "parsing safe state %s", path)
	}
	if err = state.validate(); err != nil {
		return SafeState{}, errors.Wrapf(err, "in %s", path)
	}
	return state, nil
}
