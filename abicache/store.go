// Package abicache owns the on-disk layout of resolved contract ABIs: one
// payload file plus one metadata sidecar per (chain id, address), rooted at a
// configurable cache directory.
package abicache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/gnomandev/gnoman/common"
)

const (
	DEFAULT_ROOT string = "abi"

	SOURCE_REMOTE     string = "remote"
	SOURCE_NAME_CACHE string = "name-cache"
)

// Metadata is the sidecar written next to each cached ABI payload.
type Metadata struct {
	ChainID          uint64 `json:"chainId"`
	Address          string `json:"address"`
	ABITargetAddress string `json:"abiTargetAddress"`
	IsProxy          bool   `json:"isProxy"`
	Implementation   string `json:"implementation,omitempty"`
	ABINameHint      string `json:"abiNameHint,omitempty"`
	Source           string `json:"source"`
	FetchedAt        string `json:"fetchedAt"`
	ABISha256        string `json:"abiSha256"`
}

// Entry is one resolved ABI to be persisted. Address is the address the
// caller asked about, TargetAddress the one the payload was actually fetched
// from; they differ exactly when the contract is a proxy. The entry is always
// keyed on disk by Address.
type Entry struct {
	ChainID        uint64
	Address        string
	Payload        map[string]interface{}
	TargetAddress  string
	IsProxy        bool
	Implementation string
	NameHint       string
	Source         string
}

type Store struct {
	root string
}

func New(root string) *Store {
	if root == "" {
		root = DEFAULT_ROOT
	}
	return &Store{root: root}
}

func (s *Store) Root() string {
	return s.root
}

func (s *Store) AddressABIPath(chainID uint64, address string) (string, error) {
	normalized, err := common.NormalizeAddress(address)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, "address", strconv.FormatUint(chainID, 10), normalized+".json"), nil
}

func (s *Store) AddressMetaPath(chainID uint64, address string) (string, error) {
	normalized, err := common.NormalizeAddress(address)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, "address", strconv.FormatUint(chainID, 10), normalized+".meta.json"), nil
}

// NameHintCandidates lists the legacy flat cache locations a name hint may
// live at, in lookup order.
func (s *Store) NameHintCandidates(hint string) []string {
	return []string{
		filepath.Join(s.root, hint+".json"),
		filepath.Join(s.root, "_"+hint+".json"),
	}
}

// WrapDescriptor puts a bare descriptor entry sequence into the payload shape
// the cache stores.
func WrapDescriptor(abi []interface{}) map[string]interface{} {
	return map[string]interface{}{"abi": abi}
}

// ReadPayload parses an ABI payload file. A bare array is wrapped as
// {"abi": [...]}, an object already carrying an "abi" key passes through, any
// other shape is rejected with common.ErrUnexpectedPayloadFormat.
func (s *Store) ReadPayload(path string) (map[string]interface{}, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading abi file %s", path)
	}
	var parsed interface{}
	if err = json.Unmarshal(content, &parsed); err != nil {
		return nil, errors.Wrapf(common.ErrUnexpectedPayloadFormat, "in %s: %s", path, err)
	}
	switch payload := parsed.(type) {
	case []interface{}:
		return WrapDescriptor(payload), nil
	case map[string]interface{}:
		if _, found := payload["abi"]; found {
			return payload, nil
		}
	}
	return nil, errors.Wrapf(common.ErrUnexpectedPayloadFormat, "in %s", path)
}

func (s *Store) ReadMetadata(chainID uint64, address string) (Metadata, error) {
	path, err := s.AddressMetaPath(chainID, address)
	if err != nil {
		return Metadata{}, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, errors.Wrapf(err, "reading abi metadata %s", path)
	}
	var meta Metadata
	if err = json.Unmarshal(content, &meta); err != nil {
		return Metadata{}, errors.Wrapf(err, "parsing abi metadata %s", path)
	}
	return meta, nil
}

// CanonicalDigest computes the sha256 hex digest of the canonical payload
// serialization. encoding/json writes map keys sorted and no incidental
// whitespace, which is exactly the canonical form the digest is defined over.
func CanonicalDigest(payload map[string]interface{}) (string, error) {
	canonical, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Wrap(err, "canonical abi serialization")
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// WriteEntry persists the payload file and its metadata sidecar, creating
// parent directories as needed, and returns the payload file path. Both files
// are published with write-to-temp-then-rename, payload first, so a
// concurrent reader never opens a truncated file and never sees metadata
// without its payload.
func (s *Store) WriteEntry(entry Entry) (string, error) {
	address, err := common.NormalizeAddress(entry.Address)
	if err != nil {
		return "", err
	}
	target, err := common.NormalizeAddress(entry.TargetAddress)
	if err != nil {
		return "", err
	}
	implementation := ""
	if entry.Implementation != "" {
		if implementation, err = common.NormalizeAddress(entry.Implementation); err != nil {
			return "", err
		}
	}

	abiPath, err := s.AddressABIPath(entry.ChainID, address)
	if err != nil {
		return "", err
	}
	metaPath, err := s.AddressMetaPath(entry.ChainID, address)
	if err != nil {
		return "", err
	}
	if err = os.MkdirAll(filepath.Dir(abiPath), 0o755); err != nil {
		return "", errors.Wrapf(err, "creating cache dir for %s", abiPath)
	}

	digest, err := CanonicalDigest(entry.Payload)
	if err != nil {
		return "", err
	}
	pretty, err := json.MarshalIndent(entry.Payload, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "serializing abi payload")
	}
	if err = writeFileAtomic(abiPath, pretty); err != nil {
		return "", errors.Wrapf(err, "writing abi file %s", abiPath)
	}

	meta := Metadata{
		ChainID:          entry.ChainID,
		Address:          address,
		ABITargetAddress: target,
		IsProxy:          entry.IsProxy,
		Implementation:   implementation,
		ABINameHint:      entry.NameHint,
		Source:           entry.Source,
		FetchedAt:        time.Now().UTC().Format(time.RFC3339),
		ABISha256:        digest,
	}
	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "serializing abi metadata")
	}
	if err = writeFileAtomic(metaPath, metaJSON); err != nil {
		return "", errors.Wrapf(err, "writing abi metadata %s", metaPath)
	}
	return abiPath, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp")
	if err != nil {
		return err
	}
	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
