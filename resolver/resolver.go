// Package resolver is the public surface of ABI resolution. A Resolver tries
// its in-process caches, then the disk cache, then legacy name-hint files and
// only then the explorer, with at most one remote fetch attempt per
// (chain id, address) pair for the lifetime of the Resolver.
package resolver

import (
	"encoding/json"
	"os"
	"strings"
	"sync"

	ethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/pkg/errors"

	"github.com/gnomandev/gnoman/abicache"
	"github.com/gnomandev/gnoman/common"
	"github.com/gnomandev/gnoman/config"
	"github.com/gnomandev/gnoman/explorers"
	"github.com/gnomandev/gnoman/log"
	"github.com/gnomandev/gnoman/ratelimit"
)

type cacheKey struct {
	chainID uint64
	address string
}

// CredentialFunc supplies the explorer api key. It is called after the
// fetch-once guard is set, so a missing key burns the attempt like any other
// fetch failure.
type CredentialFunc func() (string, error)

type Resolver struct {
	store      *abicache.Store
	explorer   explorers.ABISource
	credential CredentialFunc
	logger     log.Logger

	mu             sync.Mutex
	abiCache       map[cacheKey]map[string]interface{}
	fileCache      map[cacheKey]string
	fetchAttempted map[cacheKey]bool
}

// New builds a Resolver with its own private cache state. Independent
// Resolvers share nothing unless they are handed the same Store directory.
func New(store *abicache.Store, explorer explorers.ABISource, credential CredentialFunc) *Resolver {
	if credential == nil {
		credential = config.EtherscanAPIKey
	}
	return &Resolver{
		store:          store,
		explorer:       explorer,
		credential:     credential,
		logger:         log.NewLoggerWithField("component", "resolver"),
		abiCache:       map[cacheKey]map[string]interface{}{},
		fileCache:      map[cacheKey]string{},
		fetchAttempted: map[cacheKey]bool{},
	}
}

// NewDefault wires a Resolver against the configured cache dir and the
// configured etherscan endpoint.
func NewDefault() *Resolver {
	return New(
		abicache.New(config.CacheDir()),
		explorers.NewEtherscanLikeExplorer(
			config.BaseURL(),
			ratelimit.New(config.RateLimitMaxCalls(), config.RateLimitWindow()),
		),
		nil,
	)
}

// Reset drops all in-process cache state, including the fetch-once guard.
// Cache files on disk are untouched.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.abiCache = map[cacheKey]map[string]interface{}{}
	r.fileCache = map[cacheKey]string{}
	r.fetchAttempted = map[cacheKey]bool{}
}

// ResolveFile returns the path of the cached ABI payload file for the
// address, producing it first if needed: memory file cache, then the
// address-keyed disk cache, then legacy name-hint files (copied into the
// address-keyed cache tagged source=name-cache), then a guarded remote fetch.
// An existing but unusable name-hint file is an error, not a cache miss.
func (r *Resolver) ResolveFile(chainID uint64, address string, nameHint string) (string, error) {
	normalized, err := common.NormalizeAddress(address)
	if err != nil {
		return "", err
	}
	key := cacheKey{chainID: chainID, address: normalized}

	r.mu.Lock()
	if path, found := r.fileCache[key]; found {
		r.mu.Unlock()
		return path, nil
	}
	r.mu.Unlock()

	path, err := r.store.AddressABIPath(chainID, normalized)
	if err != nil {
		return "", err
	}
	if fileExists(path) {
		r.logger.WithField("path", path).Info("abi cache hit")
		r.mu.Lock()
		r.fileCache[key] = path
		r.mu.Unlock()
		return path, nil
	}

	if nameHint != "" {
		path, found, err := r.resolveFromNameHint(key, nameHint)
		if err != nil {
			return "", err
		}
		if found {
			return path, nil
		}
	}

	return r.fetchRemote(key, nameHint)
}

// resolveFromNameHint checks the legacy flat cache files and, when one
// exists, promotes it into the address-keyed cache. A candidate that exists
// but cannot be read or promoted fails the resolution outright: falling
// through to a remote fetch would hide the broken file behind a rate-limited
// network call.
func (r *Resolver) resolveFromNameHint(key cacheKey, nameHint string) (string, bool, error) {
	for _, candidate := range r.store.NameHintCandidates(nameHint) {
		if !fileExists(candidate) {
			continue
		}
		payload, err := r.store.ReadPayload(candidate)
		if err != nil {
			return "", false, errors.Wrapf(err, "name-hint cache file %s", candidate)
		}
		cachePath, err := r.store.WriteEntry(abicache.Entry{
			ChainID:       key.chainID,
			Address:       key.address,
			Payload:       payload,
			TargetAddress: key.address,
			NameHint:      nameHint,
			Source:        abicache.SOURCE_NAME_CACHE,
		})
		if err != nil {
			return "", false, errors.Wrapf(err, "promoting name-hint cache file %s", candidate)
		}
		r.logger.WithFields(log.Fields{
			"hint": nameHint,
			"path": cachePath,
		}).Info("abi resolved from legacy name cache")
		r.mu.Lock()
		r.fileCache[key] = cachePath
		r.abiCache[key] = payload
		r.mu.Unlock()
		return cachePath, true, nil
	}
	return "", false, nil
}

// fetchRemote performs the one allowed explorer fetch for the key. The
// check-and-set on the guard happens as one unit under the lock, before any
// credential lookup or network call, and is never rolled back: a failed
// attempt closes the key until Reset or process exit.
func (r *Resolver) fetchRemote(key cacheKey, nameHint string) (string, error) {
	r.mu.Lock()
	if r.fetchAttempted[key] {
		r.mu.Unlock()
		return "", errors.Wrapf(common.ErrRepeatedFetchAttempt,
			"for %s on chain %d", key.address, key.chainID)
	}
	r.fetchAttempted[key] = true
	r.mu.Unlock()

	apiKey, err := r.credential()
	if err != nil {
		return "", err
	}

	r.logger.WithFields(log.Fields{
		"address": key.address,
		"chainId": key.chainID,
	}).Info("abi cache miss, fetching from explorer")

	result, err := r.explorer.ResolveABI(key.chainID, key.address, apiKey)
	if err != nil {
		return "", err
	}

	path, err := r.store.WriteEntry(abicache.Entry{
		ChainID:        key.chainID,
		Address:        key.address,
		Payload:        abicache.WrapDescriptor(result.ABI),
		TargetAddress:  result.TargetAddress,
		IsProxy:        result.IsProxy,
		Implementation: result.Implementation,
		NameHint:       nameHint,
		Source:         abicache.SOURCE_REMOTE,
	})
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	r.fileCache[key] = path
	r.mu.Unlock()
	return path, nil
}

// ResolveByAddress returns the parsed ABI payload ({"abi": [...]}) for the
// address, going through ResolveFile on a descriptor-cache miss.
func (r *Resolver) ResolveByAddress(chainID uint64, address string, nameHint string) (map[string]interface{}, error) {
	normalized, err := common.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	key := cacheKey{chainID: chainID, address: normalized}

	r.mu.Lock()
	if payload, found := r.abiCache[key]; found {
		r.mu.Unlock()
		return payload, nil
	}
	r.mu.Unlock()

	path, err := r.ResolveFile(chainID, normalized, nameHint)
	if err != nil {
		return nil, err
	}
	payload, err := r.store.ReadPayload(path)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.abiCache[key] = payload
	r.mu.Unlock()
	return payload, nil
}

// ResolveContractABI resolves the payload and parses it into a go-ethereum
// ABI for callers that want to encode calls or decode logs.
func (r *Resolver) ResolveContractABI(chainID uint64, address string, nameHint string) (*ethabi.ABI, error) {
	payload, err := r.ResolveByAddress(chainID, address, nameHint)
	if err != nil {
		return nil, err
	}
	entries, err := json.Marshal(payload["abi"])
	if err != nil {
		return nil, errors.Wrapf(err, "serializing abi entries for %s", address)
	}
	parsed, err := ethabi.JSON(strings.NewReader(string(entries)))
	if err != nil {
		return nil, errors.Wrapf(err, "parsing abi for %s", address)
	}
	return &parsed, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
