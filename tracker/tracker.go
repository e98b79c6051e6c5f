// Package tracker polls the explorer for the tracked safe's transaction list
// on a timer and logs the results to a flat JSON file. It is a pure consumer:
// it reads the persisted safe state and never writes it.
package tracker

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/gnomandev/gnoman/config"
	"github.com/gnomandev/gnoman/explorers"
	"github.com/gnomandev/gnoman/log"
	"github.com/gnomandev/gnoman/msig"
	"github.com/gnomandev/gnoman/ratelimit"
)

const DEFAULT_POLL_INTERVAL time.Duration = 30 * time.Second

type Tracker struct {
	lister     explorers.TxLister
	chainID    uint64
	statePath  string
	logPath    string
	interval   time.Duration
	credential func() (string, error)
	logger     log.Logger
}

func New(
	lister explorers.TxLister,
	chainID uint64,
	statePath, logPath string,
	interval time.Duration,
	credential func() (string, error),
) *Tracker {
	if interval <= 0 {
		interval = DEFAULT_POLL_INTERVAL
	}
	if credential == nil {
		credential = config.EtherscanAPIKey
	}
	return &Tracker{
		lister:     lister,
		chainID:    chainID,
		statePath:  statePath,
		logPath:    logPath,
		interval:   interval,
		credential: credential,
		logger:     log.NewLoggerWithField("component", "tracker"),
	}
}

// NewDefault wires a Tracker from the loaded configuration.
func NewDefault() *Tracker {
	return New(
		explorers.NewEtherscanLikeExplorer(
			config.BaseURL(),
			ratelimit.New(config.RateLimitMaxCalls(), config.RateLimitWindow()),
		),
		config.DefaultChainID(),
		config.SafeStatePath(),
		config.TxLogPath(),
		config.PollInterval(),
		nil,
	)
}

// Run polls until ctx is cancelled or a poll fails. There are no retries: a
// failed poll surfaces to the caller, restarting is the caller's decision.
func (t *Tracker) Run(ctx context.Context) error {
	state, err := msig.Load(t.statePath)
	if err != nil {
		return err
	}
	apiKey, err := t.credential()
	if err != nil {
		return err
	}

	runLogger := t.logger.WithFields(log.Fields{
		"run":  uuid.New().String(),
		"safe": state.Address,
	})
	runLogger.Info("tracking safe transactions")

	for {
		count, err := t.pollOnce(state.Address, apiKey)
		if err != nil {
			return err
		}
		runLogger.WithField("txs", count).Info("transactions logged")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(t.interval):
		}
	}
}

func (t *Tracker) pollOnce(address, apiKey string) (int, error) {
	txs, err := t.lister.AccountTxList(t.chainID, address, apiKey)
	if err != nil {
		return 0, err
	}
	data, err := json.MarshalIndent(txs, "", "  ")
	if err != nil {
		return 0, errors.Wrap(err, "serializing tx log")
	}
	if err = os.MkdirAll(filepath.Dir(t.logPath), 0o755); err != nil {
		return 0, errors.Wrapf(err, "creating log dir for %s", t.logPath)
	}
	tmp, err := os.CreateTemp(filepath.Dir(t.logPath), filepath.Base(t.logPath)+".tmp")
	if err != nil {
		return 0, errors.Wrapf(err, "writing tx log %s", t.logPath)
	}
	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return 0, errors.Wrapf(err, "writing tx log %s", t.logPath)
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return 0, errors.Wrapf(err, "writing tx log %s", t.logPath)
	}
	if err = os.Rename(tmp.Name(), t.logPath); err != nil {
		os.Remove(tmp.Name())
		return 0, errors.Wrapf(err, "writing tx log %s", t.logPath)
	}
	return len(txs), nil
}
