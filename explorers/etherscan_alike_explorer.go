package explorers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/gnomandev/gnoman/common"
	"github.com/gnomandev/gnoman/log"
	"github.com/gnomandev/gnoman/ratelimit"
)

const REQUEST_TIMEOUT time.Duration = 20 * time.Second

// EtherscanLikeExplorer talks to one etherscan-alike multichain endpoint. All
// methods take the chain id and api key per call since the endpoint serves
// every chain behind a single URL. Every request goes through the rate
// limiter first.
type EtherscanLikeExplorer struct {
	BaseURL string

	limiter *ratelimit.Limiter
	client  *http.Client
	logger  log.Logger
}

func NewEtherscanLikeExplorer(baseURL string, limiter *ratelimit.Limiter) *EtherscanLikeExplorer {
	if limiter == nil {
		limiter = ratelimit.NewDefault()
	}
	return &EtherscanLikeExplorer{
		BaseURL: baseURL,
		limiter: limiter,
		client:  &http.Client{Timeout: REQUEST_TIMEOUT},
		logger:  log.NewLoggerWithField("component", "explorer"),
	}
}

func (ee *EtherscanLikeExplorer) query(
	module, action string,
	chainID uint64,
	address, apiKey string,
) ([]byte, error) {
	normalized, err := common.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}

	ee.limiter.Acquire()

	params := url.Values{}
	params.Set("module", module)
	params.Set("action", action)
	params.Set("address", normalized)
	params.Set("apikey", apiKey)
	params.Set("chainid", strconv.FormatUint(chainID, 10))

	resp, err := ee.client.Get(ee.BaseURL + "?" + params.Encode())
	if err != nil {
		return nil, errors.Wrapf(common.ErrRemoteRequestFailed, "%s for %s: %s", action, normalized, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Wrapf(common.ErrRemoteRequestFailed, "%s for %s: http %d", action, normalized, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(common.ErrRemoteRequestFailed, "%s for %s: %s", action, normalized, err)
	}
	return body, nil
}

// ContractSource is the part of a getsourcecode result entry this subsystem
// cares about.
type ContractSource struct {
	ContractName   string `json:"ContractName"`
	Proxy          string `json:"Proxy"`
	Implementation string `json:"Implementation"`
}

type sourcecoderesponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// ContractSourceCode calls getsourcecode. The explorer puts an error string
// into result on failures; a non-array result just means no source info is
// available, which is not an error for proxy detection.
func (ee *EtherscanLikeExplorer) ContractSourceCode(
	chainID uint64,
	address, apiKey string,
) ([]ContractSource, error) {
	body, err := ee.query("contract", "getsourcecode", chainID, address, apiKey)
	if err != nil {
		return nil, err
	}
	resp := sourcecoderesponse{}
	if err = json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrapf(common.ErrRemoteProtocolError, "getsourcecode for %s: %s", address, err)
	}
	sources := []ContractSource{}
	json.Unmarshal(resp.Result, &sources) // nolint: errcheck
	return sources, nil
}

type abiresponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

func (ar *abiresponse) IsOK() bool {
	return ar.Status == "1"
}

// GetABIString calls getabi and returns the raw descriptor string. Bad status
// or a non-string result is a protocol error.
func (ee *EtherscanLikeExplorer) GetABIString(
	chainID uint64,
	address, apiKey string,
) (string, error) {
	body, err := ee.query("contract", "getabi", chainID, address, apiKey)
	if err != nil {
		return "", err
	}
	abiresp := abiresponse{}
	if err = json.Unmarshal(body, &abiresp); err != nil {
		return "", errors.Wrapf(common.ErrRemoteProtocolError, "getabi for %s: %s", address, err)
	}
	if !abiresp.IsOK() {
		message := abiresp.Result
		if message == "" {
			message = abiresp.Message
		}
		if message == "" {
			message = "unknown explorer error"
		}
		return "", errors.Wrapf(common.ErrRemoteProtocolError, "getabi for %s: %s", address, message)
	}
	return abiresp.Result, nil
}

// ABIResult is the outcome of a full proxy-aware ABI lookup. TargetAddress is
// the address the descriptor was actually fetched from; it differs from the
// queried address exactly when IsProxy is set.
type ABIResult struct {
	ABI            []interface{}
	TargetAddress  string
	IsProxy        bool
	Implementation string
}

// ResolveABI detects whether address is a proxy via getsourcecode and then
// fetches the descriptor of the implementation (or of the address itself when
// it isn't one) via getabi.
func (ee *EtherscanLikeExplorer) ResolveABI(
	chainID uint64,
	address, apiKey string,
) (*ABIResult, error) {
	normalized, err := common.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}

	sources, err := ee.ContractSourceCode(chainID, normalized, apiKey)
	if err != nil {
		return nil, err
	}
	implementation := ""
	isProxy := false
	if len(sources) > 0 {
		implementation = strings.ToLower(strings.TrimSpace(sources[0].Implementation))
		if implementation != "" && !common.IsZeroAddress(implementation) {
			isProxy = true
		}
	}

	target := normalized
	if isProxy {
		target = implementation
		ee.logger.WithFields(log.Fields{
			"address":        normalized,
			"implementation": implementation,
			"chainId":        chainID,
		}).Info("proxy detected, fetching implementation abi for the original address")
	}

	abiStr, err := ee.GetABIString(chainID, target, apiKey)
	if err != nil {
		return nil, err
	}
	abi := []interface{}{}
	if err = json.Unmarshal([]byte(abiStr), &abi); err != nil {
		return nil, errors.Wrapf(common.ErrRemoteProtocolError, "abi payload for %s: %s", target, err)
	}
	if len(abi) == 0 {
		return nil, errors.Wrapf(common.ErrEmptyDescriptor, "for %s on chain %d", target, chainID)
	}

	return &ABIResult{
		ABI:            abi,
		TargetAddress:  target,
		IsProxy:        isProxy,
		Implementation: implementation,
	}, nil
}

// TxRecord is one transaction as the explorer reports it. The tracker only
// logs these, so the shape stays opaque.
type TxRecord map[string]interface{}

type txlistresponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// AccountTxList calls module=account action=txlist for the given address.
func (ee *EtherscanLikeExplorer) AccountTxList(
	chainID uint64,
	address, apiKey string,
) ([]TxRecord, error) {
	body, err := ee.query("account", "txlist", chainID, address, apiKey)
	if err != nil {
		return nil, err
	}
	resp := txlistresponse{}
	if err = json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrapf(common.ErrRemoteProtocolError, "txlist for %s: %s", address, err)
	}
	if resp.Status != "1" {
		return nil, errors.Wrapf(common.ErrRemoteProtocolError, "txlist for %s: %s", address, resp.Message)
	}
	txs := []TxRecord{}
	if err = json.Unmarshal(resp.Result, &txs); err != nil {
		return nil, errors.Wrapf(common.ErrRemoteProtocolError, "txlist for %s: %s", address, err)
	}
	return txs, nil
}
