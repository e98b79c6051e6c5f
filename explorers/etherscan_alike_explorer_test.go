package explorers_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnomandev/gnoman/common"
	"github.com/gnomandev/gnoman/explorers"
	"github.com/gnomandev/gnoman/ratelimit"
)

const counterABI = `[{"type":"function","name":"increment","inputs":[],"outputs":[]}]`

// explorerStub replays canned getsourcecode/getabi responses and records the
// addresses each action was called with.
type explorerStub struct {
	implementation string
	abiByAddress   map[string]string
	abiStatus      string

	getabiCalls       []string
	getsourcecodeCall int
	lastQuery         map[string]string
}

func (s *explorerStub) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		s.lastQuery = map[string]string{}
		for k := range q {
			s.lastQuery[k] = q.Get(k)
		}
		switch q.Get("action") {
		case "getsourcecode":
			s.getsourcecodeCall++
			fmt.Fprintf(w, `{"status":"1","message":"OK","result":[{"ContractName":"Test","Implementation":%q}]}`,
				s.implementation)
		case "getabi":
			address := q.Get("address")
			s.getabiCalls = append(s.getabiCalls, address)
			status := s.abiStatus
			if status == "" {
				status = "1"
			}
			resp := map[string]interface{}{
				"status":  status,
				"message": "OK",
				"result":  s.abiByAddress[address],
			}
			assert.NoError(t, json.NewEncoder(w).Encode(resp))
		default:
			t.Errorf("unexpected action %q", q.Get("action"))
		}
	}
}

func newStubExplorer(t *testing.T, stub *explorerStub) *explorers.EtherscanLikeExplorer {
	server := httptest.NewServer(stub.handler(t))
	t.Cleanup(server.Close)
	return explorers.NewEtherscanLikeExplorer(server.URL, ratelimit.New(100, time.Second))
}

func TestResolveABIDirectContract(t *testing.T) {
	stub := &explorerStub{
		abiByAddress: map[string]string{"0xaaaa": counterABI},
	}
	ee := newStubExplorer(t, stub)

	result, err := ee.ResolveABI(1, " 0xAAAA ", "test-key")
	require.NoError(t, err)
	assert.False(t, result.IsProxy)
	assert.Empty(t, result.Implementation)
	assert.Equal(t, "0xaaaa", result.TargetAddress)
	assert.Len(t, result.ABI, 1)

	assert.Equal(t, []string{"0xaaaa"}, stub.getabiCalls)
	assert.Equal(t, "contract", stub.lastQuery["module"])
	assert.Equal(t, "test-key", stub.lastQuery["apikey"])
	assert.Equal(t, "1", stub.lastQuery["chainid"])
}

func TestResolveABIProxyFetchesImplementation(t *testing.T) {
	stub := &explorerStub{
		implementation: "0xBBBB",
		abiByAddress:   map[string]string{"0xbbbb": counterABI},
	}
	ee := newStubExplorer(t, stub)

	result, err := ee.ResolveABI(1, "0xaaaa", "test-key")
	require.NoError(t, err)
	assert.True(t, result.IsProxy)
	assert.Equal(t, "0xbbbb", result.Implementation)
	assert.Equal(t, "0xbbbb", result.TargetAddress)
	assert.Equal(t, []string{"0xbbbb"}, stub.getabiCalls, "getabi must hit the implementation")
}

func TestResolveABIZeroImplementationIsNotAProxy(t *testing.T) {
	stub := &explorerStub{
		implementation: common.ZERO_ADDRESS,
		abiByAddress:   map[string]string{"0xaaaa": counterABI},
	}
	ee := newStubExplorer(t, stub)

	result, err := ee.ResolveABI(1, "0xaaaa", "test-key")
	require.NoError(t, err)
	assert.False(t, result.IsProxy)
	assert.Equal(t, "0xaaaa", result.TargetAddress)
}

func TestResolveABIBadStatus(t *testing.T) {
	stub := &explorerStub{
		abiStatus:    "0",
		abiByAddress: map[string]string{"0xaaaa": "Contract source code not verified"},
	}
	ee := newStubExplorer(t, stub)

	_, err := ee.ResolveABI(1, "0xaaaa", "test-key")
	assert.True(t, errors.Is(err, common.ErrRemoteProtocolError))
	assert.Contains(t, err.Error(), "not verified")
}

func TestResolveABIUnparseableDescriptor(t *testing.T) {
	stub := &explorerStub{
		abiByAddress: map[string]string{"0xaaaa": "this is not json"},
	}
	ee := newStubExplorer(t, stub)

	_, err := ee.ResolveABI(1, "0xaaaa", "test-key")
	assert.True(t, errors.Is(err, common.ErrRemoteProtocolError))
}

func TestResolveABIEmptyDescriptor(t *testing.T) {
	stub := &explorerStub{
		abiByAddress: map[string]string{"0xaaaa": "[]"},
	}
	ee := newStubExplorer(t, stub)

	_, err := ee.ResolveABI(1, "0xaaaa", "test-key")
	assert.True(t, errors.Is(err, common.ErrEmptyDescriptor))
}

func TestQueryTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close() // connection refused from here on
	ee := explorers.NewEtherscanLikeExplorer(server.URL, ratelimit.New(100, time.Second))

	_, err := ee.GetABIString(1, "0xaaaa", "test-key")
	assert.True(t, errors.Is(err, common.ErrRemoteRequestFailed))
}

func TestQueryRejectsInvalidAddressBeforeNetwork(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))
	t.Cleanup(server.Close)
	ee := explorers.NewEtherscanLikeExplorer(server.URL, ratelimit.NewDefault())

	_, err := ee.GetABIString(1, "no-prefix", "test-key")
	assert.True(t, errors.Is(err, common.ErrInvalidAddress))
	assert.False(t, called)
}

func TestAccountTxList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "account", q.Get("module"))
		assert.Equal(t, "txlist", q.Get("action"))
		fmt.Fprint(w, `{"status":"1","message":"OK","result":[{"hash":"0x1","to":"0xaaaa"},{"hash":"0x2","to":"0xaaaa"}]}`)
	}))
	t.Cleanup(server.Close)
	ee := explorers.NewEtherscanLikeExplorer(server.URL, ratelimit.New(100, time.Second))

	txs, err := ee.AccountTxList(1, "0xaaaa", "test-key")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "0x1", txs[0]["hash"])
}

func TestAccountTxListErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"0","message":"NOTOK","result":null}`)
	}))
	t.Cleanup(server.Close)
	ee := explorers.NewEtherscanLikeExplorer(server.URL, ratelimit.New(100, time.Second))

	_, err := ee.AccountTxList(1, "0xaaaa", "test-key")
	assert.True(t, errors.Is(err, common.ErrRemoteProtocolError))
	assert.Contains(t, err.Error(), "NOTOK")
}

func TestExplorerCallsAreRateLimited(t *testing.T) {
	stub := &explorerStub{
		abiByAddress: map[string]string{"0xaaaa": counterABI, "0xbbbb": counterABI},
	}
	server := httptest.NewServer(stub.handler(t))
	t.Cleanup(server.Close)

	window := 200 * time.Millisecond
	ee := explorers.NewEtherscanLikeExplorer(server.URL, ratelimit.New(3, window))

	// Two cold resolutions issue 4 underlying calls, one over the ceiling of
	// 3 per window, so the wall time covers at least one window.
	start := time.Now()
	_, err := ee.ResolveABI(1, "0xaaaa", "test-key")
	require.NoError(t, err)
	_, err = ee.ResolveABI(1, "0xbbbb", "test-key")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), window*9/10)
}
