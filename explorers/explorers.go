package explorers

// ABISource is the remote side of ABI resolution: two explorer calls that
// detect a proxy and fetch the descriptor of the right target.
type ABISource interface {
	ResolveABI(chainID uint64, address string, apiKey string) (*ABIResult, error)
}

// TxLister fetches the transaction list of an account.
type TxLister interface {
	AccountTxList(chainID uint64, address string, apiKey string) ([]TxRecord, error)
}
