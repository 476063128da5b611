package types

// Network names a ledger the client can target.
type Network string

const (
	NetworkMainnet    Network = "mainnet"
	NetworkTestnet    Network = "testnet"
	NetworkPreviewnet Network = "previewnet"

	// NetworkSimnet is the local simulated ledger reached over JSON-RPC.
	NetworkSimnet Network = "simnet"
)

// IsHedera reports whether the network is served by Hedera consensus nodes.
func (n Network) IsHedera() bool {
	return n == NetworkMainnet || n == NetworkTestnet || n == NetworkPreviewnet
}

func (n Network) IsSimulated() bool {
	return n == NetworkSimnet
}

func (n Network) IsTestnet() bool {
	return n == NetworkTestnet || n == NetworkPreviewnet || n == NetworkSimnet
}

// Valid reports whether n is one of the known networks.
func (n Network) Valid() bool {
	return n.IsHedera() || n.IsSimulated()
}

func (n Network) String() string {
	return string(n)
}
