// Package simtest starts a simulated ledger in-process and connects a client
// to it over go-ethereum's in-process JSON-RPC transport.
package simtest

import (
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/nftsaga/clients"
	"github.com/vitwit/nftsaga/simnet"
	"github.com/vitwit/nftsaga/types"
)

// OperatorKey is the ED25519 seed of the genesis operator.
var OperatorKey = strings.Repeat("1f", 32)

// OperatorID is the genesis operator account.
var OperatorID = types.AccountID{EntityID: types.EntityID{Num: 2}}

// Bytecode stands in for the compiled NFT creator; every deployed contract
// runs simnet.NFTCreator.
var Bytecode = []byte{0x60, 0x80, 0x60, 0x40, 0x52, 0x34, 0x80, 0x15}

// GenesisBalance funds the operator.
var GenesisBalance = types.NewHbar(10_000)

// Network is a running simulated ledger and a client authenticated as its
// operator.
type Network struct {
	Ledger   *simnet.Ledger
	Operator clients.Operator
	Client   *clients.LedgerClient

	server *rpc.Server
}

// New starts a ledger with a short consensus delay. The client polls fast
// and defaults to a 100 hbar transaction fee ceiling.
func New(opts ...simnet.Option) (*Network, error) {
	operator, err := clients.ParseOperator(OperatorID.String(), OperatorKey)
	if err != nil {
		return nil, err
	}

	ledger := simnet.New(append([]simnet.Option{simnet.WithConsensusDelay(5 * time.Millisecond)}, opts...)...)
	if err := ledger.AddAccount(OperatorID, operator.PublicKey(), GenesisBalance); err != nil {
		return nil, err
	}
	srv, err := simnet.NewServer(ledger)
	if err != nil {
		return nil, err
	}

	backend := clients.NewRPCClientWithConn(types.NetworkSimnet, rpc.DialInProc(srv), operator)
	client, err := clients.NewLedgerClient(backend, operator,
		clients.WithPollInterval(5*time.Millisecond),
		clients.WithReceiptTimeout(5*time.Second),
	)
	if err != nil {
		srv.Stop()
		return nil, err
	}
	if err := client.SetDefaultMaxTransactionFee(types.NewHbar(100)); err != nil {
		client.Close()
		srv.Stop()
		return nil, err
	}

	return &Network{Ledger: ledger, Operator: operator, Client: client, server: srv}, nil
}

// Start is New for tests; the network is closed when t ends.
func Start(t testing.TB, opts ...simnet.Option) *Network {
	t.Helper()
	n, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(n.Close)
	return n
}

func (n *Network) Close() {
	n.Client.Close()
	n.server.Stop()
}
