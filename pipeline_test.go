package nftsaga_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vitwit/nftsaga"
	"github.com/vitwit/nftsaga/internal/simtest"
	"github.com/vitwit/nftsaga/keys"
	"github.com/vitwit/nftsaga/logger"
	"github.com/vitwit/nftsaga/metrics"
	"github.com/vitwit/nftsaga/types"
)

func newPipeline(t *testing.T, net *simtest.Network, params nftsaga.Params, opts ...nftsaga.Option) *nftsaga.Pipeline {
	t.Helper()
	opts = append([]nftsaga.Option{nftsaga.WithBytecodeSource(nftsaga.StaticBytecode(simtest.Bytecode))}, opts...)
	p, err := nftsaga.New(net.Client, params, opts...)
	require.NoError(t, err)
	return p
}

func requireStepError(t *testing.T, err error, step nftsaga.Step) *nftsaga.StepError {
	t.Helper()
	var stepErr *nftsaga.StepError
	require.True(t, errors.As(err, &stepErr), "want *StepError, got %v", err)
	assert.Equal(t, step, stepErr.Step)
	return stepErr
}

func TestRunCompletesAllSteps(t *testing.T) {
	net := simtest.Start(t)
	var progress bytes.Buffer
	p := newPipeline(t, net, nftsaga.DefaultParams(), nftsaga.WithProgress(&progress))

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, nftsaga.Steps, result.Completed)
	assert.Len(t, result.Transactions, len(nftsaga.Steps))
	assert.Equal(t, types.NetworkSimnet, result.Network)
	assert.Equal(t, "0.0.1001", result.AccountID.String())
	assert.Equal(t, "0.0.1002", result.ContractID.String())
	assert.Equal(t, "0.0.1003", result.Token.String())
	assert.Equal(t, types.SerialNumber(1), result.Serial)
	assert.Equal(t, types.StatusSuccess, result.TransferStatus)

	assert.Equal(t, "The new account ID is: 0.0.1001\n"+
		"Contract created with ID: 0.0.1002\n"+
		"Token created with ID: 0.0.1003\n"+
		"Minted NFT with serial: 1\n"+
		"Transfer status: SUCCESS\n", progress.String())

	owner, ok := net.Ledger.NftOwner(result.Token.ID, result.Serial)
	require.True(t, ok)
	assert.Equal(t, result.AccountID.EntityID, owner)

	token, ok := net.Ledger.Token(result.Token.ID)
	require.True(t, ok)
	assert.Equal(t, "Fall Collection", token.Name)
	assert.Equal(t, "LEAF", token.Symbol)
	assert.Equal(t, int64(250), token.MaxSupply)
	assert.Equal(t, int64(1), token.Minted)

	account, ok := net.Ledger.Account(result.AccountID)
	require.True(t, ok)
	assert.Equal(t, types.HbarFromTinybar(1000), account.Balance)
	assert.Equal(t, int32(10), account.MaxAutomaticTokenAssociations)
}

func TestRunsAreIndependent(t *testing.T) {
	net := simtest.Start(t)
	p := newPipeline(t, net, nftsaga.DefaultParams())

	first, err := p.Run(context.Background())
	require.NoError(t, err)
	second, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, second.RunID, p.RunID())
	assert.NotEqual(t, first.AccountID, second.AccountID)
	assert.NotEqual(t, first.ContractID, second.ContractID)
	assert.NotEqual(t, first.Token, second.Token)
	assert.Equal(t, types.SerialNumber(1), second.Serial)
}

func TestProvisioningFailureHaltsRun(t *testing.T) {
	t.Run("key generation", func(t *testing.T) {
		net := simtest.Start(t)
		failing := keys.GeneratorFunc(func() (keys.KeyPair, error) {
			return keys.KeyPair{}, errors.New("entropy exhausted")
		})
		p := newPipeline(t, net, nftsaga.DefaultParams(), nftsaga.WithKeyGenerator(failing))

		result, err := p.Run(context.Background())
		requireStepError(t, err, nftsaga.StepProvisionAccount)
		assert.ErrorIs(t, err, types.ErrConfig)
		assert.Empty(t, result.Completed)
		assert.True(t, result.AccountID.IsZero())
	})

	t.Run("payer balance", func(t *testing.T) {
		net := simtest.Start(t)
		params := nftsaga.DefaultParams()
		params.InitialBalance = simtest.GenesisBalance * 2
		p := newPipeline(t, net, params)

		result, err := p.Run(context.Background())
		requireStepError(t, err, nftsaga.StepProvisionAccount)
		require.ErrorIs(t, err, types.ErrFee)
		le, _ := types.AsLedgerError(err)
		assert.Equal(t, types.StatusInsufficientPayerBalance, le.Status)
		assert.Empty(t, result.Completed)

		_, deployed := net.Ledger.Contract(types.ContractID{EntityID: types.EntityID{Num: 1001}})
		assert.False(t, deployed, "no later step may run")
	})
}

func TestDeployFailsWithoutBytecode(t *testing.T) {
	net := simtest.Start(t)
	p := newPipeline(t, net, nftsaga.DefaultParams(),
		nftsaga.WithBytecodeSource(nftsaga.FileBytecode(t.TempDir()+"/missing.bin")))

	result, err := p.Run(context.Background())
	requireStepError(t, err, nftsaga.StepDeployContract)
	assert.ErrorIs(t, err, types.ErrConfig)
	assert.Equal(t, []nftsaga.Step{nftsaga.StepProvisionAccount}, result.Completed)
	assert.False(t, result.AccountID.IsZero(), "earlier effects are reported")
}

func TestBadExpirationStopsBeforeMint(t *testing.T) {
	net := simtest.Start(t)
	params := nftsaga.DefaultParams()
	params.Token.Expiration = 9_000_000
	p := newPipeline(t, net, params)

	result, err := p.Run(context.Background())
	requireStepError(t, err, nftsaga.StepCreateTokenType)
	assert.ErrorIs(t, err, types.ErrValidation)
	assert.Equal(t, []nftsaga.Step{nftsaga.StepProvisionAccount, nftsaga.StepDeployContract}, result.Completed)
	assert.True(t, result.Token.IsZero())
	assert.False(t, result.Serial.Valid())

	_, ok := net.Ledger.Token(types.TokenID{EntityID: types.EntityID{Num: 1003}})
	assert.False(t, ok)
}

func TestTokenCreationFeeNotCovered(t *testing.T) {
	net := simtest.Start(t)
	params := nftsaga.DefaultParams()
	params.PayableAmount = types.NewHbar(1)
	p := newPipeline(t, net, params)

	_, err := p.Run(context.Background())
	requireStepError(t, err, nftsaga.StepCreateTokenType)
	le, ok := types.IsTransactionFailed(err)
	require.True(t, ok)
	assert.Equal(t, types.StatusInsufficientTxFee, le.Status)
}

func TestMintFeeCap(t *testing.T) {
	net := simtest.Start(t)
	params := nftsaga.DefaultParams()
	params.MintMaxTransactionFee = types.NewHbar(1)
	p := newPipeline(t, net, params)

	result, err := p.Run(context.Background())
	requireStepError(t, err, nftsaga.StepMintToken)
	assert.ErrorIs(t, err, types.ErrFee)
	assert.Len(t, result.Completed, 3)
	assert.False(t, result.Token.IsZero())
}

func TestTransferRequiresRecipientSignature(t *testing.T) {
	net := simtest.Start(t)
	p := newPipeline(t, net, nftsaga.DefaultParams())
	ctx := context.Background()

	account, err := p.ProvisionAccount(ctx)
	require.NoError(t, err)
	contract, err := p.DeployContract(ctx)
	require.NoError(t, err)
	token, err := p.CreateTokenType(ctx, contract)
	require.NoError(t, err)
	minted, err := p.MintToken(ctx, contract, token)
	require.NoError(t, err)

	impostor, err := keys.ED25519Generator.Generate()
	require.NoError(t, err)
	wrongKey := *account
	wrongKey.KeyPair = impostor

	_, err = p.TransferToken(ctx, contract, token, minted, &wrongKey)
	requireStepError(t, err, nftsaga.StepTransferToken)
	le, ok := types.IsTransactionFailed(err)
	require.True(t, ok)
	assert.Equal(t, types.StatusInvalidSignature, le.Status)

	owner, _ := net.Ledger.NftOwner(token.Address.ID, minted.Serial)
	assert.Equal(t, contract.ID.EntityID, owner)

	transfer, err := p.TransferToken(ctx, contract, token, minted, account)
	require.NoError(t, err)
	assert.Equal(t, types.StatusSuccess, transfer.Status)
}

func TestTransferWithoutAssociationSlots(t *testing.T) {
	net := simtest.Start(t)
	params := nftsaga.DefaultParams()
	params.MaxAutomaticTokenAssociations = 0
	p := newPipeline(t, net, params)

	result, err := p.Run(context.Background())
	requireStepError(t, err, nftsaga.StepTransferToken)
	le, ok := types.IsTransactionFailed(err)
	require.True(t, ok)
	assert.Equal(t, types.StatusTokenNotAssociatedToAccount, le.Status)

	assert.Len(t, result.Completed, 4)
	assert.Equal(t, types.SerialNumber(1), result.Serial)
	assert.Empty(t, result.TransferStatus)
}

func TestStepsRejectMissingInputs(t *testing.T) {
	net := simtest.Start(t)
	p := newPipeline(t, net, nftsaga.DefaultParams())
	ctx := context.Background()

	_, err := p.CreateTokenType(ctx, nil)
	assert.ErrorIs(t, err, types.ErrValidation)
	_, err = p.MintToken(ctx, &nftsaga.DeployedContract{}, nil)
	assert.ErrorIs(t, err, types.ErrValidation)
	_, err = p.TransferToken(ctx, nil, nil, nil, nil)
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestCancelledRunSubmitsNothing(t *testing.T) {
	net := simtest.Start(t)
	p := newPipeline(t, net, nftsaga.DefaultParams())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := p.Run(ctx)
	requireStepError(t, err, nftsaga.StepProvisionAccount)
	assert.ErrorIs(t, err, types.ErrNetwork)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, result.Completed)

	operator, _ := net.Ledger.Account(simtest.OperatorID)
	assert.Equal(t, simtest.GenesisBalance, operator.Balance)
}

func TestNewValidatesInputs(t *testing.T) {
	_, err := nftsaga.New(nil, nftsaga.DefaultParams())
	assert.ErrorIs(t, err, types.ErrConfig)

	net := simtest.Start(t)
	params := nftsaga.DefaultParams()
	params.DeployGas = 0
	_, err = nftsaga.New(net.Client, params)
	assert.ErrorIs(t, err, types.ErrValidation)

	params = nftsaga.DefaultParams()
	params.Metadata = nil
	_, err = nftsaga.New(net.Client, params)
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestRunRecordsMetricsAndLogs(t *testing.T) {
	net := simtest.Start(t)
	rec := metrics.NewPrometheusRecorder(prometheus.NewRegistry())
	core, logs := observer.New(zapcore.InfoLevel)
	params := nftsaga.DefaultParams()
	params.MaxAutomaticTokenAssociations = 0

	p := newPipeline(t, net, params,
		nftsaga.WithMetrics(rec),
		nftsaga.WithLogger(logger.NewZapLoggerFrom(zap.New(core))),
	)
	_, err := p.Run(context.Background())
	require.Error(t, err)

	for _, step := range nftsaga.Steps[:4] {
		assert.Equal(t, 1.0, testutil.ToFloat64(rec.Counter("step_completed", "simnet", string(step))), step)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.Counter("step_failed", "simnet", string(nftsaga.StepTransferToken))))

	failed := logs.FilterMessage("step failed").All()
	require.Len(t, failed, 1)
	fields := failed[0].ContextMap()
	assert.Equal(t, string(nftsaga.StepTransferToken), fields["step"])
	assert.Equal(t, string(types.StatusTokenNotAssociatedToAccount), fields["status"])
	assert.Equal(t, p.RunID(), fields["run_id"])

	for _, entry := range logs.All() {
		for k := range entry.ContextMap() {
			assert.NotContains(t, k, "private", "key material must never be logged")
		}
	}
}
