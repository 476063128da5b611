package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vitwit/nftsaga"
	"github.com/vitwit/nftsaga/clients"
	"github.com/vitwit/nftsaga/config"
	"github.com/vitwit/nftsaga/logger"
	"github.com/vitwit/nftsaga/metrics"
	"github.com/vitwit/nftsaga/simnet"
	"github.com/vitwit/nftsaga/types"
)

// genesisBalance funds the operator of an in-process simulated ledger.
var genesisBalance = types.NewHbar(10_000)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	ConfigFile  string
	Simulate    bool
	Pushgateway string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the five-step NFT saga",
		Long: `Run provisions an account, deploys the contract bytecode, creates the token
type, mints one unit and transfers it to the new account. Each step waits for
consensus before the next one is submitted; a failed step ends the run and
leaves earlier effects on the ledger.

Example:
  nftsaga run --config saga.yaml
  nftsaga run --simulate --log-level debug`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSaga(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigFile, "config", "c", "", "YAML parameter file")
	cmd.Flags().BoolVar(&opts.Simulate, "simulate", false, "run against an in-process simulated ledger")
	cmd.Flags().StringVar(&opts.Pushgateway, "pushgateway", "", "Prometheus Pushgateway URL to push run metrics to")

	return cmd
}

func runSaga(cmd *cobra.Command, opts *RunOptions) error {
	cfg, err := config.Load(config.LoadOptions{EnvFile: opts.EnvFile, ConfigFile: opts.ConfigFile})
	if err != nil {
		return WrapExitError(ExitConfigError, "failed to load configuration", err)
	}

	level := cfg.LogLevel
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	log := logger.NewZapLogger(level)

	registry := prometheus.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(registry)

	var client *clients.LedgerClient
	if opts.Simulate {
		client, err = connectSimulated(cfg.Client, log)
	} else {
		client, err = clients.Connect(cfg.Client)
	}
	if err != nil {
		return WrapExitError(ExitConfigError, "failed to connect", err)
	}
	defer client.Close()

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := nftsaga.New(client, cfg.Params,
		nftsaga.WithLogger(log),
		nftsaga.WithMetrics(recorder),
		nftsaga.WithBytecodeSource(nftsaga.FileBytecode(cfg.BytecodePath)),
		nftsaga.WithProgress(cmd.OutOrStdout()),
	)
	if err != nil {
		return WrapExitError(ExitConfigError, "invalid run parameters", err)
	}

	_, runErr := p.Run(ctx)

	if opts.Pushgateway != "" {
		if err := metrics.Push(opts.Pushgateway, "nftsaga", registry); err != nil {
			log.Warn("metrics push failed", map[string]any{"error": err.Error()})
		}
	}

	if runErr != nil {
		return WrapExitError(ExitFailure, "pipeline failed", runErr)
	}
	return nil
}

// connectSimulated starts a simulated ledger in this process with the
// operator as its funded genesis account.
func connectSimulated(cfg types.ClientConfig, log logger.Logger) (*clients.LedgerClient, error) {
	operator, err := clients.ParseOperator(cfg.OperatorID, cfg.OperatorKey)
	if err != nil {
		return nil, err
	}

	ledger := simnet.New(simnet.WithLogger(log))
	if err := ledger.AddAccount(operator.AccountID, operator.PublicKey(), genesisBalance); err != nil {
		return nil, types.NewConfigError(err, "failed to seed simulated ledger")
	}
	srv, err := simnet.NewServer(ledger)
	if err != nil {
		return nil, types.NewConfigError(err, "failed to start simulated ledger")
	}

	backend := &inProcBackend{
		RPCClient: clients.NewRPCClientWithConn(types.NetworkSimnet, rpc.DialInProc(srv), operator),
		server:    srv,
	}
	client, err := clients.NewLedgerClient(backend, operator,
		clients.WithReceiptTimeout(cfg.ReceiptTimeout),
		clients.WithPollInterval(cfg.PollInterval),
	)
	if err != nil {
		backend.Close()
		return nil, err
	}
	if err := client.SetDefaultMaxTransactionFee(cfg.MaxTransactionFee); err != nil {
		client.Close()
		return nil, err
	}
	if err := client.SetDefaultMaxQueryPayment(cfg.MaxQueryPayment); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// inProcBackend stops the in-process server together with the connection.
type inProcBackend struct {
	*clients.RPCClient
	server *rpc.Server
}

func (b *inProcBackend) Close() {
	b.RPCClient.Close()
	b.server.Stop()
}
