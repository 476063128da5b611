package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vitwit/nftsaga/clients"
	"github.com/vitwit/nftsaga/config"
	"github.com/vitwit/nftsaga/logger"
	"github.com/vitwit/nftsaga/simnet"
	"github.com/vitwit/nftsaga/types"
)

// SimnetOptions holds flags for the simnet command.
type SimnetOptions struct {
	*RootOptions
	Listen         string
	Balance        string
	ConsensusDelay time.Duration
}

// NewSimnetCommand creates the simnet command.
func NewSimnetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimnetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simnet",
		Short: "Serve a simulated ledger over JSON-RPC",
		Long: `Simnet serves an in-memory ledger over HTTP JSON-RPC. The operator from
HEDERA_ACCOUNT_ID and HEDERA_PRIVATE_KEY becomes the funded genesis account.
Point runs at it with HEDERA_NETWORK=simnet and LEDGER_RPC_URL.

Example:
  nftsaga simnet --listen :7546`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveSimnet(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", ":7546", "address to serve JSON-RPC on")
	cmd.Flags().StringVar(&opts.Balance, "balance", genesisBalance.String(), "genesis balance of the operator")
	cmd.Flags().DurationVar(&opts.ConsensusDelay, "consensus-delay", 50*time.Millisecond, "time before a receipt leaves UNKNOWN")

	return cmd
}

func serveSimnet(cmd *cobra.Command, opts *SimnetOptions) error {
	if err := config.LoadEnv(opts.EnvFile); err != nil {
		return WrapExitError(ExitConfigError, "failed to load environment", err)
	}
	operator, err := clients.ParseOperator(os.Getenv(config.EnvAccountID), os.Getenv(config.EnvPrivateKey))
	if err != nil {
		return WrapExitError(ExitConfigError, "invalid operator", err)
	}
	balance, err := types.ParseHbar(opts.Balance)
	if err != nil {
		return WrapExitError(ExitConfigError, "invalid --balance", err)
	}

	log := logger.NewZapLogger(opts.LogLevel)
	ledger := simnet.New(simnet.WithLogger(log), simnet.WithConsensusDelay(opts.ConsensusDelay))
	if err := ledger.AddAccount(operator.AccountID, operator.PublicKey(), balance); err != nil {
		return WrapExitError(ExitConfigError, "failed to seed ledger", err)
	}
	srv, err := simnet.NewServer(ledger)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to start ledger", err)
	}
	defer srv.Stop()

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpSrv := &http.Server{
		Addr:              opts.Listen,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Simulated ledger listening on %s (operator %s, balance %s)\n", opts.Listen, operator.AccountID, balance)
	log.Info("simnet started", map[string]any{
		"listen":   opts.Listen,
		"operator": operator.AccountID.String(),
	})

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "ledger server stopped", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitFailure, "failed to shut down ledger server", err)
	}
	log.Info("simnet stopped", nil)
	return nil
}
