package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/nftsaga/config"
	"github.com/vitwit/nftsaga/types"
)

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"exit error", WrapExitError(ExitConfigError, "bad", nil), ExitConfigError},
		{"wrapped exit error", fmt.Errorf("outer: %w", WrapExitError(ExitFailure, "step", nil)), ExitFailure},
		{"config error", types.NewConfigError(nil, "missing"), ExitConfigError},
		{"other", errors.New("boom"), ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestExitErrorMessage(t *testing.T) {
	err := WrapExitError(ExitFailure, "pipeline failed", errors.New("MintToken: refused"))
	assert.Equal(t, "pipeline failed: MintToken: refused", err.Error())
	assert.Equal(t, "bare", (&ExitError{Message: "bare"}).Error())
}

func TestRootRejectsUnknownLogLevel(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"run", "--log-level", "trace"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

// sagaFiles writes an empty env file, a bytecode file and a parameter file
// tuned for a fast simulated run.
func sagaFiles(t *testing.T, bytecodePath string) (envPath, configPath string) {
	t.Helper()
	dir := t.TempDir()

	envPath = filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, nil, 0o600))

	if bytecodePath == "" {
		bytecodePath = filepath.Join(dir, "NFTCreator_sol_NFTCreator.bin")
		require.NoError(t, os.WriteFile(bytecodePath, []byte("608060405234801561001057600080fd5b50\n"), 0o600))
	}

	configPath = filepath.Join(dir, "saga.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(fmt.Sprintf(`
network:
  pollInterval: 10ms
  receiptTimeout: 10s
contract:
  bytecodePath: %s
logLevel: error
`, bytecodePath)), 0o600))
	return envPath, configPath
}

func setOperatorEnv(t *testing.T) {
	t.Setenv(config.EnvAccountID, "0.0.2")
	t.Setenv(config.EnvPrivateKey, strings.Repeat("1f", 32))
	t.Setenv(config.EnvNetwork, "testnet")
	t.Setenv(config.EnvRPCURL, "")
}

func TestRunSimulated(t *testing.T) {
	setOperatorEnv(t)
	envPath, configPath := sagaFiles(t, "")

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "--simulate", "--config", configPath, "--env-file", envPath})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "The new account ID is: 0.0.1001")
	assert.Contains(t, out.String(), "Minted NFT with serial: 1")
	assert.Contains(t, out.String(), "Transfer status: SUCCESS")
	assert.NotContains(t, out.String(), strings.Repeat("1f", 32))
}

func TestRunMissingCredentials(t *testing.T) {
	setOperatorEnv(t)
	t.Setenv(config.EnvPrivateKey, "")
	envPath, configPath := sagaFiles(t, "")

	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "--simulate", "--config", configPath, "--env-file", envPath})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, GetExitCode(err))
	assert.Contains(t, err.Error(), config.EnvPrivateKey)
}

func TestRunStepFailureExitsWithFailure(t *testing.T) {
	setOperatorEnv(t)
	envPath, configPath := sagaFiles(t, filepath.Join(t.TempDir(), "absent.bin"))

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "--simulate", "--config", configPath, "--env-file", envPath})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "DeployContract")
	assert.Contains(t, out.String(), "The new account ID is: 0.0.1001", "completed steps still report progress")
}

func TestSimnetRequiresOperator(t *testing.T) {
	t.Setenv(config.EnvAccountID, "")
	t.Setenv(config.EnvPrivateKey, "")
	envPath, _ := sagaFiles(t, "")

	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"simnet", "--env-file", envPath, "--listen", "127.0.0.1:0"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, GetExitCode(err))
}
