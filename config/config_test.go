package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/nftsaga"
	"github.com/vitwit/nftsaga/types"
)

var operatorKey = strings.Repeat("1f", 32)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func baseEnv() map[string]string {
	return map[string]string{
		EnvAccountID:  "0.0.2",
		EnvPrivateKey: operatorKey,
	}
}

func TestBuildDefaults(t *testing.T) {
	cfg, err := build(DefaultFile(), env(baseEnv()))
	require.NoError(t, err)

	assert.Equal(t, types.NetworkTestnet, cfg.Client.Network)
	assert.Equal(t, types.NewHbar(100), cfg.Client.MaxTransactionFee)
	assert.Equal(t, types.NewHbar(50), cfg.Client.MaxQueryPayment)
	assert.Equal(t, 2*time.Minute, cfg.Client.ReceiptTimeout)
	assert.Equal(t, nftsaga.DefaultBytecodePath, cfg.BytecodePath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, nftsaga.DefaultParams(), cfg.Params)
}

func TestBuildEnvErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]string)
	}{
		{"missing account", func(e map[string]string) { delete(e, EnvAccountID) }},
		{"missing key", func(e map[string]string) { delete(e, EnvPrivateKey) }},
		{"unknown network", func(e map[string]string) { e[EnvNetwork] = "ropsten" }},
		{"simnet without url", func(e map[string]string) { e[EnvNetwork] = "simnet" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vars := baseEnv()
			tt.mutate(vars)
			_, err := build(DefaultFile(), env(vars))
			assert.ErrorIs(t, err, types.ErrConfig)
		})
	}
}

func TestBuildSimnet(t *testing.T) {
	vars := baseEnv()
	vars[EnvNetwork] = "simnet"
	vars[EnvRPCURL] = "http://127.0.0.1:7546"

	cfg, err := build(DefaultFile(), env(vars))
	require.NoError(t, err)
	assert.Equal(t, types.NetworkSimnet, cfg.Client.Network)
	assert.Equal(t, "http://127.0.0.1:7546", cfg.Client.RPCURL)
}

func TestBuildFileErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*File)
	}{
		{"bad amount", func(f *File) { f.Token.PayableAmount = "fifty" }},
		{"negative amount", func(f *File) { f.Account.InitialBalance = "-1" }},
		{"zero fee ceiling", func(f *File) { f.Network.MaxTransactionFee = "0" }},
		{"no metadata", func(f *File) { f.Mint.Metadata = nil }},
		{"zero gas", func(f *File) { f.Contract.Gas = 0 }},
		{"bad log level", func(f *File) { f.LogLevel = "trace" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := DefaultFile()
			tt.mutate(&file)
			_, err := build(file, env(baseEnv()))
			assert.ErrorIs(t, err, types.ErrConfig)
		})
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saga.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
network:
  maxTransactionFee: 20 hbar
  pollInterval: 10ms
token:
  name: Winter Collection
  expiration: 7500000
mint:
  metadata:
    - ipfs://a
    - ipfs://b
logLevel: debug
`), 0o600))

	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, nil, 0o600))

	t.Setenv(EnvAccountID, "0.0.2")
	t.Setenv(EnvPrivateKey, operatorKey)
	t.Setenv(EnvNetwork, "previewnet")

	cfg, err := Load(LoadOptions{EnvFile: envPath, ConfigFile: path})
	require.NoError(t, err)

	assert.Equal(t, types.NetworkPreviewnet, cfg.Client.Network)
	assert.Equal(t, types.NewHbar(20), cfg.Client.MaxTransactionFee)
	assert.Equal(t, types.NewHbar(50), cfg.Client.MaxQueryPayment, "unset keys keep their defaults")
	assert.Equal(t, 10*time.Millisecond, cfg.Client.PollInterval)
	assert.Equal(t, "Winter Collection", cfg.Params.Token.Name)
	assert.Equal(t, "LEAF", cfg.Params.Token.Symbol)
	assert.Equal(t, int64(7_500_000), cfg.Params.Token.Expiration)
	assert.Equal(t, [][]byte{[]byte("ipfs://a"), []byte("ipfs://b")}, cfg.Params.Metadata)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, nil, 0o600))

	_, err := Load(LoadOptions{EnvFile: envPath, ConfigFile: filepath.Join(dir, "missing.yaml")})
	assert.ErrorIs(t, err, types.ErrConfig)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("token: [unclosed"), 0o600))
	_, err = Load(LoadOptions{EnvFile: envPath, ConfigFile: bad})
	assert.ErrorIs(t, err, types.ErrConfig)
}

func TestLoadEnv(t *testing.T) {
	const name = "NFTSAGA_TEST_DOTENV"
	t.Cleanup(func() { os.Unsetenv(name) })

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte(name+"=from-file\n"), 0o600))

	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "from-file", os.Getenv(name))

	assert.ErrorIs(t, LoadEnv(filepath.Join(t.TempDir(), "absent.env")), types.ErrConfig)
}

func TestLoadEnvDoesNotOverride(t *testing.T) {
	t.Setenv(EnvNetwork, "mainnet")
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte(EnvNetwork+"=testnet\n"), 0o600))

	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "mainnet", os.Getenv(EnvNetwork))
}
