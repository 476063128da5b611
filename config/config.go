// Package config assembles a run from the environment and an optional YAML
// parameter file. Operator credentials only ever come from the environment.
package config

import (
	"errors"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/vitwit/nftsaga"
	"github.com/vitwit/nftsaga/contracts"
	"github.com/vitwit/nftsaga/types"
	"github.com/vitwit/nftsaga/utils"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvAccountID  = "HEDERA_ACCOUNT_ID"
	EnvPrivateKey = "HEDERA_PRIVATE_KEY"
	EnvNetwork    = "HEDERA_NETWORK"
	EnvRPCURL     = "LEDGER_RPC_URL"
)

const defaultEnvFile = ".env"

// Config is everything a run needs.
type Config struct {
	Client       types.ClientConfig
	Params       nftsaga.Params
	BytecodePath string
	LogLevel     string
}

// LoadOptions points Load at its inputs. Empty fields use the defaults: a
// .env in the working directory if present, and no parameter file.
type LoadOptions struct {
	EnvFile    string
	ConfigFile string
}

// File is the YAML parameter file. Amounts accept "100", "0.5 hbar" or
// "1000 tinybar".
type File struct {
	Network  NetworkSection  `yaml:"network"`
	Account  AccountSection  `yaml:"account"`
	Contract ContractSection `yaml:"contract"`
	Token    TokenSection    `yaml:"token"`
	Mint     MintSection     `yaml:"mint"`
	Transfer TransferSection `yaml:"transfer"`
	LogLevel string          `yaml:"logLevel" validate:"oneof=debug info warn error"`
}

type NetworkSection struct {
	MaxTransactionFee string        `yaml:"maxTransactionFee" validate:"required"`
	MaxQueryPayment   string        `yaml:"maxQueryPayment" validate:"required"`
	ReceiptTimeout    time.Duration `yaml:"receiptTimeout" validate:"gt=0"`
	PollInterval      time.Duration `yaml:"pollInterval" validate:"gt=0"`
}

type AccountSection struct {
	InitialBalance                string `yaml:"initialBalance" validate:"required"`
	MaxAutomaticTokenAssociations int32  `yaml:"maxAutomaticTokenAssociations" validate:"gte=0,lte=5000"`
}

type ContractSection struct {
	BytecodePath string `yaml:"bytecodePath" validate:"required"`
	Gas          uint64 `yaml:"gas" validate:"gt=0"`
}

// TokenSection leaves expiration unchecked here; createNft rejects it when
// the token step runs.
type TokenSection struct {
	Name          string `yaml:"name" validate:"required,max=100"`
	Symbol        string `yaml:"symbol" validate:"required,max=100"`
	Memo          string `yaml:"memo" validate:"max=100"`
	MaxSupply     int64  `yaml:"maxSupply" validate:"gt=0"`
	Expiration    int64  `yaml:"expiration"`
	Gas           uint64 `yaml:"gas" validate:"gt=0"`
	PayableAmount string `yaml:"payableAmount" validate:"required"`
}

type MintSection struct {
	Gas               uint64   `yaml:"gas" validate:"gt=0"`
	MaxTransactionFee string   `yaml:"maxTransactionFee" validate:"required"`
	Metadata          []string `yaml:"metadata" validate:"required,min=1,dive,required,max=100"`
}

type TransferSection struct {
	Gas uint64 `yaml:"gas" validate:"gt=0"`
}

// DefaultFile returns the parameter file matching nftsaga.DefaultParams and
// the reference client ceilings.
func DefaultFile() File {
	p := nftsaga.DefaultParams()
	metadata := make([]string, 0, len(p.Metadata))
	for _, m := range p.Metadata {
		metadata = append(metadata, string(m))
	}

	return File{
		Network: NetworkSection{
			MaxTransactionFee: types.NewHbar(100).String(),
			MaxQueryPayment:   types.NewHbar(50).String(),
			ReceiptTimeout:    2 * time.Minute,
			PollInterval:      500 * time.Millisecond,
		},
		Account: AccountSection{
			InitialBalance:                "1000 tinybar",
			MaxAutomaticTokenAssociations: p.MaxAutomaticTokenAssociations,
		},
		Contract: ContractSection{
			BytecodePath: nftsaga.DefaultBytecodePath,
			Gas:          p.DeployGas,
		},
		Token: TokenSection{
			Name:          p.Token.Name,
			Symbol:        p.Token.Symbol,
			Memo:          p.Token.Memo,
			MaxSupply:     p.Token.MaxSupply,
			Expiration:    p.Token.Expiration,
			Gas:           p.CreateTokenGas,
			PayableAmount: p.PayableAmount.String(),
		},
		Mint: MintSection{
			Gas:               p.MintGas,
			MaxTransactionFee: p.MintMaxTransactionFee.String(),
			Metadata:          metadata,
		},
		Transfer: TransferSection{Gas: p.TransferGas},
		LogLevel: "info",
	}
}

// Load reads the env file, the parameter file and the process environment.
// Every problem is a ConfigError and nothing touches the network.
func Load(opts LoadOptions) (*Config, error) {
	if err := LoadEnv(opts.EnvFile); err != nil {
		return nil, err
	}

	file := DefaultFile()
	if opts.ConfigFile != "" {
		if err := readFile(opts.ConfigFile, &file); err != nil {
			return nil, err
		}
	}
	return build(file, envLookup)
}

// LoadEnv copies a dotenv file into the process environment without
// overriding variables already set. A missing default file is ignored.
func LoadEnv(path string) error {
	if path == "" {
		err := godotenv.Load(defaultEnvFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return types.NewConfigError(err, "failed to load %s", defaultEnvFile)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return types.NewConfigError(err, "failed to load env file %s", path)
	}
	return nil
}

func readFile(path string, file *File) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.NewConfigError(err, "failed to read config file %s", path)
	}
	if err := yaml.Unmarshal(data, file); err != nil {
		return types.NewConfigError(err, "failed to parse config file %s", path)
	}
	return nil
}

type amountField struct {
	name  string
	value string
	dst   *types.Hbar
}

func envLookup(key string) string {
	return os.Getenv(key)
}

func build(file File, getenv func(string) string) (*Config, error) {
	if err := utils.ValidateStruct(file); err != nil {
		return nil, types.NewConfigError(err, "invalid configuration")
	}

	client := types.ClientConfig{
		Network:        types.Network(getenv(EnvNetwork)),
		RPCURL:         getenv(EnvRPCURL),
		OperatorID:     getenv(EnvAccountID),
		OperatorKey:    getenv(EnvPrivateKey),
		ReceiptTimeout: file.Network.ReceiptTimeout,
		PollInterval:   file.Network.PollInterval,
	}
	if client.OperatorID == "" {
		return nil, types.NewConfigError(nil, "%s is required", EnvAccountID)
	}
	if client.OperatorKey == "" {
		return nil, types.NewConfigError(nil, "%s is required", EnvPrivateKey)
	}
	if client.Network == "" {
		client.Network = types.NetworkTestnet
	}
	if err := utils.ValidateVar(EnvNetwork, string(client.Network), "network"); err != nil {
		return nil, types.NewConfigError(err, "unsupported network %q", client.Network)
	}
	if client.Network.IsSimulated() && client.RPCURL == "" {
		return nil, types.NewConfigError(nil, "%s is required for network %s", EnvRPCURL, client.Network)
	}

	params := nftsaga.Params{
		MaxAutomaticTokenAssociations: file.Account.MaxAutomaticTokenAssociations,
		DeployGas:                     file.Contract.Gas,
		Token: contracts.CreateNftParams{
			Name:       file.Token.Name,
			Symbol:     file.Token.Symbol,
			Memo:       file.Token.Memo,
			MaxSupply:  file.Token.MaxSupply,
			Expiration: file.Token.Expiration,
		},
		CreateTokenGas: file.Token.Gas,
		MintGas:        file.Mint.Gas,
		TransferGas:    file.Transfer.Gas,
	}

	amounts := []amountField{
		{"network.maxTransactionFee", file.Network.MaxTransactionFee, &client.MaxTransactionFee},
		{"network.maxQueryPayment", file.Network.MaxQueryPayment, &client.MaxQueryPayment},
		{"account.initialBalance", file.Account.InitialBalance, &params.InitialBalance},
		{"token.payableAmount", file.Token.PayableAmount, &params.PayableAmount},
		{"mint.maxTransactionFee", file.Mint.MaxTransactionFee, &params.MintMaxTransactionFee},
	}
	for _, a := range amounts {
		amount, err := types.ParseHbar(a.value)
		if err != nil {
			return nil, types.NewConfigError(err, "invalid amount for %s", a.name)
		}
		*a.dst = amount
		if amount < 0 {
			return nil, types.NewConfigError(nil, "%s cannot be negative", a.name)
		}
	}
	if client.MaxTransactionFee == 0 || client.MaxQueryPayment == 0 {
		return nil, types.NewConfigError(nil, "network fee ceilings must be positive")
	}

	for _, m := range file.Mint.Metadata {
		params.Metadata = append(params.Metadata, []byte(m))
	}

	return &Config{
		Client:       client,
		Params:       params,
		BytecodePath: file.Contract.BytecodePath,
		LogLevel:     file.LogLevel,
	}, nil
}
