package nftsaga

import (
	"io"

	"github.com/vitwit/nftsaga/clients"
	"github.com/vitwit/nftsaga/keys"
	"github.com/vitwit/nftsaga/logger"
	"github.com/vitwit/nftsaga/metrics"
)

type Option func(*Pipeline)

func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(p *Pipeline) {
		p.metrics = r
	}
}

// WithKeyGenerator replaces the ED25519 generator used for new accounts.
func WithKeyGenerator(g keys.Generator) Option {
	return func(p *Pipeline) {
		p.keygen = g
	}
}

// WithBytecodeSource replaces FileBytecode(DefaultBytecodePath).
func WithBytecodeSource(s BytecodeSource) Option {
	return func(p *Pipeline) {
		p.bytecode = s
	}
}

// WithExecutor replaces the executor built from the client, logger and
// metrics.
func WithExecutor(e *clients.Executor) Option {
	return func(p *Pipeline) {
		p.executor = e
	}
}

// WithProgress sets where the human-readable progress lines go.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) {
		p.progress = w
	}
}
