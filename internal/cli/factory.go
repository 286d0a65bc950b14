package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/actgraph"
	"github.com/aretw0/actgraph/internal/logging"
	"github.com/aretw0/actgraph/pkg/adapters/redis"
	"github.com/aretw0/actgraph/pkg/toolchain"
)

// Options carries the global command line settings.
type Options struct {
	Debug      bool
	ConfigPath string
	Go         string
	Keep       bool
	RedisAddr  string
	RedisDB    int
}

// Stack is a configured compiler and the resources it holds.
type Stack struct {
	Compiler *actgraph.Compiler
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Metrics  *toolchain.Metrics
	cache    *redis.Cache
}

// NewStack builds a compiler following the CLI conventions: the toolchain
// config file first, then flags, then an optional shared Redis artifact cache.
func NewStack(opts Options) (*Stack, error) {
	logger := createLogger(opts.Debug)

	cfg, err := toolchain.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	metrics := toolchain.NewMetrics(reg)
	tcOpts := []toolchain.Option{
		toolchain.WithConfig(cfg),
		toolchain.WithLogger(logger),
		toolchain.WithMetrics(metrics),
	}
	if opts.Go != "" {
		tcOpts = append(tcOpts, toolchain.WithGo(opts.Go))
	}
	if opts.Keep {
		tcOpts = append(tcOpts, toolchain.WithKeepScratch(true))
	}

	s := &Stack{Logger: logger, Registry: reg, Metrics: metrics}
	if opts.RedisAddr != "" {
		s.cache = redis.New(opts.RedisAddr, "", opts.RedisDB)
		locker := redis.NewLocker(s.cache.Client(), "actgraph:")
		tcOpts = append(tcOpts,
			toolchain.WithCache(s.cache),
			toolchain.WithLocker(locker, 0),
		)
		logger.Debug("using redis artifact cache", "addr", opts.RedisAddr, "db", opts.RedisDB)
	}

	s.Compiler = actgraph.New(
		actgraph.WithLogger(logger),
		actgraph.WithToolchain(toolchain.New(tcOpts...)),
	)
	return s, nil
}

// Close releases the Redis connection, if any.
func (s *Stack) Close() error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Close(); err != nil {
		return fmt.Errorf("close redis cache: %w", err)
	}
	return nil
}

// createLogger configures the application logger.
// In debug mode, it writes to Stderr so program output on Stdout stays clean.
func createLogger(debug bool) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug)
	}
	return logging.NewNop()
}

// ExitCode maps an error to a process exit status.
func ExitCode(err error) int {
	var te *toolchain.ToolchainError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &te) && te.ExitCode > 0:
		return te.ExitCode
	}
	return 1
}
