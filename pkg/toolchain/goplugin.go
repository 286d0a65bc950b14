package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/aretw0/actgraph/internal/logging"
	"github.com/aretw0/actgraph/pkg/codegen"
)

const unitGoMod = "module actgraph.local/unit\n\ngo 1.21\n"

// GoPlugin builds units with the go command as plugins and opens them in-process.
type GoPlugin struct {
	goBin       string
	flags       []string
	env         []string
	keep        bool
	scratchRoot string
	cache       Cache
	locker      Locker
	lockTTL     time.Duration
	metrics     *Metrics
	logger      *slog.Logger

	open func(path string) (symbols, error)
	memo *memo
}

// memo holds every plugin opened by the process. The runtime refuses to load
// the same plugin twice and never unloads one.
type memo struct {
	sync.Mutex
	m map[string]memoEntry
}

type memoEntry struct {
	path string
	syms symbols
}

var loaded = &memo{m: make(map[string]memoEntry)}

// Option configures a GoPlugin.
type Option func(*GoPlugin)

// WithGo sets the go command. Defaults to "go" on PATH.
func WithGo(bin string) Option {
	return func(t *GoPlugin) { t.goBin = bin }
}

// WithFlags appends extra `go build` flags.
func WithFlags(flags ...string) Option {
	return func(t *GoPlugin) { t.flags = append(t.flags, flags...) }
}

// WithEnv appends KEY=VALUE pairs to the toolchain environment.
func WithEnv(kv ...string) Option {
	return func(t *GoPlugin) { t.env = append(t.env, kv...) }
}

// WithKeepScratch leaves scratch directories in place for debugging.
func WithKeepScratch(keep bool) Option {
	return func(t *GoPlugin) { t.keep = keep }
}

// WithScratchRoot sets the parent of scratch directories. Defaults to os.TempDir.
func WithScratchRoot(dir string) Option {
	return func(t *GoPlugin) { t.scratchRoot = dir }
}

// WithCache stores built artifacts so identical sources skip the go command.
func WithCache(c Cache) Option {
	return func(t *GoPlugin) { t.cache = c }
}

// WithLocker serializes builds of one digest across processes sharing a cache.
// A zero ttl keeps the default of two minutes.
func WithLocker(l Locker, ttl time.Duration) Option {
	return func(t *GoPlugin) {
		t.locker = l
		if ttl > 0 {
			t.lockTTL = ttl
		}
	}
}

// WithMetrics records build outcomes and durations.
func WithMetrics(m *Metrics) Option {
	return func(t *GoPlugin) { t.metrics = m }
}

// WithLogger sets the logger. Defaults to the logger carried by the build context.
func WithLogger(l *slog.Logger) Option {
	return func(t *GoPlugin) { t.logger = l }
}

// New creates a GoPlugin toolchain.
func New(opts ...Option) *GoPlugin {
	t := &GoPlugin{
		goBin:   "go",
		lockTTL: 2 * time.Minute,
		open:    openPlugin,
		memo:    loaded,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Build compiles unit, unless an identical one is already loaded or cached, and
// loads it.
func (t *GoPlugin) Build(ctx context.Context, unit *codegen.Unit) (*Module, error) {
	if !unit.Module || unit.Package != "main" {
		return nil, fmt.Errorf("%w: package %s", ErrNotModule, unit.Package)
	}
	digest := Digest(unit.Source, t.flags...)
	logger := t.logger
	if logger == nil {
		logger = logging.FromContext(ctx)
	}
	logger = logger.With("digest", digest[:12])

	if m, ok, err := t.loadMemoized(digest, unit); ok {
		t.metrics.record(OutcomeLoaded)
		logger.Debug("module already loaded")
		return m, err
	}

	if t.locker != nil {
		unlock, err := t.locker.Lock(ctx, digest, t.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("lock build: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("failed to release build lock", "error", err)
			}
		}()
	}

	dir, err := os.MkdirTemp(t.scratchRoot, "actgraph-")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	if t.keep {
		logger.Info("keeping scratch directory", "dir", dir)
	} else {
		defer os.RemoveAll(dir)
	}
	artifact := filepath.Join(dir, "unit.so")

	data, hit := t.cached(ctx, logger, digest)
	if hit {
		if err := os.WriteFile(artifact, data, 0o755); err != nil {
			return nil, fmt.Errorf("write cached artifact: %w", err)
		}
		t.metrics.record(OutcomeCached)
		logger.Debug("using cached artifact", "bytes", len(data))
	} else {
		if err := t.compile(ctx, logger, dir, unit.Source, artifact); err != nil {
			t.metrics.record(OutcomeFailed)
			return nil, err
		}
		t.metrics.record(OutcomeCompiled)
		t.store(ctx, logger, digest, artifact)
	}

	return t.load(digest, artifact, unit)
}

func (t *GoPlugin) loadMemoized(digest string, unit *codegen.Unit) (*Module, bool, error) {
	t.memo.Lock()
	e, ok := t.memo.m[digest]
	t.memo.Unlock()
	if !ok {
		return nil, false, nil
	}
	m, err := newModule(e.syms, e.path, digest, unit)
	return m, true, err
}

func (t *GoPlugin) load(digest, path string, unit *codegen.Unit) (*Module, error) {
	t.memo.Lock()
	defer t.memo.Unlock()
	if e, ok := t.memo.m[digest]; ok {
		return newModule(e.syms, e.path, digest, unit)
	}
	syms, err := t.open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	t.memo.m[digest] = memoEntry{path: path, syms: syms}
	return newModule(syms, path, digest, unit)
}

func (t *GoPlugin) cached(ctx context.Context, logger *slog.Logger, digest string) ([]byte, bool) {
	if t.cache == nil {
		return nil, false
	}
	data, ok, err := t.cache.Get(ctx, digest)
	if err != nil {
		logger.Warn("artifact cache lookup failed", "error", err)
		return nil, false
	}
	return data, ok
}

func (t *GoPlugin) store(ctx context.Context, logger *slog.Logger, digest, artifact string) {
	if t.cache == nil {
		return
	}
	data, err := os.ReadFile(artifact)
	if err != nil {
		logger.Warn("failed to read artifact for caching", "error", err)
		return
	}
	if err := t.cache.Put(ctx, digest, data); err != nil {
		logger.Warn("failed to cache artifact", "error", err)
	}
}

func (t *GoPlugin) compile(ctx context.Context, logger *slog.Logger, dir string, source []byte, out string) error {
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte(unitGoMod), 0o644); err != nil {
		return fmt.Errorf("write go.mod: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "main.go"), source, 0o644); err != nil {
		return fmt.Errorf("write main.go: %w", err)
	}

	args := []string{"build", "-buildmode=plugin"}
	args = append(args, t.flags...)
	args = append(args, "-o", out, "main.go")

	cmd := exec.CommandContext(ctx, t.goBin, args...)
	cmd.Dir = dir
	cmd.Env = append(cmd.Environ(), t.env...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	logger.Debug("invoking go toolchain", "args", args, "dir", dir)
	start := time.Now()
	err := cmd.Run()
	t.metrics.observe(time.Since(start).Seconds())
	if err != nil {
		return newToolchainError(ctx, append([]string{t.goBin}, args...), output.String(), err)
	}
	return nil
}

func newToolchainError(ctx context.Context, args []string, stderr string, err error) *ToolchainError {
	te := &ToolchainError{Args: args, Stderr: stderr, Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		te.ExitCode = exitErr.ExitCode()
		if ws, ok := exitErr.Sys().(interface {
			Signaled() bool
			Signal() syscall.Signal
		}); ok && ws.Signaled() {
			te.Signal = ws.Signal().String()
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		te.Err = fmt.Errorf("%w: %w", ctxErr, err)
	}
	return te
}
