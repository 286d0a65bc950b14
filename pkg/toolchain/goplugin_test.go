package toolchain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/actgraph/internal/logging"
	"github.com/aretw0/actgraph/pkg/codegen"
)

// fakeGo writes a shell script standing in for the go command. It records each
// invocation in $FAKE_GO_LOG and writes a placeholder artifact to the -o path.
func fakeGo(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	path := filepath.Join(t.TempDir(), "go")
	script := `#!/bin/sh
echo "$@" >> "$FAKE_GO_LOG"
out=""
while [ $# -gt 0 ]; do
	if [ "$1" = "-o" ]; then out="$2"; fi
	shift
done
` + body + `
printf artifact > "$out"
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

type harness struct {
	tc      *GoPlugin
	scratch string
	log     string
	metrics *Metrics
	opened  []string
}

func newHarness(t *testing.T, goBin string, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		scratch: t.TempDir(),
		log:     filepath.Join(t.TempDir(), "invocations"),
		metrics: NewMetrics(prometheus.NewRegistry()),
	}
	opts = append([]Option{
		WithGo(goBin),
		WithScratchRoot(h.scratch),
		WithEnv("FAKE_GO_LOG=" + h.log),
		WithMetrics(h.metrics),
		WithLogger(logging.NewNop()),
	}, opts...)
	h.tc = New(opts...)
	h.tc.memo = &memo{m: make(map[string]memoEntry)}
	h.tc.open = func(path string) (symbols, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		h.opened = append(h.opened, string(data))
		return newFakeSymbols(), nil
	}
	return h
}

func (h *harness) invocations(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(h.log)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func (h *harness) outcome(name string) float64 {
	return testutil.ToFloat64(h.metrics.Builds.WithLabelValues(name))
}

func unitWithSource(src string) *codegen.Unit {
	u := fakeUnit()
	u.Source = []byte(src)
	return u
}

func TestGoPlugin_BuildAndMemoize(t *testing.T) {
	h := newHarness(t, fakeGo(t, ""), WithFlags("-trimpath"))
	ctx := context.Background()

	m, err := h.tc.Build(ctx, unitWithSource("package main\n"))
	require.NoError(t, err)
	assert.Equal(t, Digest([]byte("package main\n"), "-trimpath"), m.Digest)
	assert.Equal(t, []string{"artifact"}, h.opened)

	calls := h.invocations(t)
	require.Len(t, calls, 1)
	assert.True(t, strings.HasPrefix(calls[0], "build -buildmode=plugin -trimpath -o "), calls[0])
	assert.True(t, strings.HasSuffix(calls[0], " main.go"), calls[0])

	entries, err := os.ReadDir(h.scratch)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch directory is removed")

	_, err = h.tc.Build(ctx, unitWithSource("package main\n"))
	require.NoError(t, err)
	assert.Len(t, h.invocations(t), 1, "identical source is not rebuilt")
	assert.Len(t, h.opened, 1, "a loaded plugin is reused")
	assert.Equal(t, 1.0, h.outcome(OutcomeCompiled))
	assert.Equal(t, 1.0, h.outcome(OutcomeLoaded))
}

func TestGoPlugin_CacheSkipsTheToolchain(t *testing.T) {
	goBin := fakeGo(t, "")
	cache := NewMemoryCache()

	first := newHarness(t, goBin, WithCache(cache))
	_, err := first.tc.Build(context.Background(), unitWithSource("package main // a\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())

	// A second process shares the cache but has loaded nothing yet.
	second := newHarness(t, goBin, WithCache(cache))
	_, err = second.tc.Build(context.Background(), unitWithSource("package main // a\n"))
	require.NoError(t, err)
	assert.Empty(t, second.invocations(t))
	assert.Equal(t, []string{"artifact"}, second.opened)
	assert.Equal(t, 1.0, second.outcome(OutcomeCached))
}

func TestGoPlugin_ToolchainFailure(t *testing.T) {
	h := newHarness(t, fakeGo(t, `echo "main.go:1: syntax error" >&2; exit 3`))

	_, err := h.tc.Build(context.Background(), unitWithSource("package main\nfunc {"))
	var te *ToolchainError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 3, te.ExitCode)
	assert.Empty(t, te.Signal)
	assert.Contains(t, te.Stderr, "syntax error")
	assert.Contains(t, te.Error(), "exit status 3")
	assert.Equal(t, "build", te.Args[1])
	assert.Equal(t, 1.0, h.outcome(OutcomeFailed))

	entries, err := os.ReadDir(h.scratch)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch directory is removed on failure")
}

func TestGoPlugin_KeepScratch(t *testing.T) {
	h := newHarness(t, fakeGo(t, ""), WithKeepScratch(true))
	_, err := h.tc.Build(context.Background(), unitWithSource("package main // keep\n"))
	require.NoError(t, err)

	entries, err := os.ReadDir(h.scratch)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	dir := filepath.Join(h.scratch, entries[0].Name())
	src, err := os.ReadFile(filepath.Join(dir, "main.go"))
	require.NoError(t, err)
	assert.Equal(t, "package main // keep\n", string(src))
	assert.FileExists(t, filepath.Join(dir, "go.mod"))
}

func TestGoPlugin_Errors(t *testing.T) {
	t.Run("missing go command", func(t *testing.T) {
		h := newHarness(t, filepath.Join(t.TempDir(), "no-such-go"))
		_, err := h.tc.Build(context.Background(), unitWithSource("package main // missing\n"))
		var te *ToolchainError
		require.ErrorAs(t, err, &te)
		assert.Zero(t, te.ExitCode)
	})

	t.Run("not a module", func(t *testing.T) {
		h := newHarness(t, "go")
		u := unitWithSource("package main\n")
		u.Module = false
		_, err := h.tc.Build(context.Background(), u)
		assert.ErrorIs(t, err, ErrNotModule)
	})

	t.Run("open failure", func(t *testing.T) {
		h := newHarness(t, fakeGo(t, ""))
		h.tc.open = func(string) (symbols, error) { return nil, errors.New("bad ELF") }
		_, err := h.tc.Build(context.Background(), unitWithSource("package main // open\n"))
		var le *LoadError
		require.ErrorAs(t, err, &le)
		assert.Empty(t, le.Symbol)
	})

	t.Run("canceled", func(t *testing.T) {
		h := newHarness(t, fakeGo(t, ""))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := h.tc.Build(ctx, unitWithSource("package main // canceled\n"))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "actgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
toolchain:
  go: /opt/go/bin/go
  flags: [-trimpath]
  env:
    GOFLAGS: -mod=mod
    CGO_ENABLED: "1"
  keep_scratch: true
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/go/bin/go", cfg.Go)

	tc := New(WithConfig(cfg))
	assert.Equal(t, "/opt/go/bin/go", tc.goBin)
	assert.Equal(t, []string{"-trimpath"}, tc.flags)
	assert.Equal(t, []string{"CGO_ENABLED=1", "GOFLAGS=-mod=mod"}, tc.env)
	assert.True(t, tc.keep)

	missing, err := LoadConfig(filepath.Join(dir, "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Config{}, missing)
}
