// Package toolchain turns generated units into loaded, runnable modules.
//
// The GoPlugin toolchain writes a unit into a scratch module, builds it with
// `go build -buildmode=plugin` and opens the result in-process. Loaded modules
// expose a small host API: create a context, write entry values, run, close.
package toolchain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/actgraph/pkg/codegen"
)

var (
	// ErrNotModule is returned when a unit was generated without module exports.
	ErrNotModule = errors.New("unit has no module exports")
	// ErrUnsupported is returned on platforms without plugin support.
	ErrUnsupported = errors.New("plugins are not supported on this platform")
	// ErrUnknownInput is returned when writing a port that is not an external input.
	ErrUnknownInput = errors.New("not an external input")
	// ErrClosed is returned when using a context after Close.
	ErrClosed = errors.New("context closed")
)

// Toolchain compiles and loads a generated unit.
type Toolchain interface {
	Build(ctx context.Context, unit *codegen.Unit) (*Module, error)
}

// Cache stores built artifacts by source digest.
type Cache interface {
	Get(ctx context.Context, digest string) ([]byte, bool, error)
	Put(ctx context.Context, digest string, artifact []byte) error
}

// UnlockFunc releases a lock taken by a Locker.
type UnlockFunc func(ctx context.Context) error

// Locker serializes builds of the same digest across processes sharing a cache.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}

// ToolchainError reports a failed compiler invocation.
type ToolchainError struct {
	Args     []string
	ExitCode int
	Signal   string
	Stderr   string
	Err      error
}

func (e *ToolchainError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "toolchain %s", strings.Join(e.Args, " "))
	switch {
	case e.Signal != "":
		fmt.Fprintf(&b, ": killed by %s", e.Signal)
	case e.ExitCode != 0:
		fmt.Fprintf(&b, ": exit status %d", e.ExitCode)
	case e.Err != nil:
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		b.WriteString("\n")
		b.WriteString(s)
	}
	return b.String()
}

func (e *ToolchainError) Unwrap() error { return e.Err }

// LoadError reports a module that could not be opened or lacks a symbol.
type LoadError struct {
	Path   string
	Symbol string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Symbol == "" {
		return fmt.Sprintf("load %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("load %s: symbol %s: %v", e.Path, e.Symbol, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// RunError reports a panic raised by generated code during one run.
type RunError struct {
	Module string
	Value  any
	Stack  []byte
}

func (e *RunError) Error() string { return fmt.Sprintf("run %s: panic: %v", e.Module, e.Value) }

// Unwrap exposes a panic value that is itself an error.
func (e *RunError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Digest identifies a unit's source and the flags it is built with.
func Digest(source []byte, flags ...string) string {
	h := sha256.New()
	h.Write(source)
	for _, f := range flags {
		h.Write([]byte{0})
		h.Write([]byte(f))
	}
	return hex.EncodeToString(h.Sum(nil))
}
