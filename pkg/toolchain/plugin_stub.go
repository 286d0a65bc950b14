//go:build !((linux || darwin || freebsd) && cgo)

package toolchain

// Supported reports whether modules can be loaded on this platform.
const Supported = false

func openPlugin(string) (symbols, error) { return nil, ErrUnsupported }
