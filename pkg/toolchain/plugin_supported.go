//go:build (linux || darwin || freebsd) && cgo

package toolchain

import "plugin"

// Supported reports whether modules can be loaded on this platform.
const Supported = true

type pluginSymbols struct{ p *plugin.Plugin }

func (s pluginSymbols) Lookup(name string) (any, error) { return s.p.Lookup(name) }

func openPlugin(path string) (symbols, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	return pluginSymbols{p}, nil
}
