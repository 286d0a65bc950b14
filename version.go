package actgraph

import _ "embed"

// Version is the release of the compiler, read from the VERSION file.
//
//go:embed VERSION
var Version string
