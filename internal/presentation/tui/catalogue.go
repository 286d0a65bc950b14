package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/actgraph/pkg/registry"
)

// Catalogue formats the node library as markdown, one section per kind.
func Catalogue(reg *registry.Registry) (string, error) {
	var b strings.Builder
	b.WriteString("# Node library\n")
	for _, kind := range reg.Names() {
		d, err := reg.Describe(kind)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "\n## %s\n\n", d.Kind)
		if d.Doc != "" {
			b.WriteString(d.Doc + "\n\n")
		}
		fmt.Fprintf(&b, "- **inputs**: %s\n", ports(d.Inputs))
		fmt.Fprintf(&b, "- **outputs**: %s\n", ports(d.Outputs))
	}
	return b.String(), nil
}

func ports(names []string) string {
	if len(names) == 0 {
		return "_none_"
	}
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "`" + n + "`"
	}
	return strings.Join(quoted, ", ")
}
