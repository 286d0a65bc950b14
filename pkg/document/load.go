package document

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"gopkg.in/yaml.v3"
)

// Format names a document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatHCL  Format = "hcl"
)

// FormatOf picks the format from a file extension; YAML is the default.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".hcl":
		return FormatHCL
	}
	return FormatYAML
}

// ParseFormat maps a format name to a Format; the empty name is YAML.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "", "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	case "hcl":
		return FormatHCL, nil
	}
	return "", fmt.Errorf("unknown format %q", name)
}

// Load reads a document from path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return Parse(data, FormatOf(path), path)
}

// Parse decodes data in the given format. name is used in diagnostics.
func Parse(data []byte, format Format, name string) (*Document, error) {
	var doc Document
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
	case FormatHCL:
		return parseHCL(data, name)
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
	}
	return &doc, nil
}

// hclFile is the top-level structure of an HCL document.
type hclFile struct {
	Name   string      `hcl:"name,optional"`
	Nodes  []*hclNode  `hcl:"node,block"`
	Edges  []string    `hcl:"edges,optional"`
	Inputs []*hclInput `hcl:"input,block"`
	Ignore []string    `hcl:"ignore,optional"`
}

type hclNode struct {
	Name string         `hcl:"name,label"`
	Kind string         `hcl:"kind"`
	Args hcl.Expression `hcl:"args,optional"`
}

type hclInput struct {
	Name    string         `hcl:"name,label"`
	Type    string         `hcl:"type,optional"`
	Value   hcl.Expression `hcl:"value,optional"`
	To      []string       `hcl:"to"`
	Trigger bool           `hcl:"trigger,optional"`
}

func parseHCL(data []byte, name string) (*Document, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, name)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", name, diags)
	}
	var parsed hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", name, diags)
	}

	doc := &Document{Name: parsed.Name, Edges: parsed.Edges, Ignore: parsed.Ignore}
	for _, n := range parsed.Nodes {
		args, err := evalExpr(n.Args)
		if err != nil {
			return nil, fmt.Errorf("node %q args: %w", n.Name, err)
		}
		nd := Node{Name: n.Name, Kind: n.Kind}
		if args != nil {
			m, ok := args.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("node %q args: expected an object, got %T", n.Name, args)
			}
			nd.Args = m
		}
		doc.Nodes = append(doc.Nodes, nd)
	}
	for _, in := range parsed.Inputs {
		v, err := evalExpr(in.Value)
		if err != nil {
			return nil, fmt.Errorf("input %q value: %w", in.Name, err)
		}
		doc.Inputs = append(doc.Inputs, Input{Name: in.Name, Type: in.Type, Value: v, To: in.To, Trigger: in.Trigger})
	}
	return doc, nil
}

func evalExpr(expr hcl.Expression) (any, error) {
	if expr == nil {
		return nil, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	return ctyToNative(val)
}
