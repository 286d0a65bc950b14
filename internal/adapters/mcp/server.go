package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/actgraph"
	"github.com/aretw0/actgraph/internal/logging"
	"github.com/aretw0/actgraph/internal/presentation/graph"
	"github.com/aretw0/actgraph/pkg/codegen"
	"github.com/aretw0/actgraph/pkg/document"
)

const (
	nodesURI        = "actgraph://nodes"
	shutdownTimeout = 5 * time.Second
)

// NodeKind describes one entry of the node library.
type NodeKind struct {
	Kind    string   `json:"kind" jsonschema_description:"The kind name used in documents"`
	Doc     string   `json:"doc,omitempty" jsonschema_description:"What the node does"`
	Inputs  []string `json:"inputs" jsonschema_description:"Input port names in port order"`
	Outputs []string `json:"outputs" jsonschema_description:"Output port names in port order"`
}

// NodesResponse is the structured result of the list_nodes tool.
type NodesResponse struct {
	Nodes []NodeKind `json:"nodes" jsonschema_description:"Every registered node kind"`
}

// DocumentArgs are the arguments shared by the tools that take a graph document.
type DocumentArgs struct {
	Document string `json:"document"`
	Format   string `json:"format,omitempty"`
	Module   bool   `json:"module,omitempty"`
}

// Server exposes the compiler as an MCP server. Like the HTTP adapter it
// never builds or loads plugins.
type Server struct {
	compiler  *actgraph.Compiler
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(c *actgraph.Compiler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		compiler:  c,
		logger:    logger,
		mcpServer: server.NewMCPServer("actgraph-mcp", strings.TrimSpace(actgraph.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// ServeStdio serves on Stdin/Stdout. Errors are logged, never written to Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer,
		server.WithErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError)))
}

// ServeSSE serves over Server-Sent Events on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sse.SSEHandler())
	mux.Handle("/message", sse.MessageHandler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func documentTool(name, description string, opts ...mcp.ToolOption) mcp.Tool {
	opts = append([]mcp.ToolOption{
		mcp.WithDescription(description),
		mcp.WithString("document", mcp.Required(), mcp.Description("The graph document")),
		mcp.WithString("format", mcp.Description("Document encoding; defaults to yaml"), mcp.Enum("yaml", "json", "hcl")),
	}, opts...)
	return mcp.NewTool(name, opts...)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_nodes",
		mcp.WithDescription("List the node library: every kind with its ports."),
		mcp.WithOutputSchema[NodesResponse](),
	), mcp.NewStructuredToolHandler(s.handleNodes))

	s.mcpServer.AddTool(documentTool("compile",
		"Compile a graph document to Go source.",
		mcp.WithBoolean("module", mcp.Description("Emit a loadable plugin module instead of a plain package")),
	), mcp.NewTypedToolHandler(s.handleCompile))

	s.mcpServer.AddTool(documentTool("graph",
		"Render a graph document as a Mermaid diagram, highlighting loop bodies when it compiles.",
	), mcp.NewTypedToolHandler(s.handleGraph))

	s.mcpServer.AddTool(documentTool("interpret",
		"Run a graph document in the interpreter and return what it prints.",
	), mcp.NewTypedToolHandler(s.handleInterpret))
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(nodesURI, "Node library",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		nodes, err := s.nodes()
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(nodes)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: nodesURI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})
}

func (s *Server) nodes() (NodesResponse, error) {
	reg := s.compiler.Registry()
	resp := NodesResponse{Nodes: make([]NodeKind, 0)}
	for _, name := range reg.Names() {
		d, err := reg.Describe(name)
		if err != nil {
			return NodesResponse{}, err
		}
		resp.Nodes = append(resp.Nodes, NodeKind{Kind: d.Kind, Doc: d.Doc, Inputs: nonNil(d.Inputs), Outputs: nonNil(d.Outputs)})
	}
	return resp, nil
}

func (s *Server) handleNodes(ctx context.Context, request mcp.CallToolRequest, _ map[string]any) (NodesResponse, error) {
	return s.nodes()
}

func (s *Server) handleCompile(ctx context.Context, request mcp.CallToolRequest, args DocumentArgs) (*mcp.CallToolResult, error) {
	prog, err := s.program(args)
	if err != nil {
		return s.toolError("compile", err), nil
	}
	unit, err := s.compiler.Compile(prog, codegen.Options{Module: args.Module})
	if err != nil {
		return s.toolError("compile", err), nil
	}
	return mcp.NewToolResultText(string(unit.Source)), nil
}

func (s *Server) handleGraph(ctx context.Context, request mcp.CallToolRequest, args DocumentArgs) (*mcp.CallToolResult, error) {
	prog, err := s.program(args)
	if err != nil {
		return s.toolError("graph", err), nil
	}
	var overlay *graph.Overlay
	if unit, err := s.compiler.Compile(prog, codegen.Options{}); err == nil {
		overlay = &graph.Overlay{Procedures: unit.Procedures}
	}
	return mcp.NewToolResultText(graph.GenerateMermaid(prog.Graph, prog.Table, overlay)), nil
}

func (s *Server) handleInterpret(ctx context.Context, request mcp.CallToolRequest, args DocumentArgs) (*mcp.CallToolResult, error) {
	prog, err := s.program(args)
	if err != nil {
		return s.toolError("interpret", err), nil
	}
	var out bytes.Buffer
	if err := s.compiler.Interpret(ctx, prog, &out); err != nil {
		return s.toolError("interpret", err), nil
	}
	return mcp.NewToolResultText(out.String()), nil
}

// program decodes and resolves the document carried by args.
func (s *Server) program(args DocumentArgs) (*document.Program, error) {
	if strings.TrimSpace(args.Document) == "" {
		return nil, errors.New("document is required")
	}
	format, err := document.ParseFormat(args.Format)
	if err != nil {
		return nil, err
	}
	doc, err := document.Parse([]byte(args.Document), format, "request")
	if err != nil {
		return nil, err
	}
	return s.compiler.Resolve(doc)
}

// toolError reports err to the client as a tool failure rather than a
// protocol error.
func (s *Server) toolError(tool string, err error) *mcp.CallToolResult {
	s.logger.Debug("tool failed", "tool", tool, "err", err)
	return mcp.NewToolResultError(err.Error())
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
