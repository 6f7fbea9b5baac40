package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/grahambrooks/refactor-dsl-sub001/internal/output"
	"github.com/grahambrooks/refactor-dsl-sub001/internal/scanner"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/analyzer/usage"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/parser"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/scope"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/workspace"
)

// AnalyzeInput is the base input for all tools.
type AnalyzeInput struct {
	Paths     []string `json:"paths,omitempty" jsonschema:"Paths to analyze. Defaults to current directory if empty."`
	Languages []string `json:"languages,omitempty" jsonschema:"Only analyze files in these languages, e.g. go, python, typescript. Defaults to all."`
	Format    string   `json:"format,omitempty" jsonschema:"Output format: toon (default), json, or markdown."`
}

// DeadCodeInput adds dead code filters.
type DeadCodeInput struct {
	AnalyzeInput
	Kinds   []string `json:"kinds,omitempty" jsonschema:"Binding kinds to report, e.g. function, method, variable. Defaults to the configured kinds."`
	Exclude []string `json:"exclude,omitempty" jsonschema:"Glob patterns for files whose bindings are never reported."`
}

// SymbolInput names one binding.
type SymbolInput struct {
	AnalyzeInput
	Name string `json:"name" jsonschema:"Name of the binding."`
	File string `json:"file,omitempty" jsonschema:"Restrict to the binding defined in this file."`
}

// PositionInput addresses one identifier by one-based line and column.
type PositionInput struct {
	AnalyzeInput
	File   string `json:"file" jsonschema:"File containing the identifier."`
	Line   int    `json:"line" jsonschema:"One-based line number."`
	Column int    `json:"column" jsonschema:"One-based column, counted in bytes."`
}

// FileInput names one file.
type FileInput struct {
	AnalyzeInput
	File string `json:"file" jsonschema:"File whose dependencies to list."`
}

func getPaths(input AnalyzeInput) []string {
	if len(input.Paths) == 0 {
		return []string{"."}
	}
	return append([]string(nil), input.Paths...)
}

func getFormat(input AnalyzeInput) output.Format {
	switch input.Format {
	case "json":
		return output.FormatJSON
	case "markdown", "md":
		return output.FormatMarkdown
	default:
		return output.FormatTOON
	}
}

func formatOutput(data any, format output.Format) (string, error) {
	switch format {
	case output.FormatJSON:
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return "", err
		}
		return string(out), nil
	case output.FormatMarkdown:
		out, err := output.MarshalTOON(data)
		if err != nil {
			return "", err
		}
		return "```\n" + out + "\n```", nil
	default:
		return output.MarshalTOON(data)
	}
}

func toolResult(data any, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(data, format)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

// load scans paths and builds a workspace over the files found. Paths are
// made absolute so file arguments match the loaded file names.
func (s *Server) load(ctx context.Context, input AnalyzeInput, extra ...workspace.Option) (*workspace.Workspace, error) {
	paths := getPaths(input)
	for i, p := range paths {
		paths[i] = absPath(p)
	}
	langs, err := parser.ParseLanguages(input.Languages)
	if err != nil {
		return nil, err
	}
	files, err := scanner.NewScanner(s.config).ScanPaths(paths)
	if err != nil {
		return nil, err
	}
	files = scanner.FilterByLanguage(files, langs...)
	if len(files) == 0 {
		return nil, fmt.Errorf("no source files found")
	}

	opts, err := workspace.FromConfig(s.config, paths[0])
	if err != nil {
		return nil, err
	}
	opts = append(opts, workspace.WithLogger(s.logger))
	opts = append(opts, extra...)
	return workspace.Load(ctx, files, opts...)
}

// bindings finds the bindings a SymbolInput refers to.
func bindings(ws *workspace.Workspace, input SymbolInput) ([]scope.Binding, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	var found []scope.Binding
	if input.File != "" {
		found = ws.Lookup(input.Name, absPath(input.File))
	} else {
		found = ws.FindAllBindings(input.Name)
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("no binding named %q", input.Name)
	}
	return found, nil
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// Tool handlers

func (s *Server) handleFindDeadCode(ctx context.Context, req *mcp.CallToolRequest, input DeadCodeInput) (*mcp.CallToolResult, any, error) {
	format := getFormat(input.AnalyzeInput)

	var analyzerOpts []usage.Option
	if len(input.Kinds) > 0 {
		kinds := make([]scope.BindingKind, 0, len(input.Kinds))
		for _, name := range input.Kinds {
			k, ok := scope.ParseBindingKind(name)
			if !ok {
				return toolError(fmt.Sprintf("unknown binding kind %q", name))
			}
			kinds = append(kinds, k)
		}
		analyzerOpts = append(analyzerOpts, usage.WithKinds(kinds...))
	}
	if len(input.Exclude) > 0 {
		globs, err := usage.CompilePatterns(input.Exclude)
		if err != nil {
			return toolError(err.Error())
		}
		analyzerOpts = append(analyzerOpts, usage.WithExcludes(globs...))
	}

	ws, err := s.load(ctx, input.AnalyzeInput, workspace.WithAnalyzerOptions(analyzerOpts...))
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(ws.Analyzer().FindDeadCode(), format)
}

func (s *Server) handleCanSafelyDelete(ctx context.Context, req *mcp.CallToolRequest, input SymbolInput) (*mcp.CallToolResult, any, error) {
	format := getFormat(input.AnalyzeInput)
	ws, err := s.load(ctx, input.AnalyzeInput)
	if err != nil {
		return toolError(err.Error())
	}
	found, err := bindings(ws, input)
	if err != nil {
		return toolError(err.Error())
	}

	a := ws.Analyzer()
	views := make([]output.SafeDeleteView, 0, len(found))
	for _, b := range found {
		views = append(views, output.SafeDeleteView{Binding: b, Result: a.CanSafelyDelete(b)})
	}
	if len(views) == 1 {
		return toolResult(views[0], format)
	}
	return toolResult(views, format)
}

func (s *Server) handleAnalyzeUsage(ctx context.Context, req *mcp.CallToolRequest, input SymbolInput) (*mcp.CallToolResult, any, error) {
	format := getFormat(input.AnalyzeInput)
	ws, err := s.load(ctx, input.AnalyzeInput)
	if err != nil {
		return toolError(err.Error())
	}
	found, err := bindings(ws, input)
	if err != nil {
		return toolError(err.Error())
	}

	a := ws.Analyzer()
	views := make([]output.UsageView, 0, len(found))
	for _, b := range found {
		views = append(views, output.UsageView{
			Binding:    b,
			Info:       a.AnalyzeBinding(b),
			References: a.FindAllUsages(b),
		})
	}
	if len(views) == 1 {
		return toolResult(views[0], format)
	}
	return toolResult(views, format)
}

func (s *Server) handleResolveReference(ctx context.Context, req *mcp.CallToolRequest, input PositionInput) (*mcp.CallToolResult, any, error) {
	format := getFormat(input.AnalyzeInput)
	if input.File == "" {
		return toolError("file is required")
	}
	if input.Line < 1 || input.Column < 1 {
		return toolError("line and column are one-based")
	}
	ws, err := s.load(ctx, input.AnalyzeInput)
	if err != nil {
		return toolError(err.Error())
	}

	file := absPath(input.File)
	ref, ok := ws.ReferenceAt(file, uint32(input.Line-1), uint32(input.Column-1))
	if !ok {
		return toolError(fmt.Sprintf("no identifier at %s:%d:%d", input.File, input.Line, input.Column))
	}
	return toolResult(ws.Analyzer().Index().Resolve(ref), format)
}

func (s *Server) handleFileDependencies(ctx context.Context, req *mcp.CallToolRequest, input FileInput) (*mcp.CallToolResult, any, error) {
	format := getFormat(input.AnalyzeInput)
	if input.File == "" {
		return toolError("file is required")
	}
	ws, err := s.load(ctx, input.AnalyzeInput)
	if err != nil {
		return toolError(err.Error())
	}

	file := absPath(input.File)
	a := ws.Analyzer()
	return toolResult(output.DependencyView{
		File:         file,
		Dependencies: a.FileDependencies(file),
		Dependents:   a.FilesDependingOn(file),
	}, format)
}

func (s *Server) handleDependencyGraph(ctx context.Context, req *mcp.CallToolRequest, input AnalyzeInput) (*mcp.CallToolResult, any, error) {
	format := getFormat(input)
	ws, err := s.load(ctx, input)
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(ws.Analyzer().DependencyGraph(), format)
}
