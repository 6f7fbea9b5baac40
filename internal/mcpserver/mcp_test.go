package mcpserver

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/grahambrooks/refactor-dsl-sub001/internal/output"
	"github.com/grahambrooks/refactor-dsl-sub001/internal/testutil"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/analyzer/usage"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/config"
)

// project writes a two-file Go package and returns its directory.
func project(t *testing.T) string {
	t.Helper()
	dir, _, _ := testutil.Demo(t)
	return dir
}

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Cache.Enabled = false
	return NewServer("1.0.0-test", cfg, nil)
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatal("nil result")
	}
	if len(result.Content) == 0 {
		t.Fatal("result has no content")
	}
	text, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content is not TextContent: %T", result.Content[0])
	}
	return text.Text
}

func requireOK(t *testing.T, result *mcp.CallToolResult, err error) string {
	t.Helper()
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	text := resultText(t, result)
	if result.IsError {
		t.Fatalf("handler returned tool error: %s", text)
	}
	return text
}

func TestServerCreation(t *testing.T) {
	server := NewServer("1.0.0-test", nil, nil)
	if server == nil || server.server == nil {
		t.Fatal("NewServer() returned an incomplete server")
	}
	if server.config == nil {
		t.Error("nil config should fall back to defaults")
	}
}

func TestServerCreationEmptyVersion(t *testing.T) {
	if NewServer("", nil, nil) == nil {
		t.Fatal(`NewServer("") returned nil`)
	}
}

func TestToolDescriptions(t *testing.T) {
	descriptions := map[string]func() string{
		"find_dead_code":    describeFindDeadCode,
		"can_safely_delete": describeCanSafelyDelete,
		"analyze_usage":     describeAnalyzeUsage,
		"resolve_reference": describeResolveReference,
		"file_dependencies": describeFileDependencies,
		"dependency_graph":  describeDependencyGraph,
	}

	for name, fn := range descriptions {
		t.Run(name, func(t *testing.T) {
			desc := fn()
			for _, section := range []string{"USE WHEN:", "INTERPRETING RESULTS:", "METRICS RETURNED:"} {
				if !strings.Contains(desc, section) {
					t.Errorf("%s description missing %s", name, section)
				}
			}
		})
	}
}

func TestGetPaths(t *testing.T) {
	if got := getPaths(AnalyzeInput{}); len(got) != 1 || got[0] != "." {
		t.Errorf("getPaths(empty) = %v", got)
	}

	in := AnalyzeInput{Paths: []string{"a", "b"}}
	got := getPaths(in)
	got[0] = "changed"
	if in.Paths[0] != "a" {
		t.Error("getPaths should not alias the input slice")
	}
}

func TestGetFormat(t *testing.T) {
	tests := []struct {
		format string
		want   output.Format
	}{
		{"", output.FormatTOON},
		{"toon", output.FormatTOON},
		{"json", output.FormatJSON},
		{"markdown", output.FormatMarkdown},
		{"md", output.FormatMarkdown},
		{"unknown", output.FormatTOON},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			if got := getFormat(AnalyzeInput{Format: tt.format}); got != tt.want {
				t.Errorf("getFormat(%q) = %v, want %v", tt.format, got, tt.want)
			}
		})
	}
}

func TestFormatOutput(t *testing.T) {
	data := map[string]int{"count": 3}

	text, err := formatOutput(data, output.FormatJSON)
	if err != nil {
		t.Fatalf("formatOutput(json) error = %v", err)
	}
	var decoded map[string]int
	if err := json.Unmarshal([]byte(text), &decoded); err != nil || decoded["count"] != 3 {
		t.Errorf("json output = %q", text)
	}

	text, err = formatOutput(data, output.FormatMarkdown)
	if err != nil {
		t.Fatalf("formatOutput(markdown) error = %v", err)
	}
	if !strings.HasPrefix(text, "```\n") || !strings.HasSuffix(text, "\n```") {
		t.Errorf("markdown output not fenced: %q", text)
	}

	text, err = formatOutput(data, output.FormatTOON)
	if err != nil {
		t.Fatalf("formatOutput(toon) error = %v", err)
	}
	if !strings.Contains(text, "count") {
		t.Errorf("toon output = %q", text)
	}
}

func TestToolError(t *testing.T) {
	result, _, err := toolError("test error message")
	if err != nil {
		t.Fatalf("toolError returned unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("toolError result.IsError should be true")
	}
	if got := resultText(t, result); got != "Error: test error message" {
		t.Errorf("toolError text = %q", got)
	}
}

func TestHandleFindDeadCode(t *testing.T) {
	dir := project(t)
	s := testServer(t)

	result, _, err := s.handleFindDeadCode(context.Background(), nil, DeadCodeInput{
		AnalyzeInput: AnalyzeInput{Paths: []string{dir}, Format: "json"},
		Kinds:        []string{"function"},
	})
	text := requireOK(t, result, err)

	var info usage.DeadCodeInfo
	if err := json.Unmarshal([]byte(text), &info); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	names := make(map[string]bool)
	for _, u := range info.UnusedBindings {
		names[u.Name] = true
		if u.Kind != "function" {
			t.Errorf("kind filter leaked %s %s", u.Kind, u.Name)
		}
	}
	if !names["unused"] {
		t.Errorf("unused not reported: %+v", info.UnusedBindings)
	}
	if names["Helper"] {
		t.Error("Helper is called from app.go")
	}
}

func TestHandleFindDeadCodeExclude(t *testing.T) {
	dir := project(t)
	s := testServer(t)

	result, _, err := s.handleFindDeadCode(context.Background(), nil, DeadCodeInput{
		AnalyzeInput: AnalyzeInput{Paths: []string{dir}, Format: "json"},
		Exclude:      []string{"**/lib.go"},
	})
	text := requireOK(t, result, err)
	if strings.Contains(text, `"unused"`) {
		t.Errorf("excluded file still reported: %s", text)
	}
}

func TestHandleFindDeadCodeBadKind(t *testing.T) {
	s := testServer(t)
	result, _, err := s.handleFindDeadCode(context.Background(), nil, DeadCodeInput{
		AnalyzeInput: AnalyzeInput{Paths: []string{project(t)}},
		Kinds:        []string{"gadget"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError || !strings.Contains(resultText(t, result), "gadget") {
		t.Errorf("expected unknown kind error, got %q", resultText(t, result))
	}
}

func TestHandleFindDeadCodeLanguages(t *testing.T) {
	dir := project(t)
	testutil.WriteFile(t, filepath.Join(dir, "tool.py"), "def orphan():\n    pass\n")
	s := testServer(t)

	result, _, err := s.handleFindDeadCode(context.Background(), nil, DeadCodeInput{
		AnalyzeInput: AnalyzeInput{Paths: []string{dir}, Languages: []string{"python"}, Format: "json"},
	})
	text := requireOK(t, result, err)
	if !strings.Contains(text, `"orphan"`) || strings.Contains(text, `"unused"`) {
		t.Errorf("language filter not applied: %s", text)
	}

	result, _, err = s.handleFindDeadCode(context.Background(), nil, DeadCodeInput{
		AnalyzeInput: AnalyzeInput{Paths: []string{dir}, Languages: []string{"cobol"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError || !strings.Contains(resultText(t, result), "cobol") {
		t.Errorf("expected unknown language error, got %q", resultText(t, result))
	}
}

func TestHandleCanSafelyDelete(t *testing.T) {
	dir := project(t)
	s := testServer(t)

	tests := []struct {
		name      string
		canDelete bool
	}{
		{"unused", true},
		{"Helper", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, _, err := s.handleCanSafelyDelete(context.Background(), nil, SymbolInput{
				AnalyzeInput: AnalyzeInput{Paths: []string{dir}, Format: "json"},
				Name:         tt.name,
				File:         filepath.Join(dir, "lib.go"),
			})
			text := requireOK(t, result, err)

			var view output.SafeDeleteView
			if err := json.Unmarshal([]byte(text), &view); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if view.Result.CanDelete != tt.canDelete {
				t.Errorf("can_delete = %v, want %v", view.Result.CanDelete, tt.canDelete)
			}
			if !tt.canDelete && len(view.Result.Blockers) == 0 {
				t.Error("expected blockers")
			}
		})
	}
}

func TestHandleCanSafelyDeleteUnknown(t *testing.T) {
	s := testServer(t)
	result, _, err := s.handleCanSafelyDelete(context.Background(), nil, SymbolInput{
		AnalyzeInput: AnalyzeInput{Paths: []string{project(t)}},
		Name:         "Missing",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("expected tool error for unknown binding")
	}
}

func TestHandleAnalyzeUsage(t *testing.T) {
	dir := project(t)
	s := testServer(t)

	result, _, err := s.handleAnalyzeUsage(context.Background(), nil, SymbolInput{
		AnalyzeInput: AnalyzeInput{Paths: []string{dir}, Format: "json"},
		Name:         "Helper",
	})
	text := requireOK(t, result, err)

	var view output.UsageView
	if err := json.Unmarshal([]byte(text), &view); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if view.Info.UsageCount != 1 || view.Info.IsInternalOnly {
		t.Errorf("info = %+v", view.Info)
	}
	if len(view.References) < 2 {
		t.Errorf("references should include the definition and the call: %+v", view.References)
	}
}

func TestHandleResolveReference(t *testing.T) {
	dir := project(t)
	s := testServer(t)

	// "Helper" in "return Helper()" starts at line 4, column 9.
	result, _, err := s.handleResolveReference(context.Background(), nil, PositionInput{
		AnalyzeInput: AnalyzeInput{Paths: []string{dir}, Format: "json"},
		File:         filepath.Join(dir, "app.go"),
		Line:         4,
		Column:       10,
	})
	text := requireOK(t, result, err)
	if !strings.Contains(text, `"Helper"`) || !strings.Contains(text, "lib.go") {
		t.Errorf("resolution = %s", text)
	}
}

func TestHandleResolveReferenceValidation(t *testing.T) {
	s := testServer(t)
	tests := []struct {
		name  string
		input PositionInput
	}{
		{"missing file", PositionInput{Line: 1, Column: 1}},
		{"zero line", PositionInput{File: "app.go", Column: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, _, err := s.handleResolveReference(context.Background(), nil, tt.input)
			if err != nil {
				t.Fatal(err)
			}
			if !result.IsError {
				t.Error("expected tool error")
			}
		})
	}
}

func TestHandleFileDependencies(t *testing.T) {
	dir := project(t)
	s := testServer(t)

	result, _, err := s.handleFileDependencies(context.Background(), nil, FileInput{
		AnalyzeInput: AnalyzeInput{Paths: []string{dir}, Format: "json"},
		File:         filepath.Join(dir, "app.go"),
	})
	text := requireOK(t, result, err)

	var view output.DependencyView
	if err := json.Unmarshal([]byte(text), &view); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(view.Dependencies) != 1 || filepath.Base(view.Dependencies[0]) != "lib.go" {
		t.Errorf("dependencies = %v", view.Dependencies)
	}
	if len(view.Dependents) != 0 {
		t.Errorf("dependents = %v", view.Dependents)
	}
}

func TestHandleDependencyGraph(t *testing.T) {
	dir := project(t)
	s := testServer(t)

	result, _, err := s.handleDependencyGraph(context.Background(), nil, AnalyzeInput{Paths: []string{dir}, Format: "json"})
	text := requireOK(t, result, err)

	var g usage.DependencyGraph
	if err := json.Unmarshal([]byte(text), &g); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(g.Nodes) != 2 || len(g.Edges) != 1 {
		t.Errorf("graph = %+v", g)
	}
	if g.HasCycles() {
		t.Error("unexpected cycle")
	}
}

func TestEmptyPathsError(t *testing.T) {
	s := testServer(t)
	result, _, err := s.handleDependencyGraph(context.Background(), nil, AnalyzeInput{Paths: []string{t.TempDir()}})
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError || !strings.Contains(resultText(t, result), "no source files") {
		t.Errorf("expected no source files error, got %q", resultText(t, result))
	}
}

func TestParseFrontmatter(t *testing.T) {
	content := []byte("---\ndescription: Test prompt\narguments:\n  - name: paths\n    description: Where\n    required: true\n---\n\nBody {{paths}}\n")
	fm, body := parseFrontmatter(content)
	if fm.Description != "Test prompt" {
		t.Errorf("description = %q", fm.Description)
	}
	if len(fm.Arguments) != 1 || fm.Arguments[0].Name != "paths" || !fm.Arguments[0].Required {
		t.Errorf("arguments = %+v", fm.Arguments)
	}
	if body != "Body {{paths}}\n" {
		t.Errorf("body = %q", body)
	}

	fm, body = parseFrontmatter([]byte("no frontmatter"))
	if fm.Description != "" || body != "no frontmatter" {
		t.Errorf("plain content: %+v %q", fm, body)
	}
}

func TestSubstituteArgs(t *testing.T) {
	args := []promptArgument{{Name: "paths"}, {Name: "kinds"}}
	got := substituteArgs("{{paths}} {{kinds}} {{other}}", args, map[string]string{"kinds": "method"})
	if got != ". method {{other}}" {
		t.Errorf("substituteArgs = %q", got)
	}
}

func TestSafeDeleteReviewPrompt(t *testing.T) {
	content, err := promptFiles.ReadFile("prompts/safe-delete-review.md")
	if err != nil {
		t.Fatalf("embedded prompt missing: %v", err)
	}
	fm, body := parseFrontmatter(content)
	if fm.Description == "" {
		t.Error("prompt has no description")
	}

	handler := makePromptHandler(fm, body)
	result, err := handler(context.Background(), &mcp.GetPromptRequest{
		Params: &mcp.GetPromptParams{Name: "safe-delete-review", Arguments: map[string]string{"paths": "src"}},
	})
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if len(result.Messages) != 1 {
		t.Fatalf("messages = %d", len(result.Messages))
	}
	text := result.Messages[0].Content.(*mcp.TextContent).Text
	for _, want := range []string{"find_dead_code", "can_safely_delete", "src"} {
		if !strings.Contains(text, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(text, "{{") {
		t.Errorf("unsubstituted placeholder in %q", text)
	}
}

func TestGenerateManifest(t *testing.T) {
	data, err := GenerateManifest("1.2.3")
	if err != nil {
		t.Fatalf("GenerateManifest() error = %v", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("invalid manifest: %v", err)
	}
	if m.Version != "1.2.3" || len(m.Packages) != 1 {
		t.Errorf("manifest = %+v", m)
	}
	if !strings.HasSuffix(m.Packages[0].Identifier, ":1.2.3") {
		t.Errorf("identifier = %q", m.Packages[0].Identifier)
	}

	data, err = GenerateManifest("")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"0.0.0"`) {
		t.Error("empty version should default to 0.0.0")
	}

	data, err = GenerateManifest("v2.0.1")
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if m.Version != "2.0.1" {
		t.Errorf("version = %q, want 2.0.1", m.Version)
	}
	if env := m.Packages[0].EnvironmentVariables; len(env) != 1 || env[0].Name != "REFSCOPE_CONFIG" {
		t.Errorf("environmentVariables = %+v", env)
	}
}
