package output

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/grahambrooks/refactor-dsl-sub001/internal/cache"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/analyzer/usage"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/refindex"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/scope"
)

// Location formats a zero-based position as a one-based file:line:col.
func Location(file string, pos scope.Position) string {
	return fmt.Sprintf("%s:%d:%d", file, pos.Line+1, pos.Character+1)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// styleColumn colors one column by its confidence label.
func styleColumn(col int) func(int, string) string {
	return func(i int, cell string) string {
		if i != col {
			return cell
		}
		return ConfidenceColor(cell, cell)
	}
}

func countsLine(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, counts[k])
	}
	return strings.Join(parts, ", ")
}

// DeadCode renders the unused bindings found by the usage analyzer.
func DeadCode(info usage.DeadCodeInfo) *Report {
	rows := make([][]string, 0, len(info.UnusedBindings))
	for _, u := range info.UnusedBindings {
		rows = append(rows, []string{
			Location(u.File, scope.Position{Line: u.Line, Character: u.Character}),
			u.Name,
			u.Kind,
			yesNo(u.IsExported),
			string(u.Confidence),
		})
	}
	table := NewTable("Unused Bindings",
		[]string{"Location", "Name", "Kind", "Exported", "Confidence"}, rows, nil, nil)
	table.Style = styleColumn(4)

	summary := fmt.Sprintf("%d unused of %d bindings", info.TotalUnused, info.TotalBindings)
	if len(info.ByKind) > 0 {
		summary += " (" + countsLine(info.ByKind) + ")"
	}
	return &Report{
		Title:    "Dead Code",
		Sections: []Renderable{table, &Section{Title: "Summary", Content: summary}},
		Data:     info,
	}
}

// SafeDeleteView pairs a binding with the delete verdict.
type SafeDeleteView struct {
	Binding scope.Binding          `json:"binding" toon:"binding"`
	Result  usage.SafeDeleteResult `json:"result" toon:"result"`
}

// SafeDelete renders a safe-delete verdict and its blockers.
func SafeDelete(b scope.Binding, res usage.SafeDeleteResult) *Report {
	verdict := "safe to delete"
	if !res.CanDelete {
		verdict = "cannot delete: " + res.Reason
	}
	sections := []Renderable{&Section{
		Title:   b.Name,
		Content: fmt.Sprintf("%s %s at %s\n%s", b.Kind, b.Name, Location(b.File, b.Range.Start), verdict),
	}}
	if len(res.Blockers) > 0 {
		rows := make([][]string, 0, len(res.Blockers))
		for _, bl := range res.Blockers {
			rows = append(rows, []string{fmt.Sprintf("%s:%d", bl.File, bl.Line+1), bl.Kind})
		}
		sections = append(sections, NewTable("Blockers", []string{"Location", "Kind"}, rows, nil, nil))
	}
	return &Report{
		Title:    "Safe Delete",
		Sections: sections,
		Data:     SafeDeleteView{Binding: b, Result: res},
	}
}

// UsageView is the usage summary of one binding with every reference to it.
type UsageView struct {
	Binding    scope.Binding        `json:"binding" toon:"binding"`
	Info       usage.UsageInfo      `json:"info" toon:"info"`
	References []refindex.Reference `json:"references" toon:"references"`
}

// Usage renders how one binding is used.
func Usage(b scope.Binding, info usage.UsageInfo, refs []refindex.Reference) *Report {
	lines := []string{
		fmt.Sprintf("%s %s defined at %s", b.Kind, b.Name, Location(b.File, b.Range.Start)),
		fmt.Sprintf("%d usages in %d files", info.UsageCount, info.FileCount),
	}
	switch {
	case info.IsUnused:
		lines = append(lines, "unused")
	case info.IsInternalOnly:
		lines = append(lines, "used only in its own file")
	}
	if len(info.ByKind) > 0 {
		lines = append(lines, "by kind: "+countsLine(info.ByKind))
	}

	rows := make([][]string, 0, len(refs))
	for _, r := range refs {
		def := ""
		if r.IsDefinition {
			def = "definition"
		}
		rows = append(rows, []string{Location(r.File, r.Range.Start), r.Kind.String(), def})
	}
	return &Report{
		Title: "Usage: " + b.Name,
		Sections: []Renderable{
			&Section{Title: "Summary", Content: strings.Join(lines, "\n")},
			NewTable("References", []string{"Location", "Kind", "Role"}, rows, nil, nil),
		},
		Data: UsageView{Binding: b, Info: info, References: refs},
	}
}

// DependencyView lists the files one file depends on and those depending on it.
type DependencyView struct {
	File         string   `json:"file" toon:"file"`
	Dependencies []string `json:"dependencies" toon:"dependencies"`
	Dependents   []string `json:"dependents" toon:"dependents"`
}

// Dependencies renders both directions of one file's dependencies.
func Dependencies(v DependencyView) *Report {
	return &Report{
		Title: "Dependencies: " + v.File,
		Sections: []Renderable{
			fileTable("Depends On", v.Dependencies),
			fileTable("Depended On By", v.Dependents),
		},
		Data: v,
	}
}

func fileTable(title string, files []string) *Table {
	rows := make([][]string, len(files))
	for i, f := range files {
		rows[i] = []string{f}
	}
	return NewTable(title, []string{"File"}, rows, []string{fmt.Sprintf("%d files", len(files))}, nil)
}

// Graph renders the file dependency graph with fan-in, fan-out and cycles.
func Graph(g *usage.DependencyGraph) *Report {
	rows := make([][]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		rows = append(rows, []string{n.File, fmt.Sprint(n.FanIn), fmt.Sprint(n.FanOut)})
	}
	sections := []Renderable{
		NewTable("Files", []string{"File", "Fan In", "Fan Out"}, rows,
			[]string{fmt.Sprintf("%d files", len(g.Nodes)), "", fmt.Sprintf("%d edges", len(g.Edges))}, nil),
	}

	if g.HasCycles() {
		crows := make([][]string, len(g.Cycles))
		for i, c := range g.Cycles {
			crows[i] = []string{fmt.Sprint(i + 1), strings.Join(c, " -> ")}
		}
		sections = append(sections, NewTable("Cycles", []string{"#", "Files"}, crows, nil, nil))
	} else {
		sections = append(sections, &Section{Title: "Order", Content: strings.Join(g.Order, "\n")})
	}
	return &Report{Title: "Dependency Graph", Sections: sections, Data: g}
}

// Resolution renders where a reference resolves to.
func Resolution(r refindex.ResolvedReference) *Report {
	ref := r.Reference
	lines := []string{
		fmt.Sprintf("%s %q at %s", ref.Kind, ref.Name, Location(ref.File, ref.Range.Start)),
	}
	if r.Binding != nil {
		b := r.Binding
		lines = append(lines, fmt.Sprintf("resolves to %s %s at %s", b.Kind, b.Name, Location(b.File, b.Range.Start)))
		if b.TypeAnnotation != "" {
			lines = append(lines, "type: "+b.TypeAnnotation)
		}
		if b.Documentation != "" {
			lines = append(lines, b.Documentation)
		}
	} else {
		lines = append(lines, "unresolved")
	}
	lines = append(lines, "confidence: "+r.Confidence.String())
	return &Report{
		Title:    "Resolve",
		Sections: []Renderable{&Section{Content: strings.Join(lines, "\n")}},
		Data:     r,
	}
}

// ScopesView is a file's scope tree with the bindings each scope owns.
type ScopesView struct {
	File     string          `json:"file" toon:"file"`
	Scopes   []scope.Scope   `json:"scopes" toon:"scopes"`
	Bindings []scope.Binding `json:"bindings" toon:"bindings"`
}

// Scopes renders a file's scope tree, indenting each scope by its depth.
func Scopes(file string, t *scope.Tracker) *Report {
	rows := make([][]string, 0, t.ScopeCount())
	for _, s := range t.Scopes() {
		names := make([]string, 0, len(s.Bindings))
		for _, b := range t.Members(s.ID) {
			names = append(names, b.Name)
		}
		rng := "file"
		if !s.IsRoot() {
			rng = fmt.Sprintf("%d-%d", s.Range.Start.Line+1, s.Range.End.Line+1)
		}
		rows = append(rows, []string{
			strings.Repeat("  ", t.Depth(s.ID)) + fmt.Sprintf("#%d %s", s.ID, s.Kind),
			rng,
			strings.Join(names, ", "),
		})
	}
	return &Report{
		Title:    "Scopes: " + file,
		Sections: []Renderable{NewTable("", []string{"Scope", "Lines", "Bindings"}, rows, nil, nil)},
		Data:     ScopesView{File: file, Scopes: t.Scopes(), Bindings: t.Bindings()},
	}
}

// CacheStatsView is the extraction cache directory and what it holds.
type CacheStatsView struct {
	Dir   string      `json:"dir" toon:"dir"`
	Stats cache.Stats `json:"stats" toon:"stats"`
}

// CacheStats renders the extraction cache summary.
func CacheStats(v CacheStatsView) *Report {
	rows := [][]string{
		{"Directory", v.Dir},
		{"Entries", fmt.Sprint(v.Stats.Entries)},
		{"Size", fmt.Sprintf("%d bytes", v.Stats.TotalSize)},
	}
	if v.Stats.Entries > 0 {
		rows = append(rows,
			[]string{"Oldest", v.Stats.OldestAge.Round(time.Second).String()},
			[]string{"Newest", v.Stats.NewestAge.Round(time.Second).String()},
		)
	}
	return &Report{
		Title:    "Cache",
		Sections: []Renderable{NewTable("", []string{"Field", "Value"}, rows, nil, nil)},
		Data:     v,
	}
}
