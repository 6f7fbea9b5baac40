package usage

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/grahambrooks/refactor-dsl-sub001/pkg/refindex"
)

// Edge is a file-level dependency: From references a binding defined in To.
type Edge struct {
	From string `json:"from" toon:"from"`
	To   string `json:"to" toon:"to"`
}

// FileNode summarizes one file in the dependency graph.
type FileNode struct {
	File   string `json:"file" toon:"file"`
	FanIn  int    `json:"fan_in" toon:"fan_in"`
	FanOut int    `json:"fan_out" toon:"fan_out"`
}

// DependencyGraph is the file-level graph built from FileDependencies.
type DependencyGraph struct {
	Nodes  []FileNode `json:"nodes" toon:"nodes"`
	Edges  []Edge     `json:"edges" toon:"edges"`
	Cycles [][]string `json:"cycles,omitempty" toon:"cycles,omitempty"`
	// Order lists files so that each appears after every file it depends
	// on. It is empty when the graph has cycles.
	Order []string `json:"order,omitempty" toon:"order,omitempty"`
}

// HasCycles reports whether any group of files depends on itself.
func (g *DependencyGraph) HasCycles() bool { return len(g.Cycles) > 0 }

// DependencyGraph builds the dependency graph over every indexed file.
func (a *Analyzer) DependencyGraph() *DependencyGraph {
	files := a.index.Files()
	g := simple.NewDirectedGraph()
	for _, f := range files {
		if fid, ok := a.index.FileID(f); ok {
			g.AddNode(simple.Node(fid))
		}
	}

	out := &DependencyGraph{
		Nodes: make([]FileNode, 0, len(files)),
		Edges: make([]Edge, 0),
	}
	for _, f := range files {
		from, _ := a.index.FileID(f)
		it := a.dependencyIDs(f).Iterator()
		for it.HasNext() {
			to := int64(it.Next())
			g.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
			out.Edges = append(out.Edges, Edge{From: f, To: a.index.FilePath(refindex.FileID(to))})
		}
	}

	for _, f := range files {
		fid, _ := a.index.FileID(f)
		id := int64(fid)
		out.Nodes = append(out.Nodes, FileNode{
			File:   f,
			FanIn:  g.To(id).Len(),
			FanOut: g.From(id).Len(),
		})
	}

	for _, scc := range topo.TarjanSCC(g) {
		if len(scc) < 2 {
			continue
		}
		out.Cycles = append(out.Cycles, a.nodePaths(scc))
	}
	sort.Slice(out.Cycles, func(i, j int) bool { return out.Cycles[i][0] < out.Cycles[j][0] })

	if len(out.Cycles) == 0 {
		sorted, err := topo.SortStabilized(g, func(nodes []graph.Node) {
			sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
		})
		if err == nil {
			// topo order puts dependents first; reverse so dependencies lead.
			for i := len(sorted) - 1; i >= 0; i-- {
				out.Order = append(out.Order, a.index.FilePath(refindex.FileID(sorted[i].ID())))
			}
		}
	}
	return out
}

func (a *Analyzer) nodePaths(nodes []graph.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = a.index.FilePath(refindex.FileID(n.ID()))
	}
	sort.Strings(out)
	return out
}
