package oracle

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grahambrooks/refactor-dsl-sub001/pkg/extract"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/refindex"
)

const libSrc = `package demo

func Helper() int { return 1 }

func first() int {
	x := 1
	return x
}

func second() int {
	x := 2
	return x
}
`

const appSrc = `package demo

func Run() int { return Helper() }
`

func requireGo(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go toolchain not available")
	}
}

func writeModule(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	files := map[string]string{
		"go.mod": "module example.com/demo\n\ngo 1.21\n",
		"lib.go": libSrc,
		"app.go": appSrc,
	}
	for name, src := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644))
	}
	return dir
}

func index(t *testing.T, dir string) *refindex.Index {
	t.Helper()
	idx := refindex.New()
	e := extract.New()
	defer e.Close()
	for _, name := range []string{"lib.go", "app.go"} {
		path := filepath.Join(dir, name)
		facts, err := e.ReadFile(context.Background(), path)
		require.NoError(t, err)
		idx.AddBindings(facts.Bindings())
		idx.AddReferences(facts.References)
	}
	return idx
}

func TestLoadGoAndApply(t *testing.T) {
	requireGo(t)
	dir := writeModule(t)
	idx := index(t, dir)

	// The heuristic cannot tell the two locals apart.
	lib := filepath.Join(dir, "lib.go")
	ref, ok := idx.ReferenceAt(lib, 11, 8)
	require.True(t, ok)
	before := idx.Resolve(ref)
	require.NotNil(t, before.Binding)
	assert.Equal(t, uint32(5), before.Binding.Range.Start.Line)

	res, err := LoadGo(context.Background(), dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Packages)
	assert.Empty(t, res.Errors)
	assert.NotEmpty(t, res.Pairs)

	applied := res.Apply(idx)
	assert.Positive(t, applied)
	assert.Equal(t, applied, idx.Overrides())

	after := idx.Resolve(ref)
	assert.Equal(t, refindex.ConfidenceCertain, after.Confidence)
	require.NotNil(t, after.Binding)
	assert.Equal(t, uint32(10), after.Binding.Range.Start.Line)

	call, ok := idx.ReferenceAt(filepath.Join(dir, "app.go"), 2, 24)
	require.True(t, ok)
	resolved := idx.Resolve(call)
	assert.Equal(t, refindex.ConfidenceCertain, resolved.Confidence)
	assert.Equal(t, lib, resolved.Binding.File)
}

func TestApplyIgnoresUnknownFiles(t *testing.T) {
	requireGo(t)
	dir := writeModule(t)

	res, err := LoadGo(context.Background(), dir, []string{"."})
	require.NoError(t, err)

	idx := refindex.New()
	assert.Zero(t, res.Apply(idx))
	assert.Zero(t, idx.Overrides())
}

func TestLoadGoNoPackages(t *testing.T) {
	requireGo(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/empty\n\ngo 1.21\n"), 0o644))

	_, err := LoadGo(context.Background(), dir, []string{"./..."})
	require.Error(t, err)
	if !errors.Is(err, ErrNoPackages) {
		// go list reports "matched no packages" as a load error on some versions.
		assert.Contains(t, err.Error(), "packages")
	}
}

func TestZeroBased(t *testing.T) {
	assert.Equal(t, uint32(0), zero(1))
	assert.Equal(t, uint32(0), zero(0))
	assert.Equal(t, uint32(9), zero(10))
}
