package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grahambrooks/refactor-dsl-sub001/pkg/analyzer/usage"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/refindex"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/scope"
)

func extract(t *testing.T, path, src string) *FileFacts {
	t.Helper()
	facts, err := File(context.Background(), path, []byte(src))
	require.NoError(t, err)
	return facts
}

func binding(t *testing.T, facts *FileFacts, name string) scope.Binding {
	t.Helper()
	found := facts.Tracker.FindByName(name)
	require.NotEmpty(t, found, "no binding named %q", name)
	return found[0]
}

func refsNamed(facts *FileFacts, name string) []refindex.Reference {
	var out []refindex.Reference
	for _, r := range facts.References {
		if r.Name == name {
			out = append(out, r)
		}
	}
	return out
}

func TestExtractRust(t *testing.T) {
	facts := extract(t, "test.rs", `
pub fn hello() {}
fn private_func() {}
pub struct User {}
`)

	assert.True(t, binding(t, facts, "hello").Exported)
	assert.False(t, binding(t, facts, "private_func").Exported)
	user := binding(t, facts, "User")
	assert.Equal(t, scope.KindStruct, user.Kind)
	assert.True(t, user.Exported)
}

func TestExtractRustImplMethods(t *testing.T) {
	facts := extract(t, "lib.rs", `
struct Counter { count: u32 }

impl Counter {
    pub fn incr(&mut self, by: u32) {
        let next = self.count + by;
        self.count = next;
    }
}
`)

	incr := binding(t, facts, "incr")
	assert.Equal(t, scope.KindMethod, incr.Kind)
	assert.True(t, incr.Exported)
	assert.Equal(t, scope.KindField, binding(t, facts, "count").Kind)
	assert.Equal(t, scope.KindParameter, binding(t, facts, "by").Kind)
	assert.Equal(t, scope.KindVariable, binding(t, facts, "next").Kind)

	var kinds []refindex.ReferenceKind
	for _, r := range refsNamed(facts, "count") {
		if !r.IsDefinition {
			kinds = append(kinds, r.Kind)
		}
	}
	assert.Contains(t, kinds, refindex.RefRead)
	assert.Contains(t, kinds, refindex.RefWrite)
}

func TestExtractGo(t *testing.T) {
	facts := extract(t, "main.go", `
package main

func HelloWorld() {}
func privateFunc() {}
type User struct {}
`)

	hello := binding(t, facts, "HelloWorld")
	assert.True(t, hello.Exported)
	assert.Equal(t, scope.KindFunction, hello.Kind)
	assert.False(t, binding(t, facts, "privateFunc").Exported)
	assert.Equal(t, scope.KindStruct, binding(t, facts, "User").Kind)
}

func TestExtractGoBindingPositions(t *testing.T) {
	facts := extract(t, "pos.go", "package pos\n\nfunc Target() {}\n")

	b := binding(t, facts, "Target")
	assert.Equal(t, scope.NewRange(2, 5, 2, 11), b.Range)
	assert.Equal(t, scope.RootScope, b.Scope)
}

func TestExtractGoDeclarations(t *testing.T) {
	facts := extract(t, "decl.go", `package decl

import (
	"fmt"
	str "strings"
)

// Limit caps the loop.
const Limit = 3

type Shape interface {
	Area() float64
}

type Point struct {
	X, y int
}

func (p Point) Sum(extra ...int) int {
	total := p.X
	for _, v := range extra {
		total += v
	}
	return total
}

var _ = fmt.Sprint(str.ToUpper("x"))
`)

	limit := binding(t, facts, "Limit")
	assert.Equal(t, scope.KindConstant, limit.Kind)
	assert.Equal(t, "// Limit caps the loop.", limit.Documentation)

	assert.Equal(t, scope.KindInterface, binding(t, facts, "Shape").Kind)
	assert.Equal(t, scope.KindMethod, binding(t, facts, "Area").Kind)
	assert.Equal(t, scope.KindField, binding(t, facts, "X").Kind)
	assert.True(t, binding(t, facts, "X").Exported)
	assert.False(t, binding(t, facts, "y").Exported)

	sum := binding(t, facts, "Sum")
	assert.Equal(t, scope.KindMethod, sum.Kind)
	assert.Equal(t, "int", sum.TypeAnnotation)

	assert.Equal(t, scope.KindParameter, binding(t, facts, "p").Kind)
	assert.Equal(t, scope.KindParameter, binding(t, facts, "extra").Kind)
	assert.Equal(t, scope.KindVariable, binding(t, facts, "total").Kind)
	assert.Equal(t, scope.KindVariable, binding(t, facts, "v").Kind)
	assert.Equal(t, scope.KindImport, binding(t, facts, "fmt").Kind)
	assert.Equal(t, scope.KindImport, binding(t, facts, "str").Kind)
	assert.Empty(t, facts.Tracker.FindByName("strings"))
}

func TestExtractGoReferenceKinds(t *testing.T) {
	facts := extract(t, "kinds.go", `package kinds

type Box struct{ n int }

func run(b Box) int {
	x := 1
	x = 2
	b.n = x
	return helper(x)
}

func helper(v int) int { return v }
`)

	x := refsNamed(facts, "x")
	require.Len(t, x, 4)
	assert.True(t, x[0].IsDefinition)
	assert.Equal(t, refindex.RefWrite, x[1].Kind)
	assert.Equal(t, refindex.RefRead, x[2].Kind)
	assert.Equal(t, refindex.RefRead, x[3].Kind)

	var helperCall refindex.Reference
	for _, r := range refsNamed(facts, "helper") {
		if !r.IsDefinition {
			helperCall = r
		}
	}
	assert.Equal(t, refindex.RefCall, helperCall.Kind)

	var boxUse refindex.Reference
	for _, r := range refsNamed(facts, "Box") {
		if !r.IsDefinition {
			boxUse = r
		}
	}
	assert.Equal(t, refindex.RefType, boxUse.Kind)

	n := refsNamed(facts, "n")
	require.Len(t, n, 2)
	assert.Equal(t, refindex.RefWrite, n[1].Kind)
}

func TestExtractGoPackageClauseIsNotAUse(t *testing.T) {
	facts := extract(t, "util.go", "package util\n\nfunc util() {}\n")

	refs := refsNamed(facts, "util")
	require.Len(t, refs, 1)
	assert.True(t, refs[0].IsDefinition)
	assert.Equal(t, uint32(2), refs[0].Range.Start.Line)

	a := usage.New()
	facts.Apply(a)

	dead := a.FindDeadCode()
	require.Len(t, dead.UnusedBindings, 1)
	assert.Equal(t, "util", dead.UnusedBindings[0].Name)
	assert.True(t, a.CanSafelyDelete(binding(t, facts, "util")).CanDelete)
}

func TestExtractJavaPackageIsNotAUse(t *testing.T) {
	facts := extract(t, "Util.java", `package com.acme.util;

public class Util {
    void util() {}
}
`)

	for _, name := range []string{"com", "acme"} {
		assert.Empty(t, refsNamed(facts, name), name)
	}
	util := refsNamed(facts, "util")
	require.NotEmpty(t, util)
	for _, r := range util {
		assert.True(t, r.IsDefinition, "util at %d:%d", r.Range.Start.Line, r.Range.Start.Character)
	}
}

func TestExtractGoShadowing(t *testing.T) {
	facts := extract(t, "shadow.go", `package shadow

func f() {
	x := 1
	if true {
		x := 2
		_ = x
	}
	_ = x
}
`)

	require.Len(t, facts.Tracker.FindByName("x"), 2)

	inner, ok := facts.Tracker.VisibleAt("x", 6, 6)
	require.True(t, ok)
	assert.Equal(t, uint32(5), inner.Range.Start.Line)

	outer, ok := facts.Tracker.VisibleAt("x", 8, 5)
	require.True(t, ok)
	assert.Equal(t, uint32(3), outer.Range.Start.Line)

	s, ok := facts.Tracker.Scope(inner.Scope)
	require.True(t, ok)
	assert.Equal(t, scope.ScopeBlock, s.Kind)
}

func TestExtractPython(t *testing.T) {
	facts := extract(t, "test.py", `
def public_func():
    pass

def _private_func():
    pass

class MyClass:
    pass
`)

	assert.True(t, binding(t, facts, "public_func").Exported)
	assert.False(t, binding(t, facts, "_private_func").Exported)
	cls := binding(t, facts, "MyClass")
	assert.Equal(t, scope.KindClass, cls.Kind)
	assert.True(t, cls.Exported)
}

func TestExtractPythonScopes(t *testing.T) {
	facts := extract(t, "svc.py", `
import os.path
from typing import List as L

class Service(Base):
    def run(self, items):
        count = 0
        count = count + 1
        def inner():
            pass
        return inner()
`)

	run := binding(t, facts, "run")
	assert.Equal(t, scope.KindMethod, run.Kind)
	assert.True(t, run.Exported)

	assert.Equal(t, scope.KindParameter, binding(t, facts, "items").Kind)
	assert.Len(t, facts.Tracker.FindByName("count"), 1)
	assert.False(t, binding(t, facts, "count").Exported)
	assert.False(t, binding(t, facts, "inner").Exported)
	assert.Equal(t, scope.KindImport, binding(t, facts, "os").Kind)
	assert.Equal(t, scope.KindImport, binding(t, facts, "L").Kind)

	base := refsNamed(facts, "Base")
	require.Len(t, base, 1)
	assert.Equal(t, refindex.RefInheritance, base[0].Kind)

	count := refsNamed(facts, "count")
	require.Len(t, count, 3)
	assert.True(t, count[0].IsDefinition)
	assert.Equal(t, refindex.RefWrite, count[1].Kind)
	assert.Equal(t, refindex.RefRead, count[2].Kind)
}

func TestExtractTypeScript(t *testing.T) {
	facts := extract(t, "app.ts", `
export function greet(name: string): string { return name; }
function hidden() {}
export class Service {
  private secret() {}
  run() { return hidden(); }
}
const answer = 42;
export const handler = () => answer;
export interface Shape { area(): number }
`)

	greet := binding(t, facts, "greet")
	assert.True(t, greet.Exported)
	assert.Equal(t, scope.KindFunction, greet.Kind)
	assert.Equal(t, scope.KindParameter, binding(t, facts, "name").Kind)
	assert.False(t, binding(t, facts, "hidden").Exported)

	assert.Equal(t, scope.KindClass, binding(t, facts, "Service").Kind)
	assert.True(t, binding(t, facts, "run").Exported)
	assert.False(t, binding(t, facts, "secret").Exported)

	answer := binding(t, facts, "answer")
	assert.Equal(t, scope.KindConstant, answer.Kind)
	assert.False(t, answer.Exported)

	handler := binding(t, facts, "handler")
	assert.Equal(t, scope.KindFunction, handler.Kind)
	assert.True(t, handler.Exported)

	assert.Equal(t, scope.KindInterface, binding(t, facts, "Shape").Kind)

	var call refindex.Reference
	for _, r := range refsNamed(facts, "hidden") {
		if !r.IsDefinition {
			call = r
		}
	}
	assert.Equal(t, refindex.RefCall, call.Kind)
}

func TestExtractJavaScriptImports(t *testing.T) {
	facts := extract(t, "index.js", `
import React, { useState as useLocal } from "react";
import * as path from "path";
`)

	assert.Equal(t, scope.KindImport, binding(t, facts, "React").Kind)
	assert.Equal(t, scope.KindImport, binding(t, facts, "useLocal").Kind)
	assert.Equal(t, scope.KindImport, binding(t, facts, "path").Kind)
	assert.Empty(t, facts.Tracker.FindByName("useState"))
}

func TestExtractJava(t *testing.T) {
	facts := extract(t, "UserService.java", `
public class UserService {
    public void getUser() {}
    private void helper() {}
}
`)

	assert.True(t, binding(t, facts, "UserService").Exported)
	getUser := binding(t, facts, "getUser")
	assert.True(t, getUser.Exported)
	assert.Equal(t, scope.KindMethod, getUser.Kind)
	assert.False(t, binding(t, facts, "helper").Exported)
}

func TestExtractJavaMembers(t *testing.T) {
	facts := extract(t, "Repo.java", `
import java.util.List;

public class Repo extends Base implements Store {
    public static final int MAX = 10;
    private int size;

    public int add(int item) {
        int next = size + item;
        size = next;
        return compute(next);
    }
}
`)

	assert.Equal(t, scope.KindImport, binding(t, facts, "List").Kind)
	assert.Equal(t, scope.KindConstant, binding(t, facts, "MAX").Kind)
	assert.Equal(t, scope.KindField, binding(t, facts, "size").Kind)
	assert.Equal(t, scope.KindParameter, binding(t, facts, "item").Kind)
	assert.Equal(t, scope.KindVariable, binding(t, facts, "next").Kind)

	for _, name := range []string{"Base", "Store"} {
		refs := refsNamed(facts, name)
		require.Len(t, refs, 1, name)
		assert.Equal(t, refindex.RefInheritance, refs[0].Kind, name)
	}
	compute := refsNamed(facts, "compute")
	require.Len(t, compute, 1)
	assert.Equal(t, refindex.RefCall, compute[0].Kind)
}

func TestExtractCSharp(t *testing.T) {
	facts := extract(t, "Greeter.cs", `
using System.Text;

namespace Demo {
    public class Greeter {
        private int count;
        public void Hello(string name) {
            count = count + 1;
        }
    }
}
`)

	assert.Equal(t, scope.KindModule, binding(t, facts, "Demo").Kind)
	assert.True(t, binding(t, facts, "Greeter").Exported)
	hello := binding(t, facts, "Hello")
	assert.True(t, hello.Exported)
	assert.Equal(t, scope.KindMethod, hello.Kind)
	assert.False(t, binding(t, facts, "count").Exported)
	assert.Equal(t, scope.KindParameter, binding(t, facts, "name").Kind)
	assert.Equal(t, scope.KindImport, binding(t, facts, "Text").Kind)
}

func TestExtractRuby(t *testing.T) {
	facts := extract(t, "my_module.rb", `
module MyModule
  class MyClass
    def public_method
    end

    def _private_method
    end
  end
end
`)

	assert.Equal(t, scope.KindModule, binding(t, facts, "MyModule").Kind)
	assert.Equal(t, scope.KindClass, binding(t, facts, "MyClass").Kind)
	pub := binding(t, facts, "public_method")
	assert.True(t, pub.Exported)
	assert.Equal(t, scope.KindMethod, pub.Kind)
	assert.False(t, binding(t, facts, "_private_method").Exported)
}

func TestExtractScopesNest(t *testing.T) {
	facts := extract(t, "nest.py", `
class Outer:
    def method(self):
        pass
`)

	method := binding(t, facts, "method")
	chain := facts.Tracker.Chain(method.Scope)
	require.Len(t, chain, 2)
	s, _ := facts.Tracker.Scope(chain[0])
	assert.Equal(t, scope.ScopeClass, s.Kind)
	assert.Equal(t, scope.RootScope, chain[1])

	self := binding(t, facts, "self")
	fn, _ := facts.Tracker.Scope(self.Scope)
	assert.Equal(t, scope.ScopeFunction, fn.Kind)
}

func TestExtractUnsupported(t *testing.T) {
	_, err := File(context.Background(), "notes.txt", []byte("hello"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedLanguage))
	assert.False(t, Supported("notes.txt"))
	assert.True(t, Supported("main.go"))
}

func TestExtractorReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lib.go")
	require.NoError(t, os.WriteFile(path, []byte("package lib\n\nfunc Exported() {}\n"), 0o644))

	e := New()
	defer e.Close()

	facts, err := e.ReadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, facts.Path)
	assert.Len(t, facts.Bindings(), 1)

	_, err = e.ReadFile(context.Background(), filepath.Join(dir, "missing.go"))
	require.Error(t, err)
}

func TestFileFactsApplyAcrossFiles(t *testing.T) {
	lib := extract(t, "lib.go", `package lib

func Helper() int { return 1 }

func unused() {}
`)
	app := extract(t, "app.go", `package lib

func Run() int { return Helper() }
`)

	a := usage.New()
	lib.Apply(a)
	app.Apply(a)

	assert.Equal(t, []string{"lib.go"}, a.FileDependencies("app.go"))
	assert.Equal(t, []string{"app.go"}, a.FilesDependingOn("lib.go"))

	dead := a.FindDeadCode()
	var names []string
	for _, u := range dead.UnusedBindings {
		names = append(names, u.Name)
	}
	assert.Contains(t, names, "unused")
	assert.NotContains(t, names, "Helper")

	helper := binding(t, lib, "Helper")
	res := a.CanSafelyDelete(helper)
	assert.False(t, res.CanDelete)
	require.Len(t, res.Blockers, 1)
	assert.Equal(t, "app.go", res.Blockers[0].File)
}
