// Package connect drives the parsing of Code Connect files: it finds every
// figma.connect call in a file, hands each one to a front end and collects
// the resulting documents. It also holds the helpers shared by the front
// ends for reading the call's arguments and config object.
package connect

import (
	"path/filepath"
	"slices"
	"strings"
	"time"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/codeconnect/pkg/ast"
	"github.com/gnana997/codeconnect/pkg/intrinsics"
	"github.com/gnana997/codeconnect/pkg/program"
)

// DocParser parses one figma.connect call into a document. A nil document
// without error skips the call.
type DocParser func(ctx *ParserContext, call *ts.Node) (*Document, error)

// IsConnectCall reports whether node is a call whose callee mentions
// figma.connect.
func IsConnectCall(node *ts.Node, src []byte) bool {
	if node == nil || node.Kind() != ast.KindCall || ast.IsTaggedTemplate(node) {
		return false
	}
	return strings.Contains(ast.Text(ast.Callee(node), src), intrinsics.ConnectCall)
}

// ConnectCalls returns the figma.connect calls of file in breadth-first
// order.
func ConnectCalls(file *program.SourceFile) []*ts.Node {
	var calls []*ts.Node
	ast.BFS(file.Root(), func(n *ts.Node) bool {
		if IsConnectCall(n, file.Source) {
			calls = append(calls, n)
		}
		return false
	})
	return calls
}

// IsConnectFile reports whether path has one of the extensions (without
// the dot) and contains a figma.connect call. Files that fail to parse are
// not Code Connect files.
func IsConnectFile(prog *program.Program, path string, extensions []string) bool {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" || !slices.Contains(extensions, ext) {
		return false
	}
	file, err := prog.File(path)
	if err != nil {
		return false
	}
	return len(ConnectCalls(file)) > 0
}

// ParseFile parses every figma.connect call of the context's file with
// parse. The first error aborts the file. A file without any call is an
// error, since callers only parse files they expect to contain one.
func ParseFile(ctx *ParserContext, parse DocParser) ([]*Document, error) {
	start := time.Now()

	var docs []*Document
	for _, call := range ConnectCalls(ctx.File) {
		doc, err := parse(ctx, call)
		if err != nil {
			return nil, err
		}
		if doc != nil {
			docs = append(docs, doc)
		}
	}
	if len(docs) == 0 {
		return nil, ctx.Errorf(ctx.File.Root(), "Didn't find any calls to figma.connect()")
	}

	ctx.Logger.Debug("parsed code connect file",
		"file", ctx.File.Path,
		"documents", len(docs),
		"ms", time.Since(start).Milliseconds())
	return docs, nil
}
