package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/gnana997/codeconnect/pkg/connect"
	"github.com/gnana997/codeconnect/pkg/indexer"
	"github.com/gnana997/codeconnect/pkg/messages"
	"github.com/gnana997/codeconnect/pkg/validation"
)

// DocumentSummary is the compact form of a document returned by
// list_documents.
type DocumentSummary struct {
	FigmaNode string `json:"figmaNode"`
	Component string `json:"component,omitempty"`
	Label     string `json:"label"`
	Language  string `json:"language"`
	File      string `json:"file"`
	Source    string `json:"source,omitempty"`
}

type signatureProp struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// resolvePath makes path absolute against the project root and rejects
// paths outside of it.
func (s *Server) resolvePath(path string) (string, error) {
	root := s.scanner.Runner().Project().Dir
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	path = filepath.Clean(path)
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside the project", path)
	}
	return path, nil
}

func (s *Server) relPath(path string) string {
	rel, err := filepath.Rel(s.scanner.Runner().Project().Dir, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

func (s *Server) handleParseFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := s.resolvePath(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	fd, changed, err := s.scanner.IndexFile(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	docs := fd.Docs
	if docs == nil {
		docs = []*connect.Document{}
	}
	msgs := fd.Messages
	if msgs == nil {
		msgs = messages.Messages{}
	}
	return jsonResult(map[string]any{
		"file":     s.relPath(fd.FilePath),
		"changed":  changed,
		"docs":     docs,
		"messages": msgs,
	})
}

func (s *Server) handleListDocuments(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	component := req.GetString("component", "")
	label := req.GetString("label", "")

	summaries := []DocumentSummary{}
	for _, fd := range s.index.All() {
		for _, doc := range fd.Docs {
			if component != "" && doc.Component != component {
				continue
			}
			if label != "" && !strings.EqualFold(doc.Label, label) {
				continue
			}
			summaries = append(summaries, DocumentSummary{
				FigmaNode: doc.FigmaNode,
				Component: doc.Component,
				Label:     doc.Label,
				Language:  doc.Language,
				File:      s.relPath(fd.FilePath),
				Source:    doc.Source,
			})
		}
	}
	return jsonResult(map[string]any{
		"docs":  summaries,
		"total": len(summaries),
	})
}

func (s *Server) handleGetDocument(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	node, err := req.RequireString("figma_node")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	docs := s.index.FindByNode(node)
	if len(docs) == 0 {
		return mcp.NewToolResultError(fmt.Sprintf("no Code Connect document for %s", node)), nil
	}
	return jsonResult(map[string]any{"docs": docs})
}

func (s *Server) handleComponentSignature(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	component, err := req.RequireString("component")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := s.resolvePath(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	sig, err := s.scanner.Runner().Program().ExtractFlattenedSignature(path, component)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	props := make([]signatureProp, len(sig))
	for i, p := range sig {
		props[i] = signatureProp{Name: p.Name, Type: p.Type}
	}
	return jsonResult(map[string]any{
		"component": component,
		"file":      s.relPath(path),
		"props":     props,
	})
}

func (s *Server) handleValidateDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	node, err := req.RequireString("figma_node")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.figma == nil {
		return mcp.NewToolResultError("validation requires a Figma access token (FIGMA_ACCESS_TOKEN)"), nil
	}
	docs := s.index.FindByNode(node)
	if len(docs) == 0 {
		return mcp.NewToolResultError(fmt.Sprintf("no Code Connect document for %s", node)), nil
	}

	failures, err := validation.ValidateDocs(ctx, s.figma, docs, s.logger)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	reasons := make([]string, len(failures))
	for i, f := range failures {
		reasons[i] = f.Error()
	}
	return jsonResult(map[string]any{
		"figmaNode": node,
		"checked":   len(docs),
		"valid":     len(failures) == 0,
		"errors":    reasons,
	})
}

func (s *Server) handleIndexStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out := map[string]any{}
	if req.GetBool("rescan", false) {
		stats, err := s.scanner.ScanWorkspace(ctx, nil)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		out["scan"] = scanSummary(stats)
	}

	p := s.scanner.Runner().Project()
	out["project"] = p.Dir
	out["parser"] = p.Config.Parser
	out["index"] = s.index.GetStats()
	out["parsers"] = s.scanner.Runner().Program().ParserStats()

	var failed []string
	for _, fd := range s.index.All() {
		if fd.HasErrors() {
			failed = append(failed, s.relPath(fd.FilePath))
		}
	}
	out["failedFiles"] = failed
	return jsonResult(out)
}

func scanSummary(stats *indexer.ScanStats) map[string]any {
	errs := make([]string, len(stats.Errors))
	for i, fe := range stats.Errors {
		errs[i] = fe.Error.Error()
	}
	return map[string]any{
		"filesDiscovered": stats.FilesDiscovered,
		"filesIndexed":    stats.FilesIndexed,
		"filesUnchanged":  stats.FilesUnchanged,
		"filesFailed":     stats.FilesFailed,
		"filesRemoved":    stats.FilesRemoved,
		"documents":       stats.DocumentsFound,
		"ms":              stats.TotalTimeMs,
		"errors":          errs,
	}
}
