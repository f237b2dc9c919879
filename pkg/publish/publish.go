// Package publish uploads Code Connect documents to Figma and removes
// published ones.
//
// Documents of the same Figma node always travel in one request: the
// server replaces everything stored for a node on each upload, so splitting
// a node's variants across requests would drop all but the last.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cast"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/gnana997/codeconnect/pkg/connect"
	"github.com/gnana997/codeconnect/pkg/figma"
	"github.com/gnana997/codeconnect/pkg/literal"
	"github.com/gnana997/codeconnect/pkg/validation"
)

// MaxRequestBytes is the largest request body the server accepts.
const MaxRequestBytes = 5 << 20

// TooLargeError reports a batch over MaxRequestBytes.
type TooLargeError struct {
	Bytes int
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("The request is too large (%.2fmb)", megabytes(e.Bytes))
}

// Options configures a Publisher.
type Options struct {
	// BatchSize is the number of Figma nodes per request. Zero sends every
	// document in one request.
	BatchSize int
	// DryRun encodes and checks the batches without sending them.
	DryRun bool
}

// Publisher sends documents through a figma.Publisher.
type Publisher struct {
	client figma.Publisher
	opts   Options
	logger *slog.Logger
}

// New returns a Publisher. A nil logger uses slog.Default().
func New(client figma.Publisher, opts Options, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{client: client, opts: opts, logger: logger}
}

// Upload publishes docs and returns the number of requests made. Every
// batch is checked against MaxRequestBytes before the first one is sent.
func (p *Publisher) Upload(ctx context.Context, docs []*connect.Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	batches, err := Batches(docs, p.opts.BatchSize)
	if err != nil {
		return 0, err
	}

	bodies := make([][]byte, len(batches))
	for i, batch := range batches {
		body, err := connect.Marshal(batch)
		if err != nil {
			return 0, fmt.Errorf("encoding batch %d: %w", i+1, err)
		}
		if len(body) > MaxRequestBytes {
			return 0, &TooLargeError{Bytes: len(body)}
		}
		bodies[i] = body
	}

	sent := 0
	for i, body := range bodies {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		p.logger.Info("uploading batch",
			"batch", fmt.Sprintf("%d/%d", i+1, len(bodies)),
			"docs", len(batches[i]),
			"mb", fmt.Sprintf("%.2f", megabytes(len(body))),
			"dry_run", p.opts.DryRun)
		if p.opts.DryRun {
			continue
		}
		if err := p.client.Upload(ctx, body); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

// Delete unpublishes the nodes and labels of docs.
func (p *Publisher) Delete(ctx context.Context, docs []*connect.Document) ([]figma.DeletedNode, error) {
	nodes := DeletedNodes(docs)
	if len(nodes) == 0 {
		return nil, nil
	}
	p.logger.Info("unpublishing", "nodes", len(nodes), "dry_run", p.opts.DryRun)
	if p.opts.DryRun {
		return nodes, nil
	}
	if err := p.client.Delete(ctx, nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// Batches groups docs by file key and node id, in order of first
// appearance, and packs batchSize groups into each batch. A batchSize of
// zero or less returns all docs as one batch.
func Batches(docs []*connect.Document, batchSize int) ([][]*connect.Document, error) {
	if batchSize <= 0 {
		return [][]*connect.Document{docs}, nil
	}

	groups := orderedmap.New[string, []*connect.Document]()
	for _, doc := range docs {
		node, err := validation.ParseFigmaNode(doc.FigmaNode)
		if err != nil {
			return nil, err
		}
		key := node.FileKey + "," + node.NodeID
		group, _ := groups.Get(key)
		groups.Set(key, append(group, doc))
	}

	var batches [][]*connect.Document
	var batch []*connect.Document
	n := 0
	for pair := groups.Oldest(); pair != nil; pair = pair.Next() {
		batch = append(batch, pair.Value...)
		n++
		if n == batchSize {
			batches = append(batches, batch)
			batch, n = nil, 0
		}
	}
	if len(batch) > 0 {
		batches = append(batches, batch)
	}
	return batches, nil
}

// DeletedNodes returns the distinct node and label pairs of docs.
func DeletedNodes(docs []*connect.Document) []figma.DeletedNode {
	seen := make(map[figma.DeletedNode]bool, len(docs))
	var nodes []figma.DeletedNode
	for _, doc := range docs {
		n := figma.DeletedNode{FigmaNode: doc.FigmaNode, Label: doc.Label}
		if !seen[n] {
			seen[n] = true
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// LabelReport lists the documents of one label.
type LabelReport struct {
	Label string
	Docs  []string
}

// Report groups docs by label in order of first appearance and describes
// each one as `Component(Prop=value) figmaNode`.
func Report(docs []*connect.Document) []LabelReport {
	byLabel := orderedmap.New[string, []string]()
	for _, doc := range docs {
		lines, _ := byLabel.Get(doc.Label)
		byLabel.Set(doc.Label, append(lines, Describe(doc)))
	}
	reports := make([]LabelReport, 0, byLabel.Len())
	for pair := byLabel.Oldest(); pair != nil; pair = pair.Next() {
		reports = append(reports, LabelReport{Label: pair.Key, Docs: pair.Value})
	}
	return reports
}

// Describe renders doc as `Component(Prop=value,...) figmaNode`.
func Describe(doc *connect.Document) string {
	var b strings.Builder
	b.WriteString(doc.Component)
	if doc.Variant != nil && doc.Variant.Len() > 0 {
		var parts []string
		_ = doc.Variant.Each(func(key string, value literal.Value) error {
			parts = append(parts, key+"="+cast.ToString(literal.Interface(value)))
			return nil
		})
		b.WriteString("(" + strings.Join(parts, ",") + ")")
	}
	b.WriteString(" " + doc.FigmaNode)
	return b.String()
}

func megabytes(n int) float64 {
	return float64(n) / (1 << 20)
}
