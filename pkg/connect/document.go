package connect

import (
	"github.com/gnana997/codeconnect/pkg/literal"
)

// Version is reported in every document's metadata. Release builds set it
// with -ldflags "-X github.com/gnana997/codeconnect/pkg/connect.Version=...".
var Version = "dev"

// Labels of the built-in front ends.
const (
	LabelReact     = "React"
	LabelHTML      = "Web Components"
	LabelStorybook = "Storybook"
)

// Document is the Code Connect document produced for one figma.connect
// call site.
type Document struct {
	FigmaNode      string          `json:"figmaNode"`
	Component      string          `json:"component,omitempty"`
	Variant        *literal.Object `json:"variant,omitempty"`
	Source         string          `json:"source"`
	SourceLocation SourceLocation  `json:"sourceLocation"`
	Template       string          `json:"template"`
	TemplateData   TemplateData    `json:"templateData"`
	Language       string          `json:"language"`
	Label          string          `json:"label"`
	Links          []Link          `json:"links,omitempty"`
	Metadata       Metadata        `json:"metadata"`
}

// SourceLocation is the zero-based line of the component declaration, or
// -1 when unknown.
type SourceLocation struct {
	Line int `json:"line"`
}

// UnknownLine marks a document whose component declaration is unknown.
const UnknownLine = -1

// TemplateData carries the inputs of the template alongside it.
type TemplateData struct {
	// Props maps code prop names to intrinsics. Values are
	// *intrinsics.Intrinsic (or literals for hand-written mappings).
	Props *literal.Object `json:"props,omitempty"`
	// Imports are the import statements shown with the example.
	Imports []string `json:"imports,omitempty"`
	// Nestable is true when the example renders a single root element and
	// can be inlined into a parent example.
	Nestable bool `json:"nestable"`
}

// Link is an entry of the `links` config property.
type Link struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Metadata describes the tool that produced a document.
type Metadata struct {
	CLIVersion string `json:"cliVersion"`
}

// Marshal encodes documents as JSON without HTML escaping, so templates
// keep their `<` and `>`.
func Marshal(docs []*Document) ([]byte, error) {
	if docs == nil {
		docs = []*Document{}
	}
	return literal.Marshal(docs)
}
