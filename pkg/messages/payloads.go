package messages

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gnana997/codeconnect/pkg/connect"
	"github.com/gnana997/codeconnect/pkg/literal"
)

// Request modes.
const (
	ModeParse  = "PARSE"
	ModeCreate = "CREATE"
)

// ParseRequest asks a parser to parse the given files.
type ParseRequest struct {
	Mode string `json:"mode"`
	// Paths are absolute paths of the files to parse.
	Paths []string `json:"paths"`
	// Config is the `codeConnect` section of the project configuration.
	Config  any  `json:"config"`
	Verbose bool `json:"verbose,omitempty"`
}

// NewParseRequest returns a PARSE request.
func NewParseRequest(paths []string, config any) ParseRequest {
	if paths == nil {
		paths = []string{}
	}
	return ParseRequest{Mode: ModeParse, Paths: paths, Config: config}
}

// ParseResponse is the result of a parse.
type ParseResponse struct {
	Docs     []*connect.Document `json:"docs"`
	Messages Messages            `json:"messages"`
}

// CreatedFile is a file written by a CREATE request.
type CreatedFile struct {
	FilePath string `json:"filePath"`
}

// CreateResponse is the result of a CREATE request.
type CreateResponse struct {
	CreatedFiles []CreatedFile `json:"createdFiles"`
	Messages     Messages      `json:"messages"`
}

// MarshalJSON writes empty lists instead of null.
func (r ParseResponse) MarshalJSON() ([]byte, error) {
	type alias ParseResponse
	if r.Docs == nil {
		r.Docs = []*connect.Document{}
	}
	if r.Messages == nil {
		r.Messages = Messages{}
	}
	return literal.Marshal(alias(r))
}

// DecodeParseResponse decodes and validates a parser's response.
func DecodeParseResponse(data []byte) (*ParseResponse, error) {
	if err := requireKeys(data, "docs", "messages"); err != nil {
		return nil, err
	}
	var r ParseResponse
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("invalid parse response: %w", err)
	}
	if errs := r.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid parse response: %w", errors.Join(errs...))
	}
	return &r, nil
}

// DecodeCreateResponse decodes and validates a CREATE response.
func DecodeCreateResponse(data []byte) (*CreateResponse, error) {
	if err := requireKeys(data, "createdFiles", "messages"); err != nil {
		return nil, err
	}
	var r CreateResponse
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("invalid create response: %w", err)
	}
	errs := r.Messages.Validate()
	for i, f := range r.CreatedFiles {
		if f.FilePath == "" {
			errs = append(errs, fmt.Errorf("createdFiles[%d].filePath: required", i))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid create response: %w", errors.Join(errs...))
	}
	return &r, nil
}

// Validate checks the documents and messages against the schema.
func (r *ParseResponse) Validate() []error {
	errs := r.Messages.Validate()
	for i, doc := range r.Docs {
		if doc == nil {
			errs = append(errs, fmt.Errorf("docs[%d]: expected object", i))
			continue
		}
		for _, f := range []struct{ name, value string }{
			{"figmaNode", doc.FigmaNode},
			{"template", doc.Template},
			{"language", doc.Language},
			{"label", doc.Label},
		} {
			if f.value == "" {
				errs = append(errs, fmt.Errorf("docs[%d].%s: required", i, f.name))
			}
		}
		_ = doc.TemplateData.Props.Each(func(key string, value literal.Value) error {
			if err := validateProp(value); err != nil {
				errs = append(errs, fmt.Errorf("docs[%d].templateData.props.%s: %w", i, key, err))
			}
			return nil
		})
	}
	return errs
}

// validateProp checks that a prop mapping has the `{kind, args}` shape.
func validateProp(v literal.Value) error {
	data, err := literal.Marshal(v)
	if err != nil {
		return err
	}
	var prop struct {
		Kind *string         `json:"kind"`
		Args json.RawMessage `json:"args"`
	}
	if err := json.Unmarshal(data, &prop); err != nil {
		return errors.New("expected an object with kind and args")
	}
	if prop.Kind == nil {
		return errors.New("kind: required")
	}
	return nil
}

func requireKeys(data []byte, keys ...string) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	var errs []error
	for _, k := range keys {
		if _, ok := raw[k]; !ok {
			errs = append(errs, fmt.Errorf("%s: required", k))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid response: %w", errors.Join(errs...))
	}
	return nil
}
