package validation

import (
	"reflect"

	"github.com/invopop/jsonschema"

	"github.com/gnana997/codeconnect/pkg/intrinsics"
	"github.com/gnana997/codeconnect/pkg/literal"
	"github.com/gnana997/codeconnect/pkg/messages"
)

// Schema returns the JSON schema of a parse response, the payload external
// parsers must print.
func Schema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: true,
		Mapper:                    mapType,
	}
	s := r.Reflect(&messages.ParseResponse{})
	s.Title = "Code Connect parse response"
	return s
}

var (
	objectType = reflect.TypeOf(literal.Object{})
	levelType  = reflect.TypeOf(messages.Level(""))
)

func mapType(t reflect.Type) *jsonschema.Schema {
	switch t {
	case objectType:
		return &jsonschema.Schema{
			Type:                 "object",
			AdditionalProperties: propSchema(),
		}
	case levelType:
		return &jsonschema.Schema{
			Type: "string",
			Enum: []any{
				string(messages.LevelDebug),
				string(messages.LevelInfo),
				string(messages.LevelWarn),
				string(messages.LevelError),
			},
		}
	}
	return nil
}

// propSchema accepts any value; intrinsic objects carry a kind from the
// known set.
func propSchema() *jsonschema.Schema {
	kinds := make([]any, 0, len(intrinsics.Kinds))
	for _, k := range intrinsics.KindNames() {
		kinds = append(kinds, k)
	}
	props := jsonschema.NewProperties()
	props.Set("kind", &jsonschema.Schema{Type: "string", Enum: kinds})
	props.Set("args", &jsonschema.Schema{Type: "object"})
	return &jsonschema.Schema{
		AnyOf: []*jsonschema.Schema{
			{Type: "object", Properties: props, Required: []string{"kind", "args"}},
			{Type: "string"},
			{Type: "number"},
			{Type: "boolean"},
			{Type: "null"},
		},
	}
}
