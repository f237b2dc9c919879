package mcp

import "github.com/mark3labs/mcp-go/mcp"

func parseFileTool() mcp.Tool {
	return mcp.NewTool("parse_file",
		mcp.WithDescription("Parse one Code Connect file of the project and return its documents and messages. Unchanged files are served from the index."),
		mcp.WithString("path", mcp.Required(), mcp.Description("File path, absolute or relative to the project root")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func listDocumentsTool() mcp.Tool {
	return mcp.NewTool("list_documents",
		mcp.WithDescription("List the indexed Code Connect documents as compact summaries (figma node, component, label, file)"),
		mcp.WithString("component", mcp.Description("Only documents for this component name")),
		mcp.WithString("label", mcp.Description("Only documents with this label, e.g. React or Storybook")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func getDocumentTool() mcp.Tool {
	return mcp.NewTool("get_document",
		mcp.WithDescription("Full Code Connect documents (template, props, imports) connected to a Figma node"),
		mcp.WithString("figma_node", mcp.Required(), mcp.Description("Figma node URL; host, slug and id separator are ignored")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func componentSignatureTool() mcp.Tool {
	return mcp.NewTool("component_signature",
		mcp.WithDescription("Flattened props signature of a component, with inherited props first"),
		mcp.WithString("path", mcp.Required(), mcp.Description("File declaring the component")),
		mcp.WithString("component", mcp.Required(), mcp.Description("Exported component name, or \"default\"")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func validateDocumentTool() mcp.Tool {
	return mcp.NewTool("validate_document",
		mcp.WithDescription("Check the documents of a Figma node against the Figma REST API: node type, property names and variant options"),
		mcp.WithString("figma_node", mcp.Required(), mcp.Description("Figma node URL")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func indexStatusTool() mcp.Tool {
	return mcp.NewTool("index_status",
		mcp.WithDescription("Document index statistics, optionally rescanning the project first"),
		mcp.WithBoolean("rescan", mcp.Description("Re-discover and re-parse changed files before reporting")),
	)
}

// ToolNames lists the tools the server registers, in registration order.
func ToolNames() []string {
	return []string{
		"parse_file",
		"list_documents",
		"get_document",
		"component_signature",
		"validate_document",
		"index_status",
	}
}
