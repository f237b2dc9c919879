package figma

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/codeconnect/pkg/util"
)

const nodesJSON = `{
  "nodes": {
    "1:2": {
      "document": {
        "id": "1:2", "name": "Button", "type": "COMPONENT_SET",
        "componentPropertyDefinitions": {
          "Size": {"type": "VARIANT", "defaultValue": "Small", "variantOptions": ["Small", "Large"]},
          "Label#12:0": {"type": "TEXT", "defaultValue": "Click"}
        },
        "children": [{"id": "1:3", "name": "Size=Small", "type": "COMPONENT", "children": [{"id": "1:4", "name": "Icon", "type": "INSTANCE"}]}]
      },
      "components": {"1:3": {"key": "k", "name": "Size=Small", "componentSetId": "1:2"}}
    },
    "9:9": null
  }
}`

func TestHTTPClient_Nodes(t *testing.T) {
	var gotPath, gotQuery, gotToken, gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("ids")
		gotToken = r.Header.Get("X-Figma-Token")
		gotAgent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(nodesJSON))
	}))
	defer srv.Close()

	c := NewHTTPClient("secret", WithBaseURL(srv.URL+"/"), WithLogger(util.NewDiscardLogger()))
	nodes, err := c.Nodes(context.Background(), "abc123", []string{"1:2", "9:9"})
	require.NoError(t, err)

	assert.Equal(t, "/files/abc123/nodes", gotPath)
	assert.Equal(t, "1:2,9:9", gotQuery)
	assert.Equal(t, "secret", gotToken)
	assert.Contains(t, gotAgent, "code-connect-cli/")

	require.Contains(t, nodes, "1:2")
	assert.Nil(t, nodes["9:9"])

	doc := nodes["1:2"].Document
	assert.True(t, doc.IsComponent())
	assert.Equal(t, []string{"Button", "Size=Small", "Icon"}, doc.LayerNames())
	assert.Equal(t, []string{"Small", "Large"}, doc.ComponentPropertyDefinitions["Size"].VariantOptions)
	assert.Equal(t, "1:2", nodes["1:2"].Components["1:3"].ComponentSetID)
}

func TestHTTPClient_Nodes_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"status": 403, "err": "Invalid token"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient("bad", WithBaseURL(srv.URL), WithLogger(util.NewDiscardLogger()))
	_, err := c.Nodes(context.Background(), "abc", []string{"1:2"})
	require.Error(t, err)
	assert.Equal(t, "failed to fetch node info (403): Invalid token", err.Error())
}

func TestHTTPClient_Upload(t *testing.T) {
	var gotMethod, gotPath, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewHTTPClient("secret", WithBaseURL(srv.URL), WithLogger(util.NewDiscardLogger()))
	require.NoError(t, c.Upload(context.Background(), []byte(`[{"figmaNode":"x"}]`)))

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/code_connect", gotPath)
	assert.Equal(t, "application/json", gotType)
	assert.JSONEq(t, `[{"figmaNode":"x"}]`, string(gotBody))
}

func TestHTTPClient_Delete(t *testing.T) {
	var gotMethod string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	c := NewHTTPClient("secret", WithBaseURL(srv.URL), WithLogger(util.NewDiscardLogger()))
	err := c.Delete(context.Background(), []DeletedNode{{FigmaNode: "https://figma.com/design/abc?node-id=1-2", Label: "React"}})
	require.NoError(t, err)

	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.JSONEq(t, `{"nodes_to_delete": [{"figmaNode": "https://figma.com/design/abc?node-id=1-2", "label": "React"}]}`, string(gotBody))
}

func TestHTTPClient_Upload_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status": 400, "message": "Invalid figmaNode"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient("secret", WithBaseURL(srv.URL), WithLogger(util.NewDiscardLogger()))
	err := c.Upload(context.Background(), []byte(`[]`))
	assert.EqualError(t, err, "failed to upload to Figma (400): Invalid figmaNode")

	err = c.Delete(context.Background(), nil)
	assert.EqualError(t, err, "failed to delete from Figma (400): Invalid figmaNode")
}
