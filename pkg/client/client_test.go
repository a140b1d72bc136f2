package client

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukex/flowstudio/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return New(server.URL, slog.New(slog.DiscardHandler), opts...)
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func TestClient_ValidateCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/validate/code", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "import X", body["code"])

		writeJSON(t, w, http.StatusOK, map[string]any{
			"imports":  map[string]any{"errors": []string{"X not found"}},
			"function": map[string]any{"errors": []string{}},
		})
	})

	check, err := c.ValidateCode(t.Context(), "import X")
	require.NoError(t, err)
	assert.Equal(t, []string{"X not found"}, check.Imports.Errors)
	assert.Empty(t, check.Function.Errors)
}

func TestClient_CompileDynamicComponent_Error(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body, "frontend_node")

		writeJSON(t, w, http.StatusBadRequest, map[string]any{
			"detail": map[string]any{"error": "SyntaxError", "traceback": "line 3"},
		})
	})

	_, err := c.CompileDynamicComponent(t.Context(), "def", &models.NodeClass{})
	require.Error(t, err)

	apiErr, ok := IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "SyntaxError", apiErr.Detail)
	require.NotNil(t, apiErr.Traceback)
	assert.Equal(t, "line 3", *apiErr.Traceback)
}

func TestClient_CompileDynamicComponent_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"template": map[string]any{}, "display_name": "Custom"})
	})

	raw, err := c.CompileDynamicComponent(t.Context(), "class C: pass", nil)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"display_name":"Custom"`)
}

func TestClient_FetchStoreEntries(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/store/components/", r.URL.Path)
		assert.Equal(t, "id,name,is_component", r.URL.Query().Get("fields"))
		assert.Equal(t, "true", r.URL.Query().Get("filter_by_user"))
		assert.Equal(t, "secret-key", r.Header.Get("x-store-api-key"))

		writeJSON(t, w, http.StatusOK, map[string]any{
			"results": []map[string]any{{"id": "r1", "name": "X", "is_component": true}},
		})
	}, WithStoreAPIKey("secret-key"))

	entries, err := c.FetchStoreEntries(t.Context(), StoreFilter{
		Fields:       []string{"id", "name", "is_component"},
		FilterByUser: true,
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.StoreEntry{ID: "r1", Name: "X", IsComponent: true}, entries[0])
}

func TestClient_FetchStoreTags(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		writeJSON(t, w, http.StatusOK, []map[string]string{{"id": "t1", "name": "Agents"}})
	}, WithToken("tok"))

	tags, err := c.FetchStoreTags(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []models.TagRef{{ID: "t1", Name: "Agents"}}, tags)
}

func TestClient_UpdateStoreEntry(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/v1/store/components/r1", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "X", body["name"])
		assert.Equal(t, true, body["private"])
		assert.Equal(t, []any{"t1"}, body["tags"])

		w.WriteHeader(http.StatusOK)
	})

	err := c.UpdateStoreEntry(t.Context(), "r1", models.StoreSubmission{
		Document: &models.FlowDocument{ID: "doc-1", Name: "X", IsComponent: true},
		TagIDs:   []string{"t1"},
	})
	require.NoError(t, err)
}

func TestClient_CreateStoreEntry_Failure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusForbidden, map[string]any{"detail": "quota exceeded"})
	})

	err := c.CreateStoreEntry(t.Context(), models.StoreSubmission{Document: &models.FlowDocument{Name: "X"}})

	apiErr, ok := IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "quota exceeded", apiErr.Detail)
	assert.Nil(t, apiErr.Traceback)
}

func TestClient_UploadArtifact(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/upload/flow-1", r.URL.Path)

		file, header, err := r.FormFile("file")
		require.NoError(t, err)

		defer file.Close()

		content, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "a,b\n1,2\n", string(content))
		assert.Equal(t, "data.csv", header.Filename)

		writeJSON(t, w, http.StatusCreated, map[string]string{"file_path": "flow-1/data.csv"})
	})

	path, err := c.UploadArtifact(t.Context(), "flow-1", "data.csv", strings.NewReader("a,b\n1,2\n"))
	require.NoError(t, err)
	assert.Equal(t, "flow-1/data.csv", path)
}

func TestClient_MalformedResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html>"))
	})

	_, err := c.ValidateCode(t.Context(), "x")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestNewAPIError_Shapes(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		status    int
		detail    string
		traceback bool
	}{
		{name: "string detail", body: `{"detail":"bad"}`, status: 400, detail: "bad"},
		{name: "compile detail", body: `{"detail":{"error":"E","traceback":"T"}}`, status: 400, detail: "E", traceback: true},
		{name: "validation list", body: `{"detail":[{"msg":"a"},{"msg":"b"}]}`, status: 422, detail: "a; b"},
		{name: "plain body", body: "gateway down", status: 502, detail: "gateway down"},
		{name: "empty body", body: "", status: 503, detail: "Service Unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := newAPIError(tt.status, []byte(tt.body))

			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.detail, apiErr.Detail)
			assert.Equal(t, tt.traceback, apiErr.Traceback != nil)
		})
	}
}
