package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukex/flowstudio/pkg/client"
	"github.com/dukex/flowstudio/pkg/documents"
	"github.com/dukex/flowstudio/pkg/mocks"
	"github.com/dukex/flowstudio/pkg/models"
	"github.com/dukex/flowstudio/pkg/notification"
	"github.com/dukex/flowstudio/pkg/persistence/file"
	"github.com/dukex/flowstudio/pkg/services"
	"github.com/dukex/flowstudio/pkg/store"
	"github.com/dukex/flowstudio/pkg/testutil"
	"github.com/dukex/flowstudio/pkg/validation"
	"github.com/dukex/flowstudio/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	app      *fiber.App
	registry *documents.Registry
	center   *notification.Center
	codeAPI  *mocks.MockCodeAPI
	storeAPI *mocks.MockStoreAPI
}

func setupTestApp(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	persistence := file.NewPersistence(t.TempDir())
	registry := documents.NewRegistry(logger, nil)
	center := notification.NewCenter(logger)
	validate := validator.New(validator.WithRequiredStructEnabled())
	codeAPI := &mocks.MockCodeAPI{}
	storeAPI := &mocks.MockStoreAPI{}

	documentService := services.NewDocuments(persistence, registry, center, &mocks.MockArtifactUploader{}, validate, logger)
	adapter := validation.NewAdapter(codeAPI, registry, center, logger)
	sessions := store.NewSessions(storeAPI, registry, center, documentService, logger, store.WithAppVersion("1.0.0"))

	handlers := web.NewAPIHandlers(documentService, registry, center, adapter, sessions, persistence, validate)

	app := fiber.New()
	handlers.Register(app)

	return &testEnv{app: app, registry: registry, center: center, codeAPI: codeAPI, storeAPI: storeAPI}
}

func (e *testEnv) do(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, url, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, data
}

func (e *testEnv) add(t *testing.T, overrides ...func(*models.FlowDocument)) *models.FlowDocument {
	t.Helper()

	doc := testutil.CreateTestDocument(overrides...)
	require.NoError(t, e.registry.Add(context.Background(), doc))

	return doc
}

func TestAPIHandlers_DocumentLifecycle(t *testing.T) {
	env := setupTestApp(t)

	resp, body := env.do(t, http.MethodPost, "/documents", web.CreateDocumentRequest{IsComponent: true})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created web.CreateDocumentResponse
	require.NoError(t, json.Unmarshal(body, &created))
	require.NotEmpty(t, created.ID)

	resp, body = env.do(t, http.MethodGet, "/documents/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var doc models.FlowDocument
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Equal(t, "New Component", doc.Name)
	assert.True(t, doc.IsComponent)

	name := "Summarizer"
	resp, body = env.do(t, http.MethodPatch, "/documents/"+created.ID, web.UpdateDocumentRequest{Name: &name})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Equal(t, "Summarizer", doc.Name)

	resp, _ = env.do(t, http.MethodPost, "/documents/"+created.ID+"/save", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	saved, _ := env.registry.Get(created.ID)
	assert.True(t, saved.Saved())

	resp, body = env.do(t, http.MethodGet, "/documents?is_component=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view documents.ViewResult
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, 1, view.TotalCount)

	resp, _ = env.do(t, http.MethodDelete, "/documents/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/documents/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_UpdateDocument(t *testing.T) {
	env := setupTestApp(t)
	doc := env.add(t)

	empty := ""

	tests := []struct {
		name           string
		id             string
		body           any
		expectedStatus int
	}{
		{name: "empty name", id: doc.ID, body: web.UpdateDocumentRequest{Name: &empty}, expectedStatus: http.StatusBadRequest},
		{name: "unknown document", id: "missing", body: web.UpdateDocumentRequest{}, expectedStatus: http.StatusNotFound},
		{name: "description only", id: doc.ID, body: map[string]string{"description": "d"}, expectedStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := env.do(t, http.MethodPatch, "/documents/"+tt.id, tt.body)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}

	current, _ := env.registry.Get(doc.ID)
	assert.Equal(t, "Test Flow", current.Name)
	assert.Equal(t, "d", current.Description)
}

func TestAPIHandlers_ActiveDocument(t *testing.T) {
	env := setupTestApp(t)
	doc := env.add(t)

	resp, _ := env.do(t, http.MethodGet, "/documents/active", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPut, "/documents/active", web.SetActiveRequest{ID: doc.ID})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body := env.do(t, http.MethodGet, "/documents/active", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), doc.ID)
}

func TestAPIHandlers_ImportRejectsNonJSON(t *testing.T) {
	env := setupTestApp(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/documents/import", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, env.registry.Len())

	items := env.center.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Invalid file type", items[0].Title)
}

func TestAPIHandlers_SubmitCode(t *testing.T) {
	env := setupTestApp(t)
	doc := env.add(t, testutil.WithNodes(
		testutil.CreateTestNode("Py-1", map[string]*models.TemplateField{
			"code": testutil.CodeField("print(1)", false),
		}),
	))

	env.codeAPI.On("ValidateCode", mock.Anything, "print(2)").
		Return(&client.CodeCheck{}, nil).Once()

	resp, body := env.do(t, http.MethodPost, "/documents/"+doc.ID+"/nodes/Py-1/fields/code/code", web.SubmitCodeRequest{Code: "print(2)"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var outcome validation.Outcome
	require.NoError(t, json.Unmarshal(body, &outcome))
	assert.Equal(t, models.ValidationAccepted, outcome.Result.Outcome)
	assert.True(t, outcome.Close)

	current, _ := env.registry.Get(doc.ID)
	assert.Equal(t, "print(2)", current.FindNode("Py-1").Data.Node.Field("code").Value)

	resp, _ = env.do(t, http.MethodPost, "/documents/"+doc.ID+"/nodes/Py-1/fields/missing/code", web.SubmitCodeRequest{Code: "x"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/documents/"+doc.ID+"/nodes/Py-1/fields/code/code", web.SubmitCodeRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	env.codeAPI.AssertExpectations(t)
}

func TestAPIHandlers_Notifications(t *testing.T) {
	env := setupTestApp(t)
	ctx := context.Background()

	first := env.center.Error(ctx, "first")
	env.center.Info(ctx, "second")

	resp, body := env.do(t, http.MethodGet, "/notifications", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list web.NotificationsResponse
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list.Items, 2)
	assert.True(t, list.Unread)

	resp, _ = env.do(t, http.MethodDelete, "/notifications/"+first.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 1, env.center.Len())

	resp, _ = env.do(t, http.MethodPut, "/notifications/center", web.CenterRequest{Open: true})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.False(t, env.center.Unread())

	resp, _ = env.do(t, http.MethodDelete, "/notifications", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 0, env.center.Len())
}

func TestAPIHandlers_PushNotification(t *testing.T) {
	env := setupTestApp(t)

	req := web.PushNotificationRequest{Kind: models.NotificationError, Title: "Offline", List: []string{"retrying"}, Unique: true}

	resp, body := env.do(t, http.MethodPost, "/notifications", req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var item models.NotificationItem
	require.NoError(t, json.Unmarshal(body, &item))
	assert.Equal(t, "Offline", item.Title)

	resp, body = env.do(t, http.MethodPost, "/notifications", req)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var again models.NotificationItem
	require.NoError(t, json.Unmarshal(body, &again))
	assert.Equal(t, item.ID, again.ID)
	assert.Equal(t, 1, env.center.Len())

	resp, _ = env.do(t, http.MethodPost, "/notifications", web.PushNotificationRequest{Kind: "warning", Title: "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIHandlers_PublishWithConfirmation(t *testing.T) {
	env := setupTestApp(t)
	doc := env.add(t, testutil.WithName("X"), testutil.AsComponent())

	env.storeAPI.On("FetchStoreTags", mock.Anything).Return([]models.TagRef{}, nil)
	env.storeAPI.On("FetchStoreEntries", mock.Anything, mock.Anything).
		Return([]models.StoreEntry{{ID: "r1", Name: "X", IsComponent: true}}, nil)
	env.storeAPI.On("UpdateStoreEntry", mock.Anything, "r1", mock.Anything).Return(nil).Once()

	base := "/documents/" + doc.ID + "/publish"

	resp, _ := env.do(t, http.MethodPost, base, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := env.do(t, http.MethodPost, base+"/attempt", web.PublishRequest{Public: true})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snapshot store.Snapshot
	require.NoError(t, json.Unmarshal(body, &snapshot))
	assert.Equal(t, store.StateAwaitingConfirmation, snapshot.State)
	require.NotNil(t, snapshot.Conflict)
	assert.Equal(t, "r1", snapshot.Conflict.ID)

	resp, body = env.do(t, http.MethodPost, base+"/confirm", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &snapshot))
	assert.Equal(t, store.StatePublished, snapshot.State)

	resp, _ = env.do(t, http.MethodPost, base+"/confirm", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = env.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	env.storeAPI.AssertExpectations(t)
}

func TestAPIHandlers_PublishUnknownDocument(t *testing.T) {
	env := setupTestApp(t)

	resp, _ := env.do(t, http.MethodPost, "/documents/missing/publish", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/documents/missing/publish/attempt", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_ExportRedacts(t *testing.T) {
	env := setupTestApp(t)
	doc := env.add(t, testutil.WithName("Keys"), testutil.WithNodes(
		testutil.CreateTestNode("n", map[string]*models.TemplateField{
			"api_key": {Type: "str", Value: "sk-live"},
		}),
	))

	resp, body := env.do(t, http.MethodGet, "/documents/"+doc.ID+"/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Contains(t, resp.Header.Get("Content-Disposition"), "Keys.json")
	assert.NotContains(t, string(body), "sk-live")
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	env := setupTestApp(t)

	resp, body := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"healthy"`)
}
