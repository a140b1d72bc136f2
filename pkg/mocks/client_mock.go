package mocks

import (
	"context"
	"encoding/json"
	"io"

	"github.com/dukex/flowstudio/pkg/client"
	"github.com/dukex/flowstudio/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockArtifactUploader is a mock of the file upload endpoint.
type MockArtifactUploader struct {
	mock.Mock
}

func (m *MockArtifactUploader) UploadArtifact(ctx context.Context, flowID, filename string, content io.Reader) (string, error) {
	args := m.Called(ctx, flowID, filename, content)

	return args.String(0), args.Error(1)
}

// MockCodeAPI is a mock of the code validation and compile endpoints.
type MockCodeAPI struct {
	mock.Mock
}

func (m *MockCodeAPI) ValidateCode(ctx context.Context, code string) (*client.CodeCheck, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*client.CodeCheck), args.Error(1)
}

func (m *MockCodeAPI) CompileDynamicComponent(ctx context.Context, code string, current *models.NodeClass) (json.RawMessage, error) {
	args := m.Called(ctx, code, current)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(json.RawMessage), args.Error(1)
}

// MockStoreAPI is a mock of the store endpoints.
type MockStoreAPI struct {
	mock.Mock
}

func (m *MockStoreAPI) FetchStoreTags(ctx context.Context) ([]models.TagRef, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]models.TagRef), args.Error(1)
}

func (m *MockStoreAPI) FetchStoreEntries(ctx context.Context, filter client.StoreFilter) ([]models.StoreEntry, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]models.StoreEntry), args.Error(1)
}

func (m *MockStoreAPI) CreateStoreEntry(ctx context.Context, submission models.StoreSubmission) error {
	args := m.Called(ctx, submission)

	return args.Error(0)
}

func (m *MockStoreAPI) UpdateStoreEntry(ctx context.Context, remoteID string, submission models.StoreSubmission) error {
	args := m.Called(ctx, remoteID, submission)

	return args.Error(0)
}
