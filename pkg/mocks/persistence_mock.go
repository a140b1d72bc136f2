package mocks

import (
	"context"

	"github.com/dukex/flowstudio/pkg/models"
	"github.com/dukex/flowstudio/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

var _ persistence.Persistence = (*MockPersistence)(nil)

// MockPersistence records document storage calls. Return values for methods
// yielding a document may be nil.
type MockPersistence struct {
	mock.Mock
}

func typedOrNil[T any](args mock.Arguments, index int) T {
	var zero T

	value, ok := args.Get(index).(T)
	if !ok {
		return zero
	}

	return value
}

func (m *MockPersistence) Documents(ctx context.Context) ([]*models.FlowDocument, error) {
	args := m.Called(ctx)

	return typedOrNil[[]*models.FlowDocument](args, 0), args.Error(1)
}

func (m *MockPersistence) SaveDocument(ctx context.Context, doc *models.FlowDocument) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *MockPersistence) DocumentByID(ctx context.Context, id string) (*models.FlowDocument, error) {
	args := m.Called(ctx, id)

	return typedOrNil[*models.FlowDocument](args, 0), args.Error(1)
}

func (m *MockPersistence) DeleteDocument(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
