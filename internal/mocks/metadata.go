package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/spincheck/spincheck/internal/metadata"
)

var _ metadata.Client = (*MockMetadata)(nil)

// MockMetadata is a mock implementation of the metadata.Client interface,
// letting checks run against a scripted instance-metadata service.
type MockMetadata struct {
	mock.Mock
}

// OnGCE mocks the OnGCE method.
func (m *MockMetadata) OnGCE() bool {
	args := m.Called()
	return args.Bool(0)
}

// ProjectID mocks the ProjectID method.
func (m *MockMetadata) ProjectID(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// ServiceAccounts mocks the ServiceAccounts method.
func (m *MockMetadata) ServiceAccounts(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	// Need to handle potential nil slice return
	var accounts []string
	if args.Get(0) != nil {
		accounts = args.Get(0).([]string)
	}
	return accounts, args.Error(1)
}

// Scopes mocks the Scopes method.
func (m *MockMetadata) Scopes(ctx context.Context, account string) (string, error) {
	args := m.Called(ctx, account)
	return args.String(0), args.Error(1)
}
