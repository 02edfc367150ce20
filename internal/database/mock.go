package database

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockStore is a testify mock of Store. Tx delegates to TxFunc when set so
// tests can run units of work against a real store while still asserting
// on Ping or Close.
type MockStore struct {
	mock.Mock
	TxFunc func(ctx context.Context, fn func(tx Tx) error) error
}

func (m *MockStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStore) Tx(ctx context.Context, fn func(tx Tx) error) error {
	if m.TxFunc != nil {
		return m.TxFunc(ctx, fn)
	}
	args := m.Called(ctx, fn)
	return args.Error(0)
}

func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
