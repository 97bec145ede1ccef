// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/nsreconcile/internal/issues"
)

// -- Tracker Mock --

// MockTracker mocks the issues.Tracker interface.
type MockTracker struct {
	mock.Mock
}

var _ issues.Tracker = (*MockTracker)(nil)

func (m *MockTracker) ListIssues(ctx context.Context) ([]issues.TrackingIssue, error) {
	args := m.Called(ctx)
	var out []issues.TrackingIssue
	if v := args.Get(0); v != nil {
		out = v.([]issues.TrackingIssue)
	}
	return out, args.Error(1)
}

func (m *MockTracker) CreateIssue(ctx context.Context, issue issues.NewIssue) (int, error) {
	args := m.Called(ctx, issue)
	return args.Int(0), args.Error(1)
}

func (m *MockTracker) ReopenIssue(ctx context.Context, number int) error {
	args := m.Called(ctx, number)
	return args.Error(0)
}

func (m *MockTracker) RateLimit(ctx context.Context) (issues.RateLimit, error) {
	args := m.Called(ctx)
	return args.Get(0).(issues.RateLimit), args.Error(1)
}
