package stats

import "github.com/stretchr/testify/mock"

// MockStatsUpdater records counter updates for assertions.
type MockStatsUpdater struct {
	mock.Mock
}

func (m *MockStatsUpdater) Incr(name string) {
	m.Called(name)
}

func (m *MockStatsUpdater) Decr(name string) {
	m.Called(name)
}

func (m *MockStatsUpdater) RegisterMetric(name string) {
	m.Called(name)
}

func (m *MockStatsUpdater) Run() {
	m.Called()
}

// AllowAll accepts any registration or counter update without asserting.
func (m *MockStatsUpdater) AllowAll() *MockStatsUpdater {
	m.On("RegisterMetric", mock.Anything).Maybe()
	m.On("Incr", mock.Anything).Maybe()
	m.On("Decr", mock.Anything).Maybe()
	return m
}
