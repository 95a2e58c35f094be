package evidence

import "github.com/stretchr/testify/mock"

// MockMatcher is a Matcher whose answers are scripted by the test.
type MockMatcher struct {
	mock.Mock
}

func (m *MockMatcher) StentAction(snippets []string) StentAction {
	args := m.Called(snippets)
	return args.Get(0).(StentAction)
}

func (m *MockMatcher) SubsequentDay(snippets []string) bool {
	args := m.Called(snippets)
	return args.Bool(0)
}

func (m *MockMatcher) Stations(snippets []string) []string {
	args := m.Called(snippets)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]string)
}

func (m *MockMatcher) Lobes(snippets []string) []string {
	args := m.Called(snippets)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]string)
}

func (m *MockMatcher) Has(cue Cue, snippets []string) bool {
	args := m.Called(cue, snippets)
	return args.Bool(0)
}
