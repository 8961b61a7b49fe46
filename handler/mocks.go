package handler

import (
	"context"

	"github.com/inlay-dev/inlay-core/handler/entities"
	"github.com/inlay-dev/inlay-core/handler/ports"
	"github.com/inlay-dev/inlay-core/handler/values"
	"github.com/inlay-dev/inlay-core/schedule"
)

// MockRegistry implements ports.Registry with canned answers and call
// counters, so tests can assert how many round-trips a resolution performed.
type MockRegistry struct {
	TypeKind entities.Kind
	TypeErr  error

	VersionInfo ports.RemoteVersionInfo
	VersionErr  error

	Code    []byte
	CodeErr error

	TypeCalls    int
	VersionCalls int
	CodeCalls    int

	// BugfixOnlySeen records the bugfixOnly flag of each version query.
	BugfixOnlySeen []bool
}

func (m *MockRegistry) QueryType(ctx context.Context, name values.Name) (entities.Kind, error) {
	m.TypeCalls++
	if m.TypeErr != nil {
		return 0, m.TypeErr
	}
	return m.TypeKind, nil
}

func (m *MockRegistry) QueryLatestVersion(
	ctx context.Context,
	name values.Name,
	protocol values.Version,
	bugfixOnly bool,
	local values.Version,
) (ports.RemoteVersionInfo, error) {
	m.VersionCalls++
	m.BugfixOnlySeen = append(m.BugfixOnlySeen, bugfixOnly)
	if m.VersionErr != nil {
		return ports.RemoteVersionInfo{}, m.VersionErr
	}
	return m.VersionInfo, nil
}

func (m *MockRegistry) FetchCode(ctx context.Context, name values.Name, version values.Version) ([]byte, error) {
	m.CodeCalls++
	if m.CodeErr != nil {
		return nil, m.CodeErr
	}
	return m.Code, nil
}

// MockGate implements ports.Gate.
type MockGate struct {
	Err   error
	Calls int
}

func (m *MockGate) Authorize(ctx context.Context, name values.Name) error {
	m.Calls++
	return m.Err
}

// MockPrompter implements ports.Prompter.
type MockPrompter struct {
	Interactive bool
	Consent     bool
	Err         error
	Calls       int
}

func (m *MockPrompter) IsInteractive() bool {
	return m.Interactive
}

func (m *MockPrompter) ConfirmDownload(name values.Name, installed, available values.Version, kind values.UpdateKind) (bool, error) {
	m.Calls++
	if m.Err != nil {
		return false, m.Err
	}
	return m.Consent, nil
}

// MockStateStore implements ports.StateStore in memory.
type MockStateStore struct {
	Values map[string]string
}

func NewMockStateStore() *MockStateStore {
	return &MockStateStore{Values: make(map[string]string)}
}

func (m *MockStateStore) Get(key string) (string, bool, error) {
	v, ok := m.Values[key]
	return v, ok, nil
}

func (m *MockStateStore) Set(key, value string) error {
	m.Values[key] = value
	return nil
}

// MockFetcher implements ports.Fetcher.
type MockFetcher struct {
	Data  []byte
	Err   error
	Calls int
}

func (m *MockFetcher) Fetch(ctx context.Context, url string, spec schedule.Spec) ([]byte, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Data, nil
}
