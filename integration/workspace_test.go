package integration

import (
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsonmapper/integration-mapper/store"
	"github.com/jsonmapper/integration-mapper/types"
)

type mockIntegrationStore struct {
	Records      map[string]*store.Record
	CreateCalled int
	UpdateCalled int
}

func newMockIntegrationStore() *mockIntegrationStore {
	return &mockIntegrationStore{Records: map[string]*store.Record{}}
}

func (m *mockIntegrationStore) Create(name string, config json.RawMessage) (*store.Record, error) {
	m.CreateCalled++
	record := &store.Record{ID: "id-1", Name: name, ConfigJSON: config, WebhookURL: "http://localhost:8000/webhook/id-1/", IsActive: true}
	m.Records[record.ID] = record
	return record, nil
}

func (m *mockIntegrationStore) Update(id string, name string, config json.RawMessage) (*store.Record, error) {
	m.UpdateCalled++
	record, ok := m.Records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	record.Name = name
	record.ConfigJSON = config
	return record, nil
}

func (m *mockIntegrationStore) Get(id string) (*store.Record, error) {
	record, ok := m.Records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return record, nil
}

func (m *mockIntegrationStore) List() ([]*store.Record, error) {
	records := []*store.Record{}
	for _, record := range m.Records {
		records = append(records, record)
	}
	return records, nil
}

func TestWorkspace_SaveCreatesThenUpdates(t *testing.T) {
	integrationStore := newMockIntegrationStore()
	workspace := NewWorkspace(integrationStore, logrus.New())
	workspace.Open(validHTTPDefinition())

	active, err := workspace.Save()
	require.NoError(t, err)
	assert.Equal(t, "id-1", active.ID)
	assert.Equal(t, "http://localhost:8000/webhook/id-1/", active.WebhookURL)

	active.Definition.Condition = `fields.a != ""`
	_, err = workspace.Save()
	require.NoError(t, err)

	assert.Equal(t, 1, integrationStore.CreateCalled)
	assert.Equal(t, 1, integrationStore.UpdateCalled)

	stored, err := Decode(integrationStore.Records["id-1"].ConfigJSON)
	require.NoError(t, err)
	assert.Equal(t, `fields.a != ""`, stored.Condition)
}

func TestWorkspace_SaveRejectsInvalidDefinition(t *testing.T) {
	integrationStore := newMockIntegrationStore()
	workspace := NewWorkspace(integrationStore, logrus.New())
	definition := validHTTPDefinition()
	definition.Name = ""
	workspace.Open(definition)

	_, err := workspace.Save()

	var configErr *types.ConfigError
	require.True(t, errors.As(err, &configErr))
	assert.Equal(t, 0, integrationStore.CreateCalled)
}

func TestWorkspace_SaveWithoutActiveIntegration(t *testing.T) {
	workspace := NewWorkspace(newMockIntegrationStore(), logrus.New())

	_, err := workspace.Save()

	assert.Error(t, err)
}

func TestWorkspace_OpenReplacesActiveIntegration(t *testing.T) {
	workspace := NewWorkspace(newMockIntegrationStore(), logrus.New())
	workspace.Open(validHTTPDefinition())
	_, err := workspace.Save()
	require.NoError(t, err)

	second := validHTTPDefinition()
	second.Name = "Second"
	workspace.Open(second)

	active, ok := workspace.Active()
	require.True(t, ok)
	assert.Equal(t, "Second", active.Definition.Name)
	assert.Empty(t, active.ID)
}

func TestWorkspace_Load(t *testing.T) {
	integrationStore := newMockIntegrationStore()
	integrationStore.Records["stored"] = &store.Record{
		ID:         "stored",
		Name:       "From store",
		ConfigJSON: json.RawMessage(`{"mappings":[{"source":"a","target":"b","transform":"uppercase"}]}`),
		WebhookURL: "http://localhost:8000/webhook/stored/",
	}
	workspace := NewWorkspace(integrationStore, logrus.New())

	active, err := workspace.Load("stored")

	require.NoError(t, err)
	assert.Equal(t, "stored", active.ID)
	assert.Equal(t, "From store", active.Definition.Name)
	assert.Equal(t, types.TransformUppercase, active.Definition.Mappings[0].Transform.ID)

	_, err = workspace.Load("missing")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}
