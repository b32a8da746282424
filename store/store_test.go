package store

import (
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FileStore {
	return NewFileStore(t.TempDir(), "http://localhost:8000/", logrus.New())
}

func TestFileStore_Create_WebhookSource(t *testing.T) {
	fileStore := newTestStore(t)

	record, err := fileStore.Create("orders", json.RawMessage(`{"name":"orders","sourceType":"webhook","mappings":[]}`))

	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)
	assert.True(t, record.IsActive)
	assert.Equal(t, "http://localhost:8000/webhook/"+record.ID+"/", record.WebhookURL)
}

func TestFileStore_Create_DefaultsToWebhookSource(t *testing.T) {
	fileStore := newTestStore(t)

	record, err := fileStore.Create("orders", json.RawMessage(`{"mappings":[]}`))

	require.NoError(t, err)
	assert.NotEmpty(t, record.WebhookURL)
}

func TestFileStore_Create_PubSubSourceHasNoWebhook(t *testing.T) {
	fileStore := newTestStore(t)

	record, err := fileStore.Create("events", json.RawMessage(`{"sourceType":"pubsub","mappings":[]}`))

	require.NoError(t, err)
	assert.Empty(t, record.WebhookURL)
}

func TestFileStore_Create_RejectsInvalidJSON(t *testing.T) {
	fileStore := newTestStore(t)

	_, err := fileStore.Create("broken", json.RawMessage(`{"name":`))

	assert.Error(t, err)
}

func TestFileStore_Get_ReturnsSameEnvelope(t *testing.T) {
	fileStore := newTestStore(t)
	config := `{"name":"orders","mappings":[{"source":"a","target":"b","transform":"none"}]}`
	created, err := fileStore.Create("orders", json.RawMessage(config))
	require.NoError(t, err)

	record, err := fileStore.Get(created.ID)

	require.NoError(t, err)
	assert.Equal(t, created.ID, record.ID)
	assert.Equal(t, "orders", record.Name)
	assert.JSONEq(t, config, string(record.ConfigJSON))
	assert.Equal(t, created.WebhookURL, record.WebhookURL)
}

func TestFileStore_Get_NotFound(t *testing.T) {
	fileStore := newTestStore(t)

	_, err := fileStore.Get("missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = fileStore.Get("../escape")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFileStore_SingleActiveIntegration(t *testing.T) {
	fileStore := newTestStore(t)
	first, err := fileStore.Create("first", json.RawMessage(`{}`))
	require.NoError(t, err)
	second, err := fileStore.Create("second", json.RawMessage(`{}`))
	require.NoError(t, err)

	records, err := fileStore.List()
	require.NoError(t, err)
	require.Len(t, records, 2)

	active := map[string]bool{}
	for _, record := range records {
		active[record.ID] = record.IsActive
	}
	assert.False(t, active[first.ID])
	assert.True(t, active[second.ID])

	_, err = fileStore.Update(first.ID, "first", json.RawMessage(`{"sourceType":"pubsub"}`))
	require.NoError(t, err)

	reloadedFirst, err := fileStore.Get(first.ID)
	require.NoError(t, err)
	reloadedSecond, err := fileStore.Get(second.ID)
	require.NoError(t, err)
	assert.True(t, reloadedFirst.IsActive)
	assert.Empty(t, reloadedFirst.WebhookURL)
	assert.False(t, reloadedSecond.IsActive)
}

func TestFileStore_Update_NotFound(t *testing.T) {
	fileStore := newTestStore(t)

	_, err := fileStore.Update("missing", "x", json.RawMessage(`{}`))

	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFileStore_List_EmptyStore(t *testing.T) {
	fileStore := NewFileStore(t.TempDir()+"/does-not-exist", "http://localhost:8000", logrus.New())

	records, err := fileStore.List()

	require.NoError(t, err)
	assert.Empty(t, records)
}
