// Package store persists integration definitions as opaque JSON documents.
//
// Each integration is stored in its own file under the store folder. The
// definition itself is kept verbatim as config_json; the store only peeks at
// its sourceType to decide whether a webhook URL is assigned.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	jsonclient "github.com/jsonmapper/integration-mapper/json"
	"github.com/jsonmapper/integration-mapper/types"
)

const recordExtension = ".json"

var ErrNotFound = errors.New("integration not found")

// Record is the persisted envelope of one integration.
type Record struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	ConfigJSON json.RawMessage `json:"config_json"`
	WebhookURL string          `json:"webhook_url,omitempty"`
	IsActive   bool            `json:"is_active"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type IIntegrationStore interface {
	Create(name string, config json.RawMessage) (*Record, error)
	Update(id string, name string, config json.RawMessage) (*Record, error)
	Get(id string) (*Record, error)
	List() ([]*Record, error)
}

type FileStore struct {
	StorePath  string
	SiteURL    string
	JsonClient jsonclient.IJsonClient
	Logger     *logrus.Logger
}

func NewFileStore(storePath string, siteURL string, logger *logrus.Logger) *FileStore {
	return &FileStore{
		StorePath:  storePath,
		SiteURL:    strings.TrimSuffix(siteURL, "/"),
		JsonClient: jsonclient.NewJsonClient(storePath, logger),
		Logger:     logger,
	}
}

// Create stores a new integration, makes it the only active one and returns
// the record with its assigned id and, for webhook sources, its webhook URL.
func (fileStore *FileStore) Create(name string, config json.RawMessage) (*Record, error) {
	if !gjson.ValidBytes(config) {
		return nil, errors.New("config_json is not valid JSON")
	}

	now := time.Now().UTC()
	record := &Record{
		ID:         uuid.NewString(),
		Name:       name,
		ConfigJSON: config,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if isWebhookSource(config) {
		record.WebhookURL = fileStore.webhookURL(record.ID)
	}

	if err := fileStore.deactivateAll(); err != nil {
		return nil, err
	}
	if err := fileStore.write(record); err != nil {
		return nil, err
	}

	fileStore.Logger.Infof("Integration %s created with id %s", name, record.ID)
	return record, nil
}

// Update replaces the definition of an existing integration and makes it the
// only active one.
func (fileStore *FileStore) Update(id string, name string, config json.RawMessage) (*Record, error) {
	if !gjson.ValidBytes(config) {
		return nil, errors.New("config_json is not valid JSON")
	}

	record, err := fileStore.Get(id)
	if err != nil {
		return nil, err
	}

	record.Name = name
	record.ConfigJSON = config
	record.UpdatedAt = time.Now().UTC()
	record.WebhookURL = ""
	if isWebhookSource(config) {
		record.WebhookURL = fileStore.webhookURL(record.ID)
	}

	if err := fileStore.deactivateAll(); err != nil {
		return nil, err
	}
	record.IsActive = true
	if err := fileStore.write(record); err != nil {
		return nil, err
	}

	fileStore.Logger.Infof("Integration %s updated", id)
	return record, nil
}

func (fileStore *FileStore) Get(id string) (*Record, error) {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return nil, errors.Wrapf(ErrNotFound, "invalid id %q", id)
	}

	record := &Record{}
	err := fileStore.JsonClient.Import(id+recordExtension, record)
	if errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// List returns every stored integration, newest first.
func (fileStore *FileStore) List() ([]*Record, error) {
	entries, err := os.ReadDir(fileStore.StorePath)
	if errors.Is(err, os.ErrNotExist) {
		return []*Record{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading store folder")
	}

	records := []*Record{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != recordExtension {
			continue
		}

		record, err := fileStore.Get(strings.TrimSuffix(entry.Name(), recordExtension))
		if err != nil {
			fileStore.Logger.Warnf("Skipping unreadable integration file %s: %v", entry.Name(), err)
			continue
		}
		records = append(records, record)
	}

	sort.Sort(ByCreatedAtDescending(records))
	return records, nil
}

func (fileStore *FileStore) deactivateAll() error {
	records, err := fileStore.List()
	if err != nil {
		return err
	}

	for _, record := range records {
		if !record.IsActive {
			continue
		}
		record.IsActive = false
		if err := fileStore.write(record); err != nil {
			return err
		}
		fileStore.Logger.Debugf("Integration %s deactivated", record.ID)
	}
	return nil
}

func (fileStore *FileStore) write(record *Record) error {
	return fileStore.JsonClient.Export(record, record.ID+recordExtension)
}

func (fileStore *FileStore) webhookURL(id string) string {
	return fmt.Sprintf("%s/webhook/%s/", fileStore.SiteURL, id)
}

func isWebhookSource(config json.RawMessage) bool {
	sourceType := gjson.GetBytes(config, "sourceType")
	return !sourceType.Exists() || sourceType.Type == gjson.Null || sourceType.String() == "" || sourceType.String() == string(types.SourceTypeWebhook)
}

type ByCreatedAtDescending []*Record

func (o ByCreatedAtDescending) Len() int      { return len(o) }
func (o ByCreatedAtDescending) Swap(i, j int) { o[i], o[j] = o[j], o[i] }
func (o ByCreatedAtDescending) Less(i, j int) bool {
	if !o[i].CreatedAt.Equal(o[j].CreatedAt) {
		return o[i].CreatedAt.After(o[j].CreatedAt)
	}
	return o[i].ID < o[j].ID
}
