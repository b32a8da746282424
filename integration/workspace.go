package integration

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jsonmapper/integration-mapper/store"
	"github.com/jsonmapper/integration-mapper/types"
)

// ActiveIntegration is the definition being edited together with the
// identity the store assigned to it.
type ActiveIntegration struct {
	ID         string
	WebhookURL string
	Definition *types.IntegrationDefinition
}

// Workspace holds at most one active integration. Opening or loading another
// integration replaces it.
type Workspace struct {
	Store  store.IIntegrationStore
	Logger *logrus.Logger
	active *ActiveIntegration
}

func NewWorkspace(integrationStore store.IIntegrationStore, logger *logrus.Logger) *Workspace {
	return &Workspace{
		Store:  integrationStore,
		Logger: logger,
	}
}

// Open makes definition the active, not yet saved, integration.
func (workspace *Workspace) Open(definition *types.IntegrationDefinition) *ActiveIntegration {
	if workspace.active != nil {
		workspace.Logger.Debugf("Replacing active integration %q", workspace.active.Definition.Name)
	}
	workspace.active = &ActiveIntegration{Definition: definition}
	return workspace.active
}

// Load reads a stored integration and makes it the active one.
func (workspace *Workspace) Load(id string) (*ActiveIntegration, error) {
	record, err := workspace.Store.Get(id)
	if err != nil {
		return nil, err
	}

	definition, err := Decode(record.ConfigJSON)
	if err != nil {
		return nil, errors.Wrapf(err, "integration %s", id)
	}
	if definition.Name == "" {
		definition.Name = record.Name
	}

	workspace.Open(definition)
	workspace.active.ID = record.ID
	workspace.active.WebhookURL = record.WebhookURL
	return workspace.active, nil
}

func (workspace *Workspace) Active() (*ActiveIntegration, bool) {
	return workspace.active, workspace.active != nil
}

// Save validates the active integration and persists it. The first save
// creates it in the store, later saves update it.
func (workspace *Workspace) Save() (*ActiveIntegration, error) {
	active := workspace.active
	if active == nil {
		return nil, errors.New("no active integration to save")
	}
	if err := Validate(active.Definition); err != nil {
		return nil, err
	}

	config, err := Encode(active.Definition)
	if err != nil {
		return nil, err
	}

	var record *store.Record
	if active.ID == "" {
		record, err = workspace.Store.Create(active.Definition.Name, config)
	} else {
		record, err = workspace.Store.Update(active.ID, active.Definition.Name, config)
	}
	if err != nil {
		return nil, errors.Wrap(err, "saving integration")
	}

	active.ID = record.ID
	active.WebhookURL = record.WebhookURL
	workspace.Logger.Infof("Integration %q saved with id %s", active.Definition.Name, active.ID)
	return active, nil
}
