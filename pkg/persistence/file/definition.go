package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/calyptra/stateflow/pkg/models"
	"github.com/calyptra/stateflow/pkg/persistence"
)

// DefinitionRepository handles definition file operations.
type DefinitionRepository struct {
	root string
	mu   *sync.Mutex
}

func (dr *DefinitionRepository) dir(organizationID string) string {
	return filepath.Join(dr.root, organizationID, "definitions")
}

func (dr *DefinitionRepository) path(organizationID, id string) string {
	return filepath.Join(dr.dir(organizationID), id+".json")
}

func (dr *DefinitionRepository) Save(_ context.Context, definition *models.WorkflowDefinition) error {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	if err := os.MkdirAll(dr.dir(definition.OrganizationID), 0o755); err != nil {
		return &persistence.DefinitionError{
			Op: "Save", OrganizationID: definition.OrganizationID, DefinitionID: definition.ID,
			Err: fmt.Errorf("failed to create directory: %w", err),
		}
	}

	data, err := json.MarshalIndent(definition, "", "  ")
	if err != nil {
		return &persistence.DefinitionError{
			Op: "Save", OrganizationID: definition.OrganizationID, DefinitionID: definition.ID, Err: err,
		}
	}

	if err := os.WriteFile(dr.path(definition.OrganizationID, definition.ID), data, 0o644); err != nil {
		return &persistence.DefinitionError{
			Op: "Save", OrganizationID: definition.OrganizationID, DefinitionID: definition.ID, Err: err,
		}
	}

	return nil
}

func (dr *DefinitionRepository) GetByID(_ context.Context, organizationID, id string) (*models.WorkflowDefinition, error) {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	return dr.read(organizationID, id)
}

func (dr *DefinitionRepository) read(organizationID, id string) (*models.WorkflowDefinition, error) {
	data, err := os.ReadFile(dr.path(organizationID, id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &persistence.DefinitionError{
				Op: "GetByID", OrganizationID: organizationID, DefinitionID: id,
				Err: persistence.ErrDefinitionNotFound,
			}
		}

		return nil, &persistence.DefinitionError{Op: "GetByID", OrganizationID: organizationID, DefinitionID: id, Err: err}
	}

	var definition models.WorkflowDefinition
	if err := json.Unmarshal(data, &definition); err != nil {
		return nil, &persistence.DefinitionError{Op: "GetByID", OrganizationID: organizationID, DefinitionID: id, Err: err}
	}

	return &definition, nil
}

func (dr *DefinitionRepository) ListByOrganization(_ context.Context, organizationID string) ([]*models.WorkflowDefinition, error) {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	entries, err := os.ReadDir(dr.dir(organizationID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return make([]*models.WorkflowDefinition, 0), nil
		}

		return nil, fmt.Errorf("failed to list definitions for %s: %w", organizationID, err)
	}

	definitions := make([]*models.WorkflowDefinition, 0, len(entries))

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}

		definition, err := dr.read(organizationID, name[:len(name)-5])
		if err != nil {
			return nil, err
		}

		definitions = append(definitions, definition)
	}

	sort.Slice(definitions, func(i, j int) bool {
		return definitions[i].CreatedAt.Before(definitions[j].CreatedAt)
	})

	return definitions, nil
}

func (dr *DefinitionRepository) Delete(_ context.Context, organizationID, id string) error {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	err := os.Remove(dr.path(organizationID, id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &persistence.DefinitionError{
				Op: "Delete", OrganizationID: organizationID, DefinitionID: id,
				Err: persistence.ErrDefinitionNotFound,
			}
		}

		return &persistence.DefinitionError{Op: "Delete", OrganizationID: organizationID, DefinitionID: id, Err: err}
	}

	return nil
}
