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

// InstanceRepository handles instance file operations. Instances embed their
// history, so one file is the full audit record.
type InstanceRepository struct {
	root string
	mu   *sync.Mutex
}

func (ir *InstanceRepository) dir(organizationID string) string {
	return filepath.Join(ir.root, organizationID, "instances")
}

func (ir *InstanceRepository) path(organizationID, id string) string {
	return filepath.Join(ir.dir(organizationID), id+".json")
}

func (ir *InstanceRepository) Save(_ context.Context, instance *models.WorkflowInstance) error {
	ir.mu.Lock()
	defer ir.mu.Unlock()

	if err := os.MkdirAll(ir.dir(instance.OrganizationID), 0o755); err != nil {
		return &persistence.InstanceError{
			Op: "Save", OrganizationID: instance.OrganizationID, InstanceID: instance.ID,
			Err: fmt.Errorf("failed to create directory: %w", err),
		}
	}

	data, err := json.MarshalIndent(instance, "", "  ")
	if err != nil {
		return &persistence.InstanceError{
			Op: "Save", OrganizationID: instance.OrganizationID, InstanceID: instance.ID, Err: err,
		}
	}

	if err := os.WriteFile(ir.path(instance.OrganizationID, instance.ID), data, 0o644); err != nil {
		return &persistence.InstanceError{
			Op: "Save", OrganizationID: instance.OrganizationID, InstanceID: instance.ID, Err: err,
		}
	}

	return nil
}

func (ir *InstanceRepository) GetByID(_ context.Context, organizationID, id string) (*models.WorkflowInstance, error) {
	ir.mu.Lock()
	defer ir.mu.Unlock()

	return ir.read(organizationID, id)
}

func (ir *InstanceRepository) read(organizationID, id string) (*models.WorkflowInstance, error) {
	data, err := os.ReadFile(ir.path(organizationID, id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &persistence.InstanceError{
				Op: "GetByID", OrganizationID: organizationID, InstanceID: id,
				Err: persistence.ErrInstanceNotFound,
			}
		}

		return nil, &persistence.InstanceError{Op: "GetByID", OrganizationID: organizationID, InstanceID: id, Err: err}
	}

	var instance models.WorkflowInstance
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, &persistence.InstanceError{Op: "GetByID", OrganizationID: organizationID, InstanceID: id, Err: err}
	}

	return &instance, nil
}

func (ir *InstanceRepository) ListByDefinition(_ context.Context, organizationID, definitionID string) ([]*models.WorkflowInstance, error) {
	ir.mu.Lock()
	defer ir.mu.Unlock()

	entries, err := os.ReadDir(ir.dir(organizationID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return make([]*models.WorkflowInstance, 0), nil
		}

		return nil, fmt.Errorf("failed to list instances for %s: %w", organizationID, err)
	}

	instances := make([]*models.WorkflowInstance, 0, len(entries))

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}

		instance, err := ir.read(organizationID, name[:len(name)-5])
		if err != nil {
			return nil, err
		}

		if instance.WorkflowDefinitionID == definitionID {
			instances = append(instances, instance)
		}
	}

	sort.Slice(instances, func(i, j int) bool {
		return instances[i].CreatedAt.Before(instances[j].CreatedAt)
	})

	return instances, nil
}

func (ir *InstanceRepository) CountByDefinition(ctx context.Context, organizationID, definitionID string) (int64, error) {
	instances, err := ir.ListByDefinition(ctx, organizationID, definitionID)
	if err != nil {
		return 0, err
	}

	return int64(len(instances)), nil
}
