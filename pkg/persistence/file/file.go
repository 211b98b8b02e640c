// Package file provides file-based persistence for workflow definitions and
// instances. Intended for development and tests; every record is one JSON
// document under <root>/<org>/{definitions,instances}/<id>.json.
package file

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/calyptra/stateflow/pkg/persistence"
)

// Persistence implements persistence.Persistence on the local filesystem.
type Persistence struct {
	root           string
	definitionRepo *DefinitionRepository
	instanceRepo   *InstanceRepository
}

// NewPersistence creates a file persistence rooted at the given directory.
// Accepts a plain path or a file:// URL.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)
	mu := &sync.Mutex{}

	return &Persistence{
		root:           cleanRoot,
		definitionRepo: &DefinitionRepository{root: cleanRoot, mu: mu},
		instanceRepo:   &InstanceRepository{root: cleanRoot, mu: mu},
	}
}

func (fp *Persistence) DefinitionRepository() persistence.DefinitionRepository {
	return fp.definitionRepo
}

func (fp *Persistence) InstanceRepository() persistence.InstanceRepository {
	return fp.instanceRepo
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. Nothing to do for files.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}
