package cmd

import (
	"fmt"
	"strings"

	"github.com/calyptra/stateflow/pkg/persistence"
	"github.com/calyptra/stateflow/pkg/persistence/file"
	"github.com/calyptra/stateflow/pkg/persistence/redis"
)

// NewPersistence selects the storage backend from the database URL scheme.
// redis:// and rediss:// select the Redis backend, anything else is treated
// as a filesystem root.
func NewPersistence(databaseURL string) persistence.Persistence {
	switch parseScheme(databaseURL) {
	case "redis", "rediss":
		p, err := redis.NewPersistence(databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to connect to redis: %w", err))
		}

		return p
	default:
		return file.NewPersistence(strings.TrimPrefix(databaseURL, "file://"))
	}
}

func parseScheme(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return ""
	}

	return scheme
}
