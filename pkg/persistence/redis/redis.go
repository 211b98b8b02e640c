// Package redis provides redis-backed persistence for workflow definitions
// and instances. Records are JSON documents keyed by (organization, id), with
// set-based indexes for listing.
package redis

import (
	"context"
	"strings"

	"github.com/calyptra/stateflow/pkg/persistence"
	backend "github.com/redis/go-redis/v9"
)

// Persistence implements persistence.Persistence on top of redis.
type Persistence struct {
	client         *backend.Client
	definitionRepo *DefinitionRepository
	instanceRepo   *InstanceRepository
}

type Option func(*Persistence)

// WithPrefix overrides the key prefix.
func WithPrefix(prefix string) Option {
	return func(p *Persistence) {
		p.definitionRepo.prefix = prefix
		p.instanceRepo.prefix = prefix
	}
}

const defaultPrefix = "stateflow:"

// NewPersistence connects to redis using a redis:// URL.
func NewPersistence(redisURL string, opts ...Option) (*Persistence, error) {
	options, err := backend.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	return NewFromClient(backend.NewClient(options), opts...), nil
}

// NewFromClient builds a persistence from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Persistence {
	p := &Persistence{
		client:         client,
		definitionRepo: &DefinitionRepository{client: client, prefix: defaultPrefix},
		instanceRepo:   &InstanceRepository{client: client, prefix: defaultPrefix},
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *Persistence) DefinitionRepository() persistence.DefinitionRepository {
	return p.definitionRepo
}

func (p *Persistence) InstanceRepository() persistence.InstanceRepository {
	return p.instanceRepo
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func (p *Persistence) Close(_ context.Context) error {
	return p.client.Close()
}

func orgKey(prefix, organizationID string, parts ...string) string {
	return prefix + "org:" + organizationID + ":" + strings.Join(parts, ":")
}
