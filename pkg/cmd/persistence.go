package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zigzalgo/pipeworks/pkg/persistence"
	"github.com/zigzalgo/pipeworks/pkg/persistence/file"
	"github.com/zigzalgo/pipeworks/pkg/persistence/postgresql"
	"github.com/zigzalgo/pipeworks/pkg/persistence/redis"
)

var supportedPersistenceProviders = []string{"file", "postgres", "postgresql", "redis"}

// NewPersistence builds the persistence adapter selected by the database URL
// scheme. Anything without a recognized scheme is treated as a file root.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	provider := parsePersistenceProvider(databaseURL)

	switch provider {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgresql persistence: %w", err)
		}

		return p, nil
	case "redis":
		p, err := redis.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis persistence: %w", err)
		}

		return p, nil
	default:
		root := strings.TrimPrefix(databaseURL, "file://")

		return file.NewPersistence(root), nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	parts := strings.Split(databaseURL, "://")

	provider := parts[0]
	for _, supported := range supportedPersistenceProviders {
		if provider == supported {
			return provider
		}
	}

	return "file"
}
