package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Open returns the PricingCache for driver: "memory" or "sqlite"
func Open(ctx context.Context, driver, path string) (PricingCache, error) {
	switch driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create cache directory: %w", err)
			}
		}
		return OpenSQLite(ctx, path)
	default:
		return nil, fmt.Errorf("unknown cache driver %q", driver)
	}
}
