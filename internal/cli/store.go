package cli

import (
	"context"
	"fmt"

	"github.com/mfalcon/negotia/internal/store"
	"github.com/mfalcon/negotia/internal/store/postgres"
	"github.com/mfalcon/negotia/internal/store/sqlite"
)

// openStore opens the result store for the chosen driver. An empty
// postgres DSN falls back to DATABASE_URL inside postgres.Open.
func openStore(ctx context.Context, home, driver, dsn string) (store.Store, error) {
	switch driver {
	case "sqlite", "":
		return sqlite.Open(home)
	case "postgres":
		return postgres.Open(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown store driver %q (want sqlite or postgres)", driver)
	}
}
