package refresh

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rflorenc/foreman-inventory/internal/cache"
	"github.com/rflorenc/foreman-inventory/internal/foreman"
	"github.com/rflorenc/foreman-inventory/internal/inventory"
)

// Run performs one full refresh: probe the server, fetch a snapshot, build
// the inventory. Progress lines go through logf — the job log in serve mode,
// stderr logging in CLI mode. logf may be nil.
func Run(ctx context.Context, client *foreman.Client, builder *inventory.Builder, logf func(string)) (*inventory.Inventory, error) {
	if logf == nil {
		logf = func(string) {}
	}
	start := time.Now()

	status, err := client.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("probing foreman status: %w", err)
	}
	logf(fmt.Sprintf("Connected to Foreman %s (API v%d) at %s",
		status.Version, status.APIVersion, client.BaseURL()))

	snap, err := foreman.FetchSnapshot(ctx, client, logf)
	if err != nil {
		return nil, err
	}

	inv := builder.Build(snap)
	logf(fmt.Sprintf("Built %d groups for %d hosts in %s",
		len(inv.Groups), len(inv.Hostvars), time.Since(start).Round(time.Millisecond)))
	return inv, nil
}

// RunAndSave runs a refresh and writes the result to the cache store. A
// failed cache write is logged and swallowed: the fresh inventory is still
// good, the next run just refetches.
func RunAndSave(ctx context.Context, client *foreman.Client, builder *inventory.Builder, store *cache.Store, logf func(string)) (*inventory.Inventory, error) {
	inv, err := Run(ctx, client, builder, logf)
	if err != nil {
		return nil, err
	}
	if err := store.Save(inv); err != nil {
		log.Warn().Err(err).Str("path", store.Path()).Msg("saving inventory cache")
	}
	return inv, nil
}
