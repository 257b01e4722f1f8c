package foreman

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/rflorenc/foreman-inventory/internal/models"
)

// FetchSnapshot pulls the four record collections concurrently. The first
// error fails the whole fetch; logf (optional) receives one progress line
// per collection, serialized so callers can pass a plain closure. Servers
// without taxonomies answer 404 for locations and organizations, which
// counts as an empty collection, not a failure.
func FetchSnapshot(ctx context.Context, c *Client, logf func(string)) (*models.Snapshot, error) {
	progress := func(string) {}
	if logf != nil {
		var mu sync.Mutex
		progress = func(line string) {
			mu.Lock()
			defer mu.Unlock()
			logf(line)
		}
	}

	snap := &models.Snapshot{}
	errs := make(chan error, 4)
	var wg sync.WaitGroup

	wg.Add(4)
	go func() {
		defer wg.Done()
		hosts, err := c.Hosts(ctx)
		if err != nil {
			errs <- fmt.Errorf("fetching hosts: %w", err)
			return
		}
		snap.Hosts = hosts
		progress(fmt.Sprintf("Fetched %d hosts", len(hosts)))
	}()
	go func() {
		defer wg.Done()
		groups, err := c.Hostgroups(ctx)
		if err != nil {
			errs <- fmt.Errorf("fetching hostgroups: %w", err)
			return
		}
		snap.Hostgroups = groups
		progress(fmt.Sprintf("Fetched %d hostgroups", len(groups)))
	}()
	go func() {
		defer wg.Done()
		locations, err := c.Locations(ctx)
		if err != nil {
			if notFound(err) {
				progress("Locations endpoint not available, skipping")
				return
			}
			errs <- fmt.Errorf("fetching locations: %w", err)
			return
		}
		snap.Locations = locations
		progress(fmt.Sprintf("Fetched %d locations", len(locations)))
	}()
	go func() {
		defer wg.Done()
		orgs, err := c.Organizations(ctx)
		if err != nil {
			if notFound(err) {
				progress("Organizations endpoint not available, skipping")
				return
			}
			errs <- fmt.Errorf("fetching organizations: %w", err)
			return
		}
		snap.Organizations = orgs
		progress(fmt.Sprintf("Fetched %d organizations", len(orgs)))
	}()

	wg.Wait()
	close(errs)
	if err := <-errs; err != nil {
		return nil, err
	}
	return snap, nil
}

func notFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}
