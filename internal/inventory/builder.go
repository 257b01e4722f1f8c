package inventory

import (
	"runtime"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/rflorenc/foreman-inventory/internal/models"
)

// Builder derives an Inventory from a Foreman snapshot. Patterns must be
// compiled already; an empty pattern list is fine. The zero value works.
type Builder struct {
	Patterns []Pattern
	Workers  int // defaults to NumCPU
}

// hostResult carries one worker's output for one host to the collector.
type hostResult struct {
	name   string
	groups []string
	vars   HostVars
}

// Build walks every host and assembles group memberships and hostvars.
// Hosts are processed by a worker pool; the shared maps are written only by
// the collecting loop, so no locks are needed, and the sorted output is
// identical regardless of worker interleaving. Per-host problems degrade to
// warnings, a host is never dropped.
func (b *Builder) Build(snap *models.Snapshot) *Inventory {
	paramIndex := make(map[string]models.Params, len(snap.Hostgroups))
	for _, hg := range snap.Hostgroups {
		paramIndex[hg.Title] = hg.Parameters
	}

	inv := NewInventory()

	// Known hostgroups, locations and organizations get a group even when
	// no host is in them, so consumers see the full topology.
	for _, hg := range snap.Hostgroups {
		if name, err := GroupName(GroupTypeHostgroup, hg.Title); err == nil {
			inv.EnsureGroup(name)
		}
	}
	for _, loc := range snap.Locations {
		if name, err := GroupName(GroupTypeLocation, loc.Title); err == nil {
			inv.EnsureGroup(name)
		}
	}
	for _, org := range snap.Organizations {
		if name, err := GroupName(GroupTypeOrganization, org.Title); err == nil {
			inv.EnsureGroup(name)
		}
	}

	workers := b.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(snap.Hosts) {
		workers = len(snap.Hosts)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan models.Host)
	results := make(chan hostResult, len(snap.Hosts))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for host := range jobs {
				results <- b.buildHost(host, paramIndex)
			}
		}()
	}

	go func() {
		for _, host := range snap.Hosts {
			jobs <- host
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		inv.Hostvars[res.name] = res.vars
		if len(res.groups) == 0 {
			inv.AddToGroup(UngroupedName, res.name)
			continue
		}
		for _, g := range res.groups {
			inv.AddToGroup(g, res.name)
		}
	}

	inv.Finalize()
	return inv
}

// buildHost derives one host's groups and variables. Reads only the shared
// immutable paramIndex, so it is safe to run from any worker.
func (b *Builder) buildHost(host models.Host, paramIndex map[string]models.Params) hostResult {
	res := hostResult{name: host.Name}
	seen := make(map[string]bool)
	add := func(group string) {
		if group == metaKey {
			log.Warn().Str("host", host.Name).
				Msg("skipping group that would collide with the _meta key")
			return
		}
		if !seen[group] {
			seen[group] = true
			res.groups = append(res.groups, group)
		}
	}

	params := make(models.Params)

	if host.HostgroupTitle != "" {
		segments, err := SplitTitle(host.HostgroupTitle)
		if err != nil {
			log.Warn().Str("host", host.Name).Str("title", host.HostgroupTitle).
				Msg("skipping malformed hostgroup title")
		} else {
			// Membership in every level of the hierarchy, root included.
			for i := range segments {
				add(groupNameFromSegments(GroupTypeHostgroup, segments[:i+1]))
			}
			for k, v := range resolveSegments(segments, paramIndex) {
				params[k] = v
			}
		}
	}

	if host.LocationTitle != "" {
		if name, err := GroupName(GroupTypeLocation, host.LocationTitle); err != nil {
			log.Warn().Str("host", host.Name).Str("title", host.LocationTitle).
				Msg("skipping malformed location title")
		} else {
			add(name)
		}
	}
	if host.OrganizationTitle != "" {
		if name, err := GroupName(GroupTypeOrganization, host.OrganizationTitle); err != nil {
			log.Warn().Str("host", host.Name).Str("title", host.OrganizationTitle).
				Msg("skipping malformed organization title")
		} else {
			add(name)
		}
	}

	// Host-level parameters are the strongest.
	for k, v := range host.Parameters {
		params[k] = v
	}

	// Pattern expansion also sees a few host attributes, so patterns like
	// "{subnet_name}-{provision_method}" work without hostgroup parameters.
	// The attributes stay out of foreman_params.
	expandParams := make(models.Params, len(params)+3)
	for k, v := range params {
		expandParams[k] = v
	}
	for k, v := range map[string]string{
		"subnet_name":      host.SubnetName,
		"provision_method": host.ProvisionMethod,
		"image_name":       host.ImageName,
	} {
		if v != "" {
			expandParams[k] = v
		}
	}

	for _, p := range b.Patterns {
		if group, ok := p.Expand(expandParams); ok {
			add(group)
		}
	}

	res.vars = HostVars{Foreman: host.Attributes, ForemanParams: params}
	return res
}
