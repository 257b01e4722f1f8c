package inventory

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sort"
	"testing"

	"github.com/rflorenc/foreman-inventory/internal/models"
)

func compilePatterns(t *testing.T, raw ...string) []Pattern {
	t.Helper()
	patterns := make([]Pattern, 0, len(raw))
	for _, r := range raw {
		p, err := CompilePattern(r)
		if err != nil {
			t.Fatalf("CompilePattern(%q) returned error: %v", r, err)
		}
		patterns = append(patterns, p)
	}
	return patterns
}

func demoSnapshot() *models.Snapshot {
	return &models.Snapshot{
		Hosts: []models.Host{
			{
				Name:            "h1.example.com",
				HostgroupTitle:  "myapp/webtier/datacenter1",
				SubnetName:      "mysubnet",
				ProvisionMethod: "image",
				Attributes:      map[string]interface{}{"name": "h1.example.com", "ip": "10.0.0.1"},
			},
		},
		Hostgroups: []models.Hostgroup{
			{ID: 1, Name: "myapp", Title: "myapp", Parameters: models.Params{"app_param": "myapp"}},
			{ID: 2, Name: "webtier", Title: "myapp/webtier", Parameters: models.Params{"tier_param": "webtier"}},
			{ID: 3, Name: "datacenter1", Title: "myapp/webtier/datacenter1", Parameters: models.Params{"dc_param": "datacenter1"}},
		},
	}
}

// derivedGroups returns the groups a host is in, minus the fixed
// foreman_*-prefixed ones and the ungrouped bucket.
func derivedGroups(inv *Inventory, host string) []string {
	var out []string
	for name, hosts := range inv.Groups {
		if name == UngroupedName || len(name) > 8 && name[:8] == groupPrefix {
			continue
		}
		for _, h := range hosts {
			if h == host {
				out = append(out, name)
			}
		}
	}
	sort.Strings(out)
	return out
}

func TestBuild_EndToEnd(t *testing.T) {
	b := &Builder{Patterns: compilePatterns(t,
		"{app_param}-{tier_param}-{dc_param}",
		"{app_param}-{tier_param}",
		"{app_param}",
		"{subnet_name}-{provision_method}",
	)}

	inv := b.Build(demoSnapshot())

	expectDerived := []string{"myapp", "myapp-webtier", "myapp-webtier-datacenter1", "mysubnet-image"}
	if got := derivedGroups(inv, "h1.example.com"); !reflect.DeepEqual(got, expectDerived) {
		t.Errorf("derived groups = %v, want %v", got, expectDerived)
	}

	fixed := inv.Groups["foreman_hostgroup_myapp_webtier_datacenter1"]
	if !reflect.DeepEqual(fixed, []string{"h1.example.com"}) {
		t.Errorf("fixed group hosts = %v, want [h1.example.com]", fixed)
	}

	// Membership propagates to every hierarchy level.
	for _, ancestor := range []string{"foreman_hostgroup_myapp", "foreman_hostgroup_myapp_webtier"} {
		if got := inv.Groups[ancestor]; !reflect.DeepEqual(got, []string{"h1.example.com"}) {
			t.Errorf("%s = %v, want [h1.example.com]", ancestor, got)
		}
	}

	vars, ok := inv.Hostvars["h1.example.com"]
	if !ok {
		t.Fatal("h1.example.com missing from hostvars")
	}
	expectParams := models.Params{"app_param": "myapp", "tier_param": "webtier", "dc_param": "datacenter1"}
	if !reflect.DeepEqual(vars.ForemanParams, expectParams) {
		t.Errorf("foreman_params = %v, want %v", vars.ForemanParams, expectParams)
	}
	if vars.Foreman["ip"] != "10.0.0.1" {
		t.Errorf("foreman vars = %v, want the raw host attributes", vars.Foreman)
	}

	if got := inv.Groups[UngroupedName]; len(got) != 0 {
		t.Errorf("ungrouped = %v, want empty", got)
	}
}

func TestBuild_NoHostgroup(t *testing.T) {
	b := &Builder{Patterns: compilePatterns(t, "{app_param}")}
	snap := &models.Snapshot{
		Hosts: []models.Host{{Name: "lonely.example.com"}},
	}

	inv := b.Build(snap)

	if got := inv.Groups[UngroupedName]; !reflect.DeepEqual(got, []string{"lonely.example.com"}) {
		t.Errorf("ungrouped = %v, want [lonely.example.com]", got)
	}
	for name, hosts := range inv.Groups {
		if name == UngroupedName {
			continue
		}
		for _, h := range hosts {
			if h == "lonely.example.com" {
				t.Errorf("host appears in %s, want only ungrouped", name)
			}
		}
	}

	vars := inv.Hostvars["lonely.example.com"]
	if len(vars.ForemanParams) != 0 {
		t.Errorf("foreman_params = %v, want empty", vars.ForemanParams)
	}
}

func TestBuild_MissingParamPattern(t *testing.T) {
	b := &Builder{Patterns: compilePatterns(t, "{missing_param}")}

	inv := b.Build(demoSnapshot())

	if got := derivedGroups(inv, "h1.example.com"); len(got) != 0 {
		t.Errorf("derived groups = %v, want none", got)
	}
	// The host still has its fixed membership; the run completed fine.
	if got := inv.Groups["foreman_hostgroup_myapp_webtier_datacenter1"]; len(got) != 1 {
		t.Errorf("fixed group = %v, want the host", got)
	}
}

func TestBuild_SkipLawIndependence(t *testing.T) {
	b := &Builder{Patterns: compilePatterns(t, "{missing_param}", "{app_param}")}

	inv := b.Build(demoSnapshot())

	if got := derivedGroups(inv, "h1.example.com"); !reflect.DeepEqual(got, []string{"myapp"}) {
		t.Errorf("derived groups = %v, want [myapp] (other patterns unaffected)", got)
	}
}

func TestBuild_MalformedTitle(t *testing.T) {
	snap := &models.Snapshot{
		Hosts: []models.Host{
			{Name: "broken.example.com", HostgroupTitle: "a//b"},
			{Name: "fine.example.com", HostgroupTitle: "a"},
		},
		Hostgroups: []models.Hostgroup{{ID: 1, Name: "a", Title: "a"}},
	}

	b := &Builder{}
	inv := b.Build(snap)

	if got := inv.Groups[UngroupedName]; !reflect.DeepEqual(got, []string{"broken.example.com"}) {
		t.Errorf("ungrouped = %v, want [broken.example.com]", got)
	}
	if _, ok := inv.Hostvars["broken.example.com"]; !ok {
		t.Error("host with malformed title dropped from hostvars")
	}
	if got := inv.Groups["foreman_hostgroup_a"]; !reflect.DeepEqual(got, []string{"fine.example.com"}) {
		t.Errorf("foreman_hostgroup_a = %v, want [fine.example.com]", got)
	}
}

func TestBuild_LocationAndOrganization(t *testing.T) {
	snap := &models.Snapshot{
		Hosts: []models.Host{
			{
				Name:              "h.example.com",
				LocationTitle:     "Europe/Berlin",
				OrganizationTitle: "ACME",
			},
		},
		Locations:     []models.Location{{ID: 1, Name: "Berlin", Title: "Europe/Berlin"}},
		Organizations: []models.Organization{{ID: 1, Name: "ACME", Title: "ACME"}},
	}

	b := &Builder{}
	inv := b.Build(snap)

	if got := inv.Groups["foreman_location_europe_berlin"]; !reflect.DeepEqual(got, []string{"h.example.com"}) {
		t.Errorf("location group = %v, want [h.example.com]", got)
	}
	if got := inv.Groups["foreman_organization_acme"]; !reflect.DeepEqual(got, []string{"h.example.com"}) {
		t.Errorf("organization group = %v, want [h.example.com]", got)
	}
	if got := inv.Groups[UngroupedName]; len(got) != 0 {
		t.Errorf("ungrouped = %v, want empty (host has fixed groups)", got)
	}
}

func TestBuild_EmptyKnownGroupsPresent(t *testing.T) {
	snap := &models.Snapshot{
		Hostgroups:    []models.Hostgroup{{ID: 1, Name: "idle", Title: "idle"}},
		Locations:     []models.Location{{ID: 1, Name: "moon", Title: "moon"}},
		Organizations: []models.Organization{{ID: 1, Name: "acme", Title: "acme"}},
	}

	b := &Builder{}
	inv := b.Build(snap)

	for _, name := range []string{"foreman_hostgroup_idle", "foreman_location_moon", "foreman_organization_acme"} {
		hosts, ok := inv.Groups[name]
		if !ok {
			t.Errorf("group %s missing, want present and empty", name)
			continue
		}
		if len(hosts) != 0 {
			t.Errorf("group %s = %v, want empty", name, hosts)
		}
	}
}

func TestBuild_DuplicateDerivedSuppressed(t *testing.T) {
	b := &Builder{Patterns: compilePatterns(t, "{app_param}", "{app_param}")}

	inv := b.Build(demoSnapshot())

	if got := inv.Groups["myapp"]; !reflect.DeepEqual(got, []string{"h1.example.com"}) {
		t.Errorf("myapp = %v, want the host exactly once", got)
	}
}

func TestBuild_HostParamsStrongest(t *testing.T) {
	snap := demoSnapshot()
	snap.Hosts[0].Parameters = models.Params{"dc_param": "override", "own": "yes"}

	b := &Builder{Patterns: compilePatterns(t, "{dc_param}", "{own}")}
	inv := b.Build(snap)

	vars := inv.Hostvars["h1.example.com"]
	if vars.ForemanParams["dc_param"] != "override" {
		t.Errorf("foreman_params[dc_param] = %v, want override (host wins)", vars.ForemanParams["dc_param"])
	}
	if got := derivedGroups(inv, "h1.example.com"); !reflect.DeepEqual(got, []string{"override", "yes"}) {
		t.Errorf("derived groups = %v, want [override yes]", got)
	}
}

func TestBuild_AttributesNotInParams(t *testing.T) {
	b := &Builder{Patterns: compilePatterns(t, "{subnet_name}-{provision_method}")}
	inv := b.Build(demoSnapshot())

	vars := inv.Hostvars["h1.example.com"]
	if _, ok := vars.ForemanParams["subnet_name"]; ok {
		t.Error("subnet_name leaked into foreman_params")
	}
	if got := derivedGroups(inv, "h1.example.com"); !reflect.DeepEqual(got, []string{"mysubnet-image"}) {
		t.Errorf("derived groups = %v, want [mysubnet-image]", got)
	}
}

func TestBuild_MetaCollisionSkipped(t *testing.T) {
	b := &Builder{Patterns: compilePatterns(t, "_meta")}
	inv := b.Build(demoSnapshot())

	if _, ok := inv.Groups["_meta"]; ok {
		t.Error("a pattern produced a _meta group, want it skipped")
	}
}

func TestBuild_Deterministic(t *testing.T) {
	snap := &models.Snapshot{}
	for i := 0; i < 40; i++ {
		name := string(rune('a'+i%26)) + "-host.example.com"
		snap.Hosts = append(snap.Hosts, models.Host{
			Name:           name + string(rune('0'+i/26)),
			HostgroupTitle: "myapp/webtier",
			SubnetName:     "net1",
		})
	}
	snap.Hostgroups = []models.Hostgroup{
		{ID: 1, Name: "myapp", Title: "myapp", Parameters: models.Params{"app_param": "myapp"}},
		{ID: 2, Name: "webtier", Title: "myapp/webtier", Parameters: models.Params{"tier_param": "webtier"}},
	}

	b := &Builder{Workers: 8, Patterns: compilePatterns(t, "{app_param}-{tier_param}")}

	first, err := json.Marshal(b.Build(snap))
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	second, err := json.Marshal(b.Build(snap))
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("two builds of the same snapshot serialized differently")
	}
}

func TestBuild_EmptySnapshot(t *testing.T) {
	b := &Builder{}
	inv := b.Build(&models.Snapshot{})

	if len(inv.Hostvars) != 0 {
		t.Errorf("hostvars = %v, want empty", inv.Hostvars)
	}
	if got, ok := inv.Groups[UngroupedName]; !ok || len(got) != 0 {
		t.Errorf("ungrouped = %v (present=%v), want present and empty", got, ok)
	}
}
