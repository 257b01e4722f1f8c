package inventory

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/rflorenc/foreman-inventory/internal/models"
)

func sampleInventory() *Inventory {
	inv := NewInventory()
	inv.AddToGroup("foreman_hostgroup_web", "b.example.com")
	inv.AddToGroup("foreman_hostgroup_web", "a.example.com")
	inv.Hostvars["a.example.com"] = HostVars{
		Foreman:       map[string]interface{}{"ip": "10.0.0.1"},
		ForemanParams: models.Params{"tier": "web"},
	}
	inv.Hostvars["b.example.com"] = HostVars{
		Foreman:       map[string]interface{}{"ip": "10.0.0.2"},
		ForemanParams: models.Params{},
	}
	inv.Finalize()
	return inv
}

func TestInventory_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(sampleInventory())
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Unmarshal of envelope returned error: %v", err)
	}

	meta, ok := doc["_meta"].(map[string]interface{})
	if !ok {
		t.Fatal("envelope has no _meta object")
	}
	hostvars, ok := meta["hostvars"].(map[string]interface{})
	if !ok || len(hostvars) != 2 {
		t.Fatalf("hostvars = %v, want two hosts", meta["hostvars"])
	}

	group, ok := doc["foreman_hostgroup_web"].(map[string]interface{})
	if !ok {
		t.Fatal("envelope has no foreman_hostgroup_web group")
	}
	hosts, _ := group["hosts"].([]interface{})
	if len(hosts) != 2 || hosts[0] != "a.example.com" {
		t.Errorf("hosts = %v, want sorted [a.example.com b.example.com]", hosts)
	}

	// Empty groups serialize as [], not null.
	if !strings.Contains(string(data), `"ungrouped":{"hosts":[]}`) {
		t.Errorf("envelope %s does not carry an empty ungrouped list", data)
	}
}

func TestInventory_RoundTrip(t *testing.T) {
	orig := sampleInventory()
	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}

	var loaded Inventory
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}

	if !reflect.DeepEqual(loaded.Groups, orig.Groups) {
		t.Errorf("Groups after round trip = %v, want %v", loaded.Groups, orig.Groups)
	}
	if got := loaded.Hostvars["a.example.com"].ForemanParams["tier"]; got != "web" {
		t.Errorf("hostvars lost in round trip, tier = %v", got)
	}
}

func TestInventory_UnmarshalJSON_Empty(t *testing.T) {
	var inv Inventory
	if err := json.Unmarshal([]byte(`{}`), &inv); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if inv.Hostvars == nil {
		t.Error("Hostvars = nil, want initialized map")
	}
	if len(inv.Groups) != 0 {
		t.Errorf("Groups = %v, want empty", inv.Groups)
	}
}

func TestInventory_MarshalDeterminism(t *testing.T) {
	inv := sampleInventory()
	first, err := json.Marshal(inv)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	second, err := json.Marshal(inv)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	if string(first) != string(second) {
		t.Error("marshaling the same inventory twice produced different bytes")
	}
}
