package inventory

import (
	"encoding/json"
	"sort"

	"github.com/rflorenc/foreman-inventory/internal/models"
)

// UngroupedName is the bucket for hosts that end up in no other group.
const UngroupedName = "ungrouped"

// metaKey is the reserved envelope key carrying hostvars.
const metaKey = "_meta"

// HostVars is the per-host variable payload: the raw Foreman record under
// "foreman" and the resolved parameters under "foreman_params".
type HostVars struct {
	Foreman       map[string]interface{} `json:"foreman"`
	ForemanParams models.Params          `json:"foreman_params"`
}

// Inventory is a built result: group memberships plus per-host variables.
// It is immutable once Finalize has run, so a pointer can be shared freely.
type Inventory struct {
	Groups   map[string][]string
	Hostvars map[string]HostVars
}

// NewInventory returns an empty inventory with the ungrouped bucket present.
func NewInventory() *Inventory {
	return &Inventory{
		Groups:   map[string][]string{UngroupedName: {}},
		Hostvars: make(map[string]HostVars),
	}
}

// AddToGroup registers a host in a group, creating the group as needed.
func (inv *Inventory) AddToGroup(group, host string) {
	inv.Groups[group] = append(inv.Groups[group], host)
}

// EnsureGroup creates an empty group if it does not exist yet.
func (inv *Inventory) EnsureGroup(group string) {
	if _, ok := inv.Groups[group]; !ok {
		inv.Groups[group] = []string{}
	}
}

// Finalize sorts every group's host list so output is stable across runs.
func (inv *Inventory) Finalize() {
	for g := range inv.Groups {
		sort.Strings(inv.Groups[g])
	}
}

type groupEntry struct {
	Hosts []string `json:"hosts"`
}

type metaEntry struct {
	Hostvars map[string]HostVars `json:"hostvars"`
}

// MarshalJSON renders the dynamic-inventory envelope: every group as
// {"hosts": [...]} plus the _meta.hostvars block. encoding/json emits map
// keys sorted, which keeps the document deterministic.
func (inv *Inventory) MarshalJSON() ([]byte, error) {
	doc := make(map[string]interface{}, len(inv.Groups)+1)
	for name, hosts := range inv.Groups {
		doc[name] = groupEntry{Hosts: hosts}
	}
	doc[metaKey] = metaEntry{Hostvars: inv.Hostvars}
	return json.Marshal(doc)
}

// UnmarshalJSON reads the envelope back, the inverse of MarshalJSON. Used
// when loading the inventory cache.
func (inv *Inventory) UnmarshalJSON(data []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	inv.Groups = make(map[string][]string, len(doc))
	inv.Hostvars = make(map[string]HostVars)
	for name, raw := range doc {
		if name == metaKey {
			var meta metaEntry
			if err := json.Unmarshal(raw, &meta); err != nil {
				return err
			}
			if meta.Hostvars != nil {
				inv.Hostvars = meta.Hostvars
			}
			continue
		}
		var entry groupEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return err
		}
		if entry.Hosts == nil {
			entry.Hosts = []string{}
		}
		inv.Groups[name] = entry.Hosts
	}
	return nil
}
