package models

import (
	"encoding/json"

	"github.com/spf13/cast"
)

// Params holds parameter name/value pairs. Values keep the scalar type
// Foreman returned (string, number or bool).
type Params map[string]interface{}

// Host is one record from /api/v2/hosts. Attributes keeps the record exactly
// as returned; it becomes the host's "foreman" variable bag.
type Host struct {
	ID                int
	Name              string
	HostgroupTitle    string
	LocationTitle     string
	OrganizationTitle string
	SubnetName        string
	ProvisionMethod   string
	ImageName         string
	Parameters        Params
	Attributes        map[string]interface{}
}

// UnmarshalJSON decodes the raw record and lifts the fields the inventory
// build needs. Title fields fall back to the plain *_name variants returned
// by older Foreman versions.
func (h *Host) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	h.Attributes = raw
	h.ID = cast.ToInt(raw["id"])
	h.Name = cast.ToString(raw["name"])
	h.HostgroupTitle = titleField(raw, "hostgroup")
	h.LocationTitle = titleField(raw, "location")
	h.OrganizationTitle = titleField(raw, "organization")
	h.SubnetName = cast.ToString(raw["subnet_name"])
	h.ProvisionMethod = cast.ToString(raw["provision_method"])
	h.ImageName = cast.ToString(raw["image_name"])
	h.Parameters = paramList(raw["parameters"])
	return nil
}

// Hostgroup is one record from /api/v2/hostgroups. Title carries the full
// nesting path ("infra/web/frontend"); Name is only the leaf segment.
type Hostgroup struct {
	ID         int
	Name       string
	Title      string
	Parameters Params
}

func (g *Hostgroup) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	g.ID = cast.ToInt(raw["id"])
	g.Name = cast.ToString(raw["name"])
	g.Title = cast.ToString(raw["title"])
	if g.Title == "" {
		g.Title = g.Name
	}
	g.Parameters = paramList(raw["parameters"])
	return nil
}

// Location is a taxonomy record. Nested locations carry their path in
// Title, like hostgroups do.
type Location struct {
	ID    int
	Name  string
	Title string
}

func (l *Location) UnmarshalJSON(data []byte) error {
	id, name, title, err := taxonomyFields(data)
	if err != nil {
		return err
	}
	l.ID, l.Name, l.Title = id, name, title
	return nil
}

// Organization is a taxonomy record.
type Organization struct {
	ID    int
	Name  string
	Title string
}

func (o *Organization) UnmarshalJSON(data []byte) error {
	id, name, title, err := taxonomyFields(data)
	if err != nil {
		return err
	}
	o.ID, o.Name, o.Title = id, name, title
	return nil
}

// Snapshot is one complete read of the Foreman data an inventory build needs.
type Snapshot struct {
	Hosts         []Host
	Hostgroups    []Hostgroup
	Locations     []Location
	Organizations []Organization
}

// titleField prefers the hierarchical <kind>_title over <kind>_name.
func titleField(raw map[string]interface{}, kind string) string {
	if v := cast.ToString(raw[kind+"_title"]); v != "" {
		return v
	}
	return cast.ToString(raw[kind+"_name"])
}

func taxonomyFields(data []byte) (int, string, string, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return 0, "", "", err
	}
	name := cast.ToString(raw["name"])
	title := cast.ToString(raw["title"])
	if title == "" {
		title = name
	}
	return cast.ToInt(raw["id"]), name, title, nil
}

// paramList converts a [{"name": ..., "value": ...}] array into a Params map.
// Entries without a name are dropped.
func paramList(v interface{}) Params {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	params := make(Params, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		name, ok := m["name"].(string)
		if !ok || name == "" {
			continue
		}
		params[name] = m["value"]
	}
	return params
}
