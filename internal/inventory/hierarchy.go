package inventory

import (
	"fmt"
	"strings"

	"github.com/rflorenc/foreman-inventory/internal/models"
)

// Group types used for fixed membership groups.
const (
	GroupTypeHostgroup    = "hostgroup"
	GroupTypeLocation     = "location"
	GroupTypeOrganization = "organization"
)

const groupPrefix = "foreman_"

// SplitTitle breaks a nested title like "infra/web/frontend" into its
// segments. Titles that are empty after trimming, or that contain empty
// segments ("a//b", "/a", "a/"), are malformed.
func SplitTitle(title string) ([]string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("empty title")
	}
	segments := strings.Split(title, "/")
	for _, seg := range segments {
		if seg == "" {
			return nil, fmt.Errorf("title %q has an empty segment", title)
		}
	}
	return segments, nil
}

// GroupName builds the fixed group name for a title, e.g.
// GroupName(GroupTypeHostgroup, "Infra/Web") == "foreman_hostgroup_infra_web".
func GroupName(groupType, title string) (string, error) {
	segments, err := SplitTitle(title)
	if err != nil {
		return "", err
	}
	return groupNameFromSegments(groupType, segments), nil
}

// ResolveParams merges hostgroup parameters along the title's ancestor
// chain, root first, so deeper levels override their ancestors. Prefixes
// with no matching hostgroup contribute nothing; a partial snapshot never
// fails resolution. The result is a fresh map, never an alias of an input.
func ResolveParams(title string, groups map[string]models.Params) (models.Params, error) {
	segments, err := SplitTitle(title)
	if err != nil {
		return nil, err
	}
	return resolveSegments(segments, groups), nil
}

// groupNameFromSegments joins already-validated segments into a group name,
// sanitizing each segment on its own.
func groupNameFromSegments(groupType string, segments []string) string {
	parts := make([]string, len(segments))
	for i, seg := range segments {
		parts[i] = Sanitize(seg)
	}
	return groupPrefix + groupType + "_" + strings.Join(parts, "_")
}

func resolveSegments(segments []string, groups map[string]models.Params) models.Params {
	params := make(models.Params)
	for i := range segments {
		prefix := strings.Join(segments[:i+1], "/")
		for k, v := range groups[prefix] {
			params[k] = v
		}
	}
	return params
}
