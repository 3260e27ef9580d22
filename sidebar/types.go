package sidebar

import (
	"slices"
	"time"

	"github.com/jrsteele09/go-estate-client/users"
)

// UngroupedID is the bucket for items with no group, or whose group no
// longer exists.
const UngroupedID = "ungrouped"

type MenuItem struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Href     string           `json:"href"`
	Icon     string           `json:"icon,omitempty"`
	Order    int              `json:"order"`
	IsActive bool             `json:"isActive"`
	Roles    []users.RoleType `json:"roles,omitempty"`
	GroupID  string           `json:"groupId,omitempty"`
}

// AllowedFor reports whether role may see the item. No roles means everyone.
func (m MenuItem) AllowedFor(role users.RoleType) bool {
	return len(m.Roles) == 0 || slices.Contains(m.Roles, role)
}

type Group struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Icon         string           `json:"icon,omitempty"`
	Order        int              `json:"order"`
	IsVisible    bool             `json:"isVisible"`
	AllowedRoles []users.RoleType `json:"allowedRoles,omitempty"`
}

func (g Group) AllowedFor(role users.RoleType) bool {
	return len(g.AllowedRoles) == 0 || slices.Contains(g.AllowedRoles, role)
}

// Config is the single sidebar document. Version increases on every write and
// is checked by the backend to reject stale writes.
type Config struct {
	ID        string     `json:"id"`
	Items     []MenuItem `json:"items"`
	Groups    []Group    `json:"groups"`
	Version   int        `json:"version"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := *c
	out.Items = make([]MenuItem, len(c.Items))
	for i, item := range c.Items {
		item.Roles = slices.Clone(item.Roles)
		out.Items[i] = item
	}
	out.Groups = make([]Group, len(c.Groups))
	for i, g := range c.Groups {
		g.AllowedRoles = slices.Clone(g.AllowedRoles)
		out.Groups[i] = g
	}
	if c.UpdatedAt != nil {
		t := *c.UpdatedAt
		out.UpdatedAt = &t
	}
	return &out
}

// ConfigPatch is a whole-config write. A nil slice keeps the current value;
// the store always sends both arrays in full.
type ConfigPatch struct {
	Items   []MenuItem `json:"items"`
	Groups  []Group    `json:"groups"`
	Version int        `json:"version"`
}

type ItemUpdate struct {
	Name     *string
	Href     *string
	Icon     *string
	IsActive *bool
	Roles    []users.RoleType
	GroupID  *string
}

func (u ItemUpdate) apply(item *MenuItem) {
	if u.Name != nil {
		item.Name = *u.Name
	}
	if u.Href != nil {
		item.Href = *u.Href
	}
	if u.Icon != nil {
		item.Icon = *u.Icon
	}
	if u.IsActive != nil {
		item.IsActive = *u.IsActive
	}
	if u.Roles != nil {
		item.Roles = slices.Clone(u.Roles)
	}
	if u.GroupID != nil {
		item.GroupID = *u.GroupID
	}
}

type GroupUpdate struct {
	Title        *string
	Icon         *string
	IsVisible    *bool
	AllowedRoles []users.RoleType
}

func (u GroupUpdate) apply(g *Group) {
	if u.Title != nil {
		g.Title = *u.Title
	}
	if u.Icon != nil {
		g.Icon = *u.Icon
	}
	if u.IsVisible != nil {
		g.IsVisible = *u.IsVisible
	}
	if u.AllowedRoles != nil {
		g.AllowedRoles = slices.Clone(u.AllowedRoles)
	}
}

// Section is a group with the items visible in it. Group is nil for the
// ungrouped bucket.
type Section struct {
	Group *Group
	Items []MenuItem
}

// NormalizeItems sorts items by Order and renumbers them densely from 0.
func NormalizeItems(items []MenuItem) []MenuItem {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b MenuItem) int { return a.Order - b.Order })
	for i := range out {
		out[i].Order = i
	}
	return out
}

// NormalizeGroups sorts groups by Order and renumbers them densely from 0.
func NormalizeGroups(groups []Group) []Group {
	out := slices.Clone(groups)
	slices.SortStableFunc(out, func(a, b Group) int { return a.Order - b.Order })
	for i := range out {
		out[i].Order = i
	}
	return out
}
