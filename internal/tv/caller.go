package tv

import (
	"fmt"
	"sort"
	"strings"
)

// Permission is a coarse capability granted to a caller by an external authority.
type Permission uint8

const (
	// PermAllEPGData grants unrestricted access to every package's listings.
	PermAllEPGData Permission = 1 << iota
	// PermReadTVListings lets a caller read rows of other packages that are searchable.
	PermReadTVListings
	// PermWatchedPrograms grants access to the watch history.
	PermWatchedPrograms
	// PermModifyParentalControls allows writing the channel locked flag.
	PermModifyParentalControls
)

var permissionNames = map[Permission]string{
	PermAllEPGData:             "all-epg-data",
	PermReadTVListings:         "read-tv-listings",
	PermWatchedPrograms:        "watched-programs",
	PermModifyParentalControls: "modify-parental-controls",
}

// ParsePermission maps a permission name such as "all-epg-data" to its flag.
func ParsePermission(name string) (Permission, error) {
	for p, n := range permissionNames {
		if n == strings.TrimSpace(name) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown permission: %q", name)
}

// ParsePermissions combines a list of permission names into one set.
func ParsePermissions(names []string) (Permission, error) {
	var set Permission
	for _, name := range names {
		p, err := ParsePermission(name)
		if err != nil {
			return 0, err
		}
		set |= p
	}
	return set, nil
}

func (p Permission) String() string {
	var names []string
	for flag, name := range permissionNames {
		if p&flag != 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// Caller identifies the package issuing a request and what it was granted.
// Callers are supplied by the surrounding security layer and never derived here.
type Caller struct {
	Package     string
	Permissions Permission
}

// NewCaller creates a Caller for pkg holding the given permissions.
func NewCaller(pkg string, perms ...Permission) Caller {
	c := Caller{Package: pkg}
	for _, p := range perms {
		c.Permissions |= p
	}
	return c
}

// Has reports whether every flag in p was granted.
func (c Caller) Has(p Permission) bool {
	return c.Permissions&p == p
}

func (c Caller) String() string {
	if c.Permissions == 0 {
		return c.Package
	}
	return c.Package + "[" + c.Permissions.String() + "]"
}
