// Package fqn builds and splits fully-qualified names.
//
// A fully-qualified name (FQN) is the dot-joined path from a root container to
// an entity, e.g. "redshift.sales.orders" for a table inside database "sales"
// of service "redshift". The FQN is a pure function of an entity's position in
// its containment hierarchy; prepare hooks are the only writers.
package fqn

import "strings"

// Separator joins FQN segments.
const Separator = "."

// Build joins name segments into an FQN. Empty segments are skipped so callers
// can pass optional levels without special-casing.
func Build(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, Separator)
}

// Split breaks an FQN into its segments.
func Split(name string) []string {
	if name == "" {
		return nil
	}
	return strings.Split(name, Separator)
}

// Parent returns the FQN with the last segment removed, or "" for a root name.
func Parent(name string) string {
	idx := strings.LastIndex(name, Separator)
	if idx < 0 {
		return ""
	}
	return name[:idx]
}

// Leaf returns the last segment of an FQN.
func Leaf(name string) string {
	idx := strings.LastIndex(name, Separator)
	if idx < 0 {
		return name
	}
	return name[idx+1:]
}

// IsDescendant reports whether name sits strictly below prefix in the
// hierarchy. "svc.db" is a descendant of "svc" but not of "sv".
func IsDescendant(name, prefix string) bool {
	return prefix != "" && strings.HasPrefix(name, prefix+Separator)
}
