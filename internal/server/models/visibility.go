// Package models defines server-side data models persisted in the database.
package models

import "strings"

// Visibility is the per-entity access policy of posts and collections.
type Visibility string

const (
	VisibilityPublic    Visibility = "PUBLIC"
	VisibilityPrivate   Visibility = "PRIVATE"
	VisibilityFollowers Visibility = "FOLLOWERS"
)

// ParseVisibility accepts the flag case-insensitively. An empty string means
// PUBLIC.
func ParseVisibility(s string) (Visibility, bool) {
	if s == "" {
		return VisibilityPublic, true
	}
	v := Visibility(strings.ToUpper(strings.TrimSpace(s)))
	return v, v.Valid()
}

func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityPrivate, VisibilityFollowers:
		return true
	}
	return false
}
