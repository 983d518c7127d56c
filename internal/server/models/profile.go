package models

import "time"

// Profile is a user as seen by other users. AvatarURL is an asset reference
// or empty.
type Profile struct {
	ID          string
	UserName    string
	DisplayName string
	Bio         string
	AvatarURL   string
	CreatedAt   time.Time
}

// ProfileStats are the follow-graph and content counters shown on a profile.
type ProfileStats struct {
	Followers int
	Following int
}
