package models

import "time"

// Follow is a directed edge FollowerID -> FollowingID.
type Follow struct {
	FollowerID  string
	FollowingID string
	CreatedAt   time.Time
}

type Comment struct {
	ID        string
	PostID    string
	AuthorID  string
	Body      string
	CreatedAt time.Time
}
