package models

import "time"

// Collection groups posts under one name. CoverURL is an asset reference or
// empty.
type Collection struct {
	ID          string
	OwnerID     string
	Name        string
	Description string
	Visibility  Visibility
	CoverURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
