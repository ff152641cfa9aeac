package models

import "time"

// Participant owns one availability sheet on the weekly grid
type Participant struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Disabled  bool       `json:"disabled"` // read-only sheet: mark/unmark are ignored
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// IsDeleted reports whether the participant has been soft-deleted
func (p Participant) IsDeleted() bool {
	return p.DeletedAt != nil
}
