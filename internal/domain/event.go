package domain

import "time"

// Event is the owning entity for event imagery. Only the fields the job
// subsystem needs exist here; the full event schema lives with the dashboard
// CRUD layer.
type Event struct {
	ID          string     `gorm:"type:text;primaryKey" json:"id"`
	Title       string     `gorm:"type:text;not null" json:"title"`
	Description string     `json:"description,omitempty"`
	StartsAt    *time.Time `json:"starts_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Event.
func (Event) TableName() string {
	return "events"
}
