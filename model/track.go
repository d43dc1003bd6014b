package model

import "time"

// Track represents a drag-racing venue. Tracks are owned by the creating
// user but visible to the whole team dataset once persisted.
type Track struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"userId"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"createdAt"`
}
