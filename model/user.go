package model

import "time"

// User is an authenticated team member. Only the identity (id/email) is
// consumed by the data layer; profile fields exist for the account screens.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
