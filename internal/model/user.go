package model

import "time"

// LocalUser mirrors the `booking_users` table.  A local user is created
// lazily the first time an external identity books something; Email
// and DisplayName are copied from the directory at that moment and not
// refreshed afterwards.
//
// Fields:
//  ID          – store generated identifier (UUID).
//  ExternalID  – identifier issued by the user directory, unique.
//  Email       – cached email address.
//  DisplayName – cached display name.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type LocalUser struct {
	ID          string    `json:"id"`           // booking_users.id
	ExternalID  string    `json:"external_id"`  // booking_users.external_id
	Email       string    `json:"email"`        // booking_users.email
	DisplayName string    `json:"display_name"` // booking_users.display_name
	CreatedAt   time.Time `json:"created_at"`   // booking_users.created_at
	UpdatedAt   time.Time `json:"updated_at"`   // booking_users.updated_at
}

// Profile is the identity of a user as reported by the remote user
// directory.
type Profile struct {
	ExternalID  string `json:"external_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}
