package model

import "time"

// Tag is a canonical tag record. The normalized string value is the key;
// there is no separate numeric ID.
type Tag struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
