package models

import (
	"time"
)

type Base struct {
	ID        string `json:"id,omitempty"`
	CreatedAt int64  `json:"created_at,omitempty"`
	UpdatedAt int64  `json:"updated_at,omitempty"`
}

// Age is how long ago the record was created, relative to now.
func (b *Base) Age(now time.Time) time.Duration {
	return now.Sub(time.Unix(b.CreatedAt, 0))
}
