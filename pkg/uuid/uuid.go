package uuid

import (
	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

// NewUUID returns a random v4 uuid used as a row id.
func NewUUID() string {
	return uuid.New().String()
}

// IsValid reports whether s parses as a uuid.
func IsValid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// NewKSUID returns a time-sortable id for short lived things (subscriptions, job runs).
func NewKSUID() string {
	return ksuid.New().String()
}
