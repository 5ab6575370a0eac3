// Package utils provides shared utility functions used across the application.
//
// Go Learning Note — "pkg/" Directory Convention:
// Code under pkg/ is intended to be importable by external projects (unlike
// internal/ which is compiler-enforced private). This is a community convention,
// not a Go language feature.
package utils

import (
	"github.com/google/uuid"
)

// GenerateID creates a random (v4) UUID string for riders, drivers and rides.
func GenerateID() string {
	return uuid.NewString()
}

// GenerateSortableID creates a time-ordered (v7) UUID. Token ids use it so
// that issued tokens sort by issue time in logs. It falls back to a v4 UUID
// if the clock-based generator fails.
//
// Go Learning Note — UUID versions:
// v4 is 122 random bits. v7 puts a millisecond timestamp in the leading bits,
// so lexical order follows creation order, which keeps database indexes and
// log greps tidy.
func GenerateSortableID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// IsID reports whether s parses as a UUID of any version.
func IsID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
