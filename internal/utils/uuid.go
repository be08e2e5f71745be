// Package utils provides small shared helpers used across modules.
package utils

import (
	"github.com/google/uuid"
)

// GenerateUUID generates a new UUID v4 string.
// UUID v4 uses random data and is the most common UUID type for general use.
func GenerateUUID() string {
	return uuid.New().String()
}

// IsValidUUID checks if a string is a valid UUID.
// Returns true if the string can be parsed as any valid UUID format
// (with or without hyphens).
func IsValidUUID(uuidStr string) bool {
	_, err := uuid.Parse(uuidStr)
	return err == nil
}

// GenerateShortUUID generates a shorter UUID (first 8 characters).
// WARNING: This has higher collision probability, only use for non-critical IDs
// such as temporary identifiers, UI elements, or logging correlation IDs.
func GenerateShortUUID() string {
	return uuid.New().String()[:8]
}
