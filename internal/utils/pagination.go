// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import "strconv"

// AtoiDefault converts a string to an int using strconv.Atoi, falling back to
// def when the string is empty or not a valid integer. It is used to parse
// optional query parameters such as the analytics list's page and limit,
// where a missing or garbled value should silently take the default rather
// than fail the request. Range clamping is the caller's job.
//
// Example:
//
//	page := utils.AtoiDefault(c.Query("page"), 1)
//	limit := utils.AtoiDefault(c.Query("limit"), 10)
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}
