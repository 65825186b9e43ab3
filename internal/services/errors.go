// Package services defines the business logic for code generation, scan
// recording, selection storage, and region analytics. This file centralizes
// common service-level error values so that they can be consistently returned
// by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import "errors"

var (
	// ErrEmptyName is returned when a code-creation request has no name.
	ErrEmptyName = errors.New("qrName is required")

	// ErrQRNotFound indicates that the requested code does not exist.
	ErrQRNotFound = errors.New("qr code not found")

	// ErrSelectionNotFound indicates that no selection has been stored for
	// the requested (device, code) pair.
	ErrSelectionNotFound = errors.New("no selection found for this device and qr")

	// ErrMissingSelectionFields is returned when a selection-store request
	// omits the code identifier or the selection label.
	ErrMissingSelectionFields = errors.New("qrId and selection are required")

	// ErrInvalidRegion is returned when a category name falls outside the
	// fixed region set. The aggregator fails hard on it; counters are left
	// untouched.
	ErrInvalidRegion = errors.New("invalid region name: valid regions are hurry, mindfully, distracted")

	// ErrIDExhausted is returned when repeated identifier collisions prevent
	// allocating a unique short code id.
	ErrIDExhausted = errors.New("could not allocate a unique qr id")
)
