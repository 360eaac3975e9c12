package domain

import "errors"

var (
	// ErrInvalidRangeFormat is returned when a string is not a usable CIDR block.
	ErrInvalidRangeFormat = errors.New("invalid range format")
	// ErrNoRangesConfigured is returned when a scan has no explicit ranges and no active ranges are stored.
	ErrNoRangesConfigured = errors.New("no CIDR ranges configured for scanning")
	// ErrInvalidArgument is returned when caller-supplied data fails validation.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound is returned by stores when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when creating a row whose unique key is taken.
	ErrAlreadyExists = errors.New("already exists")
	// ErrScanInProgress is returned when a scan is requested while another one is still running.
	ErrScanInProgress = errors.New("scan already in progress")
)
