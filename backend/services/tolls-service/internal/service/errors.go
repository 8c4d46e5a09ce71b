package service

import "errors"

// Validation failures. Handlers map them to 4xx responses with the error text as message.
var (
	ErrStationNotFound     = errors.New("Station not found")
	ErrMissingBody         = errors.New("Missing request body")
	ErrInvalidType         = errors.New("Invalid access type")
	ErrMissingSerial       = errors.New("Missing serial number for transponder")
	ErrTransponderNotFound = errors.New("Transponder not found")
	ErrNoSegmentToClose    = errors.New("No segment to close")
	ErrInvalidPeriod       = errors.New("Invalid billing period")
)

// System failures. They abort the current operation and surface as 500.
var (
	// ErrCostStationNotFound means a segment references a station that no longer resolves.
	ErrCostStationNotFound = errors.New("cost: station not found")
	// ErrConfigMissing means the price option is absent.
	ErrConfigMissing = errors.New("cost: configuration option missing")
	// ErrConfigInvalid means the price option is not a non-negative number.
	ErrConfigInvalid = errors.New("cost: configuration option invalid")
)

var validationErrors = []error{
	ErrStationNotFound,
	ErrMissingBody,
	ErrInvalidType,
	ErrMissingSerial,
	ErrTransponderNotFound,
	ErrNoSegmentToClose,
	ErrInvalidPeriod,
}

// IsValidation reports whether err is caused by bad caller input.
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
