package spool

import "errors"

var (
	// ErrInvalidRoot is returned when the spool root is empty.
	ErrInvalidRoot = errors.New("spool: root directory is required")

	// ErrMissingType is returned for tasks or records without a type.
	ErrMissingType = errors.New("spool: task type is required")

	// ErrInvalidType is returned when a type contains a comma or line break.
	ErrInvalidType = errors.New("spool: task type must not contain ',' or line breaks")

	// ErrInvalidID is returned when an id contains a line break.
	ErrInvalidID = errors.New("spool: task id must not contain line breaks")

	// ErrHeaderTooLarge is returned when the "type,id" line exceeds MaxHeaderSize.
	ErrHeaderTooLarge = errors.New("spool: record header exceeds size limit")

	// ErrPayloadTooLarge is returned when the payload exceeds MaxPayloadSize.
	ErrPayloadTooLarge = errors.New("spool: record payload exceeds size limit")

	// ErrInvalidPayload is returned when the payload is not a JSON object.
	ErrInvalidPayload = errors.New("spool: record payload is not a JSON object")

	// ErrInvalidTime is returned for scheduled times before the Unix epoch or past the name width.
	ErrInvalidTime = errors.New("spool: scheduled time out of range")

	// ErrInvalidName is returned for file names that are not record names.
	ErrInvalidName = errors.New("spool: not a record name")

	// ErrNoFreeName is returned when every suffix for an instant is taken.
	ErrNoFreeName = errors.New("spool: no free record name for scheduled time")

	// ErrRecordNotRemoved is returned when a claimed record cannot be removed.
	// It is fatal for the calling worker.
	ErrRecordNotRemoved = errors.New("spool: claimed record could not be removed")
)
