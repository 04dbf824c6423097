package dataset

import "errors"

var (
	ErrUnknownCollection  = errors.New("unknown collection")
	ErrRecordNotFound     = errors.New("record not found")
	ErrInvalidRecord      = errors.New("invalid record")
	ErrDuplicateID        = errors.New("duplicate record id")
	ErrMalformed          = errors.New("malformed dataset")
	ErrUnsupportedVersion = errors.New("unsupported schema version")
)
