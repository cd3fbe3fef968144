package visit

import "errors"

var (
	ErrVisitNotFound    = errors.New("visit not found")
	ErrInvalidDate      = errors.New("date is not a valid calendar date")
	ErrInvalidWeight    = errors.New("weight must be a positive number of grams")
	ErrInvalidEnum      = errors.New("value is not one of the allowed options")
	ErrEmptyImportBatch = errors.New("import batch contains no visits")
)
