package patient

import "errors"

var (
	ErrProfileNotFound  = errors.New("no named visit on record for this patient")
	ErrPatientIDMissing = errors.New("patient ID is required")
	ErrNameRequired     = errors.New("full name is required to generate a patient ID")
)
