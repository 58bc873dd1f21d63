package newsletter

import "errors"

// Sentinel errors for the newsletter service layer.
var (
	ErrNotFound            = errors.New("newsletter not found")
	ErrDuplicateSlug       = errors.New("newsletter slug already exists")
	ErrCannotEditSent      = errors.New("sent newsletters cannot be edited")
	ErrCannotDeleteNonDraft = errors.New("only draft newsletters can be deleted")
	ErrInvalidStatus       = errors.New("invalid status for this operation")
	ErrScheduleInPast      = errors.New("scheduled time must be in the future")
)
