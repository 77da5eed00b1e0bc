package domain

import "errors"

var (
	// ErrItemNotFound is returned when no access records exist for an item.
	// Note: an item with zero recorded views is indistinguishable from one
	// that does not exist; both surface as not found.
	ErrItemNotFound = errors.New("item not found")

	// ErrInvalidContentType is returned when a content type is not event or report
	ErrInvalidContentType = errors.New("invalid content type")

	// ErrEventNotFound is returned when an event does not exist
	ErrEventNotFound = errors.New("event not found")

	// ErrReportNotFound is returned when a report does not exist
	ErrReportNotFound = errors.New("report not found")

	// ErrTemplateNotFound is returned when a message template does not exist
	ErrTemplateNotFound = errors.New("template not found")

	// ErrUserNotFound is returned when an admin user does not exist
	ErrUserNotFound = errors.New("user not found")

	// ErrUsernameTaken is returned when creating a user with a duplicate username
	ErrUsernameTaken = errors.New("username already taken")

	// ErrInvalidCredentials is returned when a login attempt fails
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidSignature is returned when a webhook signature does not verify
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrUnsupportedMediaType is returned when an upload is not an allowed image format
	ErrUnsupportedMediaType = errors.New("unsupported media type")

	// ErrMediaTooLarge is returned when an upload exceeds the configured size cap
	ErrMediaTooLarge = errors.New("media file too large")
)
