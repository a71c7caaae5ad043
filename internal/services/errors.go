package services

import "errors"

var (
	// ErrSessionWithoutProvider is a usage error: the request context was not
	// wrapped by the page session middleware.
	ErrSessionWithoutProvider = errors.New("session store accessed without being wrapped by its provider")
	ErrSessionClosed          = errors.New("page session closed")
	ErrSignInRequired         = errors.New("sign in required")
	ErrInvalidPrice           = errors.New("invalid price")
	ErrUploadFailed           = errors.New("image upload failed")
	ErrPersistFailed          = errors.New("failed to save listing")
)
