package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrServerOffline indicates the lessons server is unreachable
	ErrServerOffline = errors.New("lessons server is unreachable")

	// ErrAuthFailed indicates authentication failed and could not be refreshed
	ErrAuthFailed = errors.New("authentication token is invalid")

	// ErrNotLoggedIn indicates no stored session exists
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrSyncInProgress indicates a sync pass is already running
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrDownloadCancelled indicates a transfer was cancelled by the user
	ErrDownloadCancelled = errors.New("download cancelled")

	// ErrValidation indicates the server rejected the request payload
	ErrValidation = errors.New("request validation failed")
)
