package domain

import "errors"

// Sentinel errors used across layers.
var (
	ErrInvalidInterval = errors.New("interval must be a positive finite number")
	ErrUnknownLanguage = errors.New("unknown language")
	ErrCacheMiss       = errors.New("cache miss")
	ErrNotRunning      = errors.New("not running")
	ErrAlreadyRunning  = errors.New("already running")
	ErrEmptyText       = errors.New("empty announcement text")
	ErrNotImplemented  = errors.New("not implemented")
)
