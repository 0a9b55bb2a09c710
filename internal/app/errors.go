package service

import (
	"errors"

	"github.com/okian/connecthub/internal/adapters/repository"
	"github.com/okian/connecthub/internal/auth"
)

// Sentinel kinds returned by the service. Lookup and credential errors alias
// the lower layers so callers only need this package for errors.Is.
var (
	ErrNotStarted         = errors.New("service not started")
	ErrBackpressure       = errors.New("ingest queue is full")
	ErrInvalidInput       = repository.ErrInvalid
	ErrNotFound           = repository.ErrNotFound
	ErrConflict           = repository.ErrConflict
	ErrInvalidCredentials = auth.ErrInvalidCredentials
	ErrAuthDisabled       = errors.New("authentication is disabled")
)
