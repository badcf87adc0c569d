package session

import "errors"

var (
	ErrUnknownTable  = errors.New("unknown table")
	ErrAlreadyActive = errors.New("table is already running")
	ErrNotActive     = errors.New("table is not running")
	ErrNeverStarted  = errors.New("table has not been started")
	ErrInvalidRate   = errors.New("invalid hourly rate")
)
