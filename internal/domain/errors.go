package domain

import "errors"

var (
	ErrParticipantNotFound = errors.New("participant not found")
	ErrUserExists          = errors.New("user already exists")
	ErrHandleUnavailable   = errors.New("handle unavailable")
	ErrWallFull            = errors.New("wall is full")
	ErrNotConnected        = errors.New("wallet not connected")
)
