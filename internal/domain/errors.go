package domain

import "errors"

var (
	ErrTemporarilyUnavailable = errors.New("temporarily unavailable")
	ErrUnknownStation         = errors.New("unknown station")
	ErrUnknownLine            = errors.New("unknown line")
	ErrUnknownBusRoute        = errors.New("unknown bus route")
	ErrInvalidWidth           = errors.New("invalid status width")
)
