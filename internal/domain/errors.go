package domain

import (
	"errors"
	"fmt"
)

var (
	// Calendar errors
	ErrInvalidDate  = errors.New("invalid date")
	ErrInvalidRange = errors.New("invalid day range")

	// Ledger errors
	ErrInvalidShare  = errors.New("share plan must sum to 1")
	ErrInvalidAmount = errors.New("amount must be positive")
	ErrSamePayer     = errors.New("cannot pay to the same participant")
	ErrInvalidType   = errors.New("invalid expense type")

	// Storage errors
	ErrPersistenceFailed = errors.New("persistence failed")
	ErrNotFound          = errors.New("not found")

	ErrApartmentNotFound = fmt.Errorf("apartment %w", ErrNotFound)
	ErrExpenseNotFound   = fmt.Errorf("expense %w", ErrNotFound)
	ErrGuestNotFound     = fmt.Errorf("guest %w", ErrNotFound)
	ErrUserNotFound      = fmt.Errorf("user %w", ErrNotFound)

	// Provisioning errors
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrAlreadyExists   = errors.New("already exists")
	ErrInternal        = errors.New("internal")
)
