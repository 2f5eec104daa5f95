package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so transports can map it to their own codes.
type Kind string

const (
	KindUnauthenticated    Kind = "UNAUTHENTICATED"
	KindInvalidArgument    Kind = "INVALID_ARGUMENT"
	KindFailedPrecondition Kind = "FAILED_PRECONDITION"
	KindNotFound           Kind = "NOT_FOUND"
	KindStorage            Kind = "STORAGE_ERROR"
)

// Store sentinels. Repositories return these; services translate them.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Error is a user-facing failure with a stable code and a human message.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func NewError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// StorageError wraps a store failure. The operation had no effect.
func StorageError(err error) *Error {
	return &Error{
		Kind:    KindStorage,
		Code:    CodeStorageUnavailable,
		Message: "Storage is unavailable, please try again.",
		Err:     err,
	}
}

// KindOf returns the kind of err, or "" for untyped errors.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// AsStoreError passes typed errors through and wraps everything else.
func AsStoreError(err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return StorageError(err)
}

var (
	ErrUnauthenticated = NewError(KindUnauthenticated, CodeUnauthenticated, "Sign in to continue.")
	ErrAccountNotFound = NewError(KindNotFound, CodeAccountNotFound, "Account not found.")
	ErrAccountExists   = NewError(KindFailedPrecondition, CodeAccountExists, "Account already exists.")

	ErrInvalidReferralCode = NewError(KindInvalidArgument, CodeReferralInvalid, "Invalid referral code.")
	ErrAlreadyReferred     = NewError(KindFailedPrecondition, CodeReferralAlreadyUsed, "You already used a referral code.")
	ErrOwnReferralCode     = NewError(KindFailedPrecondition, CodeReferralOwnCode, "You cannot use your own code.")
	ErrReferralNotFound    = NewError(KindNotFound, CodeReferralNotFound, "Referral code does not exist.")

	ErrUsernameTooShort = NewError(KindInvalidArgument, CodeUsernameInvalid, "Username must be at least 3 characters.")
	ErrUsernameTaken    = NewError(KindFailedPrecondition, CodeUsernameTaken, "Username is already taken.")
	ErrEmailRequired    = NewError(KindInvalidArgument, CodeEmailRequired, "Email is required.")

	ErrWalletsIncomplete = NewError(KindInvalidArgument, CodeWalletsIncomplete, "Fill all wallet fields.")
	ErrUnknownNetwork    = NewError(KindInvalidArgument, CodeNetworkUnknown, "Unknown network.")
	ErrWalletsLocked     = NewError(KindFailedPrecondition, CodeWalletsLocked, "Wallets are locked. Unlock them to edit.")
	ErrWalletsNotSaved   = NewError(KindFailedPrecondition, CodeWalletsNotSaved, "Save wallets first.")
	ErrWalletsInUse      = NewError(KindFailedPrecondition, CodeWalletsInUse, "Wallets cannot be unlocked while a commitment is running.")

	ErrUnknownLane    = NewError(KindInvalidArgument, CodeLaneUnknown, "Unknown commitment type.")
	ErrUnknownTier    = NewError(KindInvalidArgument, CodeTierUnknown, "Unknown tier.")
	ErrLaneBusy       = NewError(KindFailedPrecondition, CodeLaneBusy, "A commitment is already running on this lane.")
	ErrNothingToReset = NewError(KindFailedPrecondition, CodeLaneNotCompleted, "Nothing to reset yet.")
	ErrLaneNotReset   = NewError(KindFailedPrecondition, CodeLaneNotReset, "This commitment has finished. Reset it before starting a new one.")
)
