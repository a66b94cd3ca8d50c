package common

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// repository specific errors
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// service specific errors
	ErrorInternal        = errors.New("internal error")
	ErrorUnauthorized    = errors.New("unauthorized")
	ErrorInvalidArgument = errors.New("invalid argument")

	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// quota and uploads
	ErrQuotaExceeded    = errors.New("storage limit exceeded")
	ErrUploadIncomplete = errors.New("upload incomplete")
	ErrSessionNotFound  = errors.New("upload session not found")
	ErrSessionExpired   = errors.New("upload session expired")
	ErrSessionBusy      = errors.New("upload session is being finalized")
	ErrPartTooLarge     = errors.New("part exceeds maximum size")

	// redemption
	ErrCodeNotFound    = errors.New("code not found")
	ErrCodeExhausted   = errors.New("code has no remaining uses")
	ErrAlreadyRedeemed = errors.New("code already redeemed")

	// share links
	ErrLinkNotFound      = errors.New("link not found")
	ErrLinkExpired       = errors.New("link expired")
	ErrPasswordRequired  = errors.New("password required or incorrect")
	ErrPasswordIncorrect = errors.New("password required or incorrect")
	ErrScanInfected      = errors.New("file is infected")
	ErrScanUnavailable   = errors.New("malware scan unavailable")

	// infrastructure
	ErrStorageIO = errors.New("storage i/o error")
	ErrTimeout   = errors.New("operation timed out")
)

// QuotaExceededError reports how much capacity the owner has left.
type QuotaExceededError struct {
	Remaining int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("Storage limit exceeded. You have %.2f MB remaining.", float64(e.Remaining)/float64(MiB))
}

func (e *QuotaExceededError) Unwrap() error { return ErrQuotaExceeded }

// UploadIncompleteError names the lowest part index that was never received.
type UploadIncompleteError struct {
	MissingIndex int
}

func (e *UploadIncompleteError) Error() string {
	return fmt.Sprintf("Missing part %d", e.MissingIndex)
}

func (e *UploadIncompleteError) Unwrap() error { return ErrUploadIncomplete }

// ScanInfectedError carries the signatures reported by the scanner.
type ScanInfectedError struct {
	Signatures []string
}

func (e *ScanInfectedError) Error() string {
	if len(e.Signatures) == 0 {
		return ErrScanInfected.Error()
	}
	return ErrScanInfected.Error() + ": " + strings.Join(e.Signatures, ", ")
}

func (e *ScanInfectedError) Unwrap() error { return ErrScanInfected }
