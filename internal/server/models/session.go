package models

import "time"

// SessionState is the lifecycle state of an upload session.
type SessionState string

const (
	SessionInitiated  SessionState = "initiated"
	SessionReceiving  SessionState = "receiving"
	SessionFinalizing SessionState = "finalizing"
	SessionCompleted  SessionState = "completed"
	SessionAbandoned  SessionState = "abandoned"
)

// UploadSession tracks a chunked upload until it is finalized or abandoned.
type UploadSession struct {
	ID           string
	Owner        string
	Name         string
	DeclaredSize int64
	State        SessionState
	// Parts maps a received part index to its staged size.
	Parts     map[int]int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Open reports whether the session still reserves capacity.
func (s *UploadSession) Open() bool {
	switch s.State {
	case SessionInitiated, SessionReceiving, SessionFinalizing:
		return true
	default:
		return false
	}
}

// FirstMissing returns the lowest index in [0, total) without a staged part,
// or -1 when all parts are present.
func (s *UploadSession) FirstMissing(total int) int {
	for i := 0; i < total; i++ {
		if _, ok := s.Parts[i]; !ok {
			return i
		}
	}
	return -1
}
