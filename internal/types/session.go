package types

import "time"

// SessionInfo is the passive mirror of a server-side modeling session.
// The server is the single source of truth; every field except ProjectName
// is read-only from the client's perspective.
type SessionInfo struct {
	SessionID     string  `json:"session_id"`
	ProjectName   string  `json:"project_name"`
	FirstName     string  `json:"user_first_name,omitempty"`
	LastName      string  `json:"user_last_name,omitempty"`
	Email         string  `json:"user_email,omitempty"`
	CreatedAt     float64 `json:"created_at,omitempty"`
	LastActivity  float64 `json:"last_activity,omitempty"`
	MemUsedMB     float64 `json:"mem_used,omitempty"`
	Morphology    string  `json:"morphology,omitempty"`
}

func (s SessionInfo) OwnerName() string {
	switch {
	case s.FirstName != "" && s.LastName != "":
		return s.FirstName + " " + s.LastName
	case s.FirstName != "":
		return s.FirstName
	default:
		return s.LastName
	}
}

func (s SessionInfo) CreatedTime() time.Time {
	if s.CreatedAt <= 0 {
		return time.Time{}
	}
	return time.Unix(int64(s.CreatedAt), 0)
}

func (s SessionInfo) LastActivityTime() time.Time {
	if s.LastActivity <= 0 {
		return time.Time{}
	}
	return time.Unix(int64(s.LastActivity), 0)
}
