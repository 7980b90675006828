package types

// ClientState is the client-side persisted session handle. It survives
// restarts so the front end can offer to resume the previous session; it is
// cleared whenever the server reports the session expired. A stored session
// id alone is never trusted: it has to be confirmed live by the server
// before reuse.
type ClientState struct {
	SessionID   string `json:"session_id"`
	ProjectName string `json:"project_name,omitempty"`
	User        User   `json:"user"`
}

func (s *ClientState) Empty() bool {
	return s == nil || s.SessionID == ""
}
