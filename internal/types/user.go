package types

import (
	"strings"
	"time"
)

// User identifies who owns a session. There is no authentication involved,
// only identification for session bookkeeping.
type User struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

func NewUser(firstName, lastName, email string) User {
	return User{
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		Email:     strings.TrimSpace(email),
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u User) Valid() bool {
	return u.FirstName != "" && u.LastName != ""
}
