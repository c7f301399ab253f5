// Package model holds the records the bot reads and writes.
package model

import "time"

// User is a registered Telegram user.
type User struct {
	ID                 int64      `db:"id"`
	TelegramID         int64      `db:"telegram_id"`
	PhoneNumber        string     `db:"phone_number"`
	FirstName          string     `db:"first_name"`
	LastName           string     `db:"last_name"`
	Username           string     `db:"username"`
	LanguageCode       string     `db:"language_code"`
	IsVerified         bool       `db:"is_verified"`
	TempToken          *string    `db:"temp_token"`
	TempTokenExpiresAt *time.Time `db:"temp_token_expires_at"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
}

// LoginStatus is the state of a web login request.
type LoginStatus string

const (
	LoginPending  LoginStatus = "pending"
	LoginApproved LoginStatus = "approved"
	LoginRejected LoginStatus = "rejected"
)

// LoginSession is a web login request created by the web application.
type LoginSession struct {
	ID           int64       `db:"id"`
	SessionToken string      `db:"session_token"`
	TelegramID   *int64      `db:"telegram_id"`
	Status       LoginStatus `db:"status"`
	UserID       *int64      `db:"user_id"`
	ApprovedAt   *time.Time  `db:"approved_at"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

// Decision is a user's answer to a login prompt.
type Decision struct {
	SessionToken string
	TelegramID   int64
	Approve      bool
	// UserID and At are recorded only on approval.
	UserID int64
	At     time.Time
}

// Status returns the status the decision moves the session to.
func (d Decision) Status() LoginStatus {
	if d.Approve {
		return LoginApproved
	}
	return LoginRejected
}

// Step is the position inside the registration conversation.
type Step string

const (
	StepWaitingFirstName Step = "waiting_first_name"
	StepWaitingLastName  Step = "waiting_last_name"
)

// Profile is a snapshot of the sender's Telegram profile.
type Profile struct {
	Username     string `json:"username,omitempty"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

// ConversationSession is the in-progress registration of one user.
type ConversationSession struct {
	Phone     string  `json:"phone"`
	Step      Step    `json:"step"`
	FirstName string  `json:"first_name,omitempty"`
	LastName  string  `json:"last_name,omitempty"`
	Profile   Profile `json:"profile"`
}

// NewUser carries the fields needed to insert a User.
type NewUser struct {
	TelegramID         int64
	PhoneNumber        string
	FirstName          string
	LastName           string
	Username           string
	LanguageCode       string
	TempToken          string
	TempTokenExpiresAt time.Time
}
