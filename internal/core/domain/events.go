package domain

import "time"

// PasswordResetRequestedEvent asks the notification service to email a reset link.
type PasswordResetRequestedEvent struct {
	EventID     string
	UserID      string
	Username    string
	Email       string
	Token       string
	RequestedAt time.Time
	ExpiresAt   time.Time
}

// PasswordChangedEvent notifies the user that the password was updated.
type PasswordChangedEvent struct {
	EventID   string
	UserID    string
	Username  string
	Email     string
	ChangedAt time.Time
}

// UserLoggedOutEvent records a completed logout.
type UserLoggedOutEvent struct {
	EventID     string
	UserID      string
	TokenID     string
	LoggedOutAt time.Time
}
