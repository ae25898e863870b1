package types

// User represents an account in the credential store.
type User struct {
	// ID is the unique identifier of the user, assigned on creation.
	ID int64 `json:"id" db:"id"`

	// Username is the unique login name chosen by the user.
	// It never changes after creation.
	Username string `json:"username" db:"username"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in responses or logs.
	PasswordHash string `json:"-" db:"password_hash"`

	// SessionToken is the user's single live session token, or empty
	// when the user has no active session.
	SessionToken string `json:"-" db:"session_token"`
}

// HasSession reports whether the user currently holds a session token.
func (u User) HasSession() bool {
	return u.SessionToken != ""
}

// Identity is the authenticated principal behind a session token.
type Identity struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}
