package models

// AuthState is the published tuple describing the current authentication
// lifecycle position. Every publish is a full replace; readers always see a
// complete, internally consistent value.
//
// Invariants:
//   - Loading is true only during initial resolution or while a session-change
//     notification's follow-up profile fetch is in flight.
//   - Session == nil implies Profile == nil.
//   - A Session with a nil Profile is a valid intermediate state (sign-up has
//     not finished writing the profile row), not an error.
type AuthState struct {
	Session *Session
	Profile *Profile
	Loading bool
	Error   string
}

// IsAuthenticated reports whether a provider session is present.
func (s AuthState) IsAuthenticated() bool {
	return s.Session != nil
}
