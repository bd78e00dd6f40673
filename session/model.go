package session

// Session is the locally persisted proof that a user is authenticated.
//
// IssuedAt is the stored activity timestamp in Unix epoch milliseconds. It
// is set on Save and moved forward by Touch.
type Session struct {
	UserID      string
	Email       string
	DisplayName string
	Token       string
	IssuedAt    int64
}

// Complete reports whether all four identity fields are present. A record
// missing any of them is treated as no session at all.
func (s *Session) Complete() bool {
	return s != nil &&
		s.UserID != "" &&
		s.Email != "" &&
		s.DisplayName != "" &&
		s.Token != ""
}

