package models

import "time"

// SessionAccount is one authorized account inside a stored session.
type SessionAccount struct {
	UID  string `bson:"uid" json:"uid"`
	IBAN string `bson:"iban" json:"iban"`
}

// Session is the persisted authorization state for one bank. The bank id
// doubles as the document key, so at most one session exists per bank.
type Session struct {
	BankID     string           `bson:"_id"`
	SessionID  string           `bson:"sessionId"`
	Accounts   []SessionAccount `bson:"accounts"`
	ValidUntil time.Time        `bson:"validUntil"`
}

// IsExpired reports whether the session is no longer usable at the given time.
func (s *Session) IsExpired(now time.Time) bool {
	return s.ValidUntil.Before(now)
}
