package domain

import "time"

// AuthorizationData is the credential pair the server issues to a visitor.
type AuthorizationData struct {
	PageID    string
	AuthToken string
}

func (a AuthorizationData) IsZero() bool {
	return a.PageID == "" && a.AuthToken == ""
}

// SessionParameters is what the server reports when it (re)authenticates a
// visitor.
type SessionParameters struct {
	VisitorJSON    string
	VisitSessionID string
	Authorization  AuthorizationData
}

// StoredSession is the persisted form of a visitor's session, keyed by
// location. The auth token is kept apart in a secret store.
type StoredSession struct {
	Location       string
	VisitorJSON    string
	VisitSessionID string
	PageID         string
	DeviceToken    string
	UpdatedAt      time.Time
}
