// Package queue defines message payloads exchanged over the message
// broker and the background consumer that delivers them.
package queue

// EmailVerificationRequestedEvent is published when registration issues
// a verification token. It carries everything the mail worker needs so
// it never has to query the primary database.
type EmailVerificationRequestedEvent struct {
	Email       string `json:"email"`
	Link        string `json:"link"`
	RequestedAt string `json:"requested_at"`
}
