// Package policy decides what a principal may do with a poll.
// Every function is a pure decision over the supplied state.
package policy

import "github.com/tallyhub/tallyhub/internal/model"

// CanRead reports whether the principal may see the poll, its questions and results.
func CanRead(p model.Principal, poll *model.Poll) bool {
	if poll == nil {
		return false
	}
	if p.Superuser && p.Authenticated {
		return true
	}
	return poll.Public || p.Owns(poll)
}

// CanWrite reports whether the principal may modify, close or delete the poll.
func CanWrite(p model.Principal, poll *model.Poll) bool {
	if poll == nil || !p.Authenticated {
		return false
	}
	return p.Superuser || p.Owns(poll)
}

// CanVote reports whether the principal may vote on the poll's questions.
// Anonymous principals never vote.
func CanVote(p model.Principal, poll *model.Poll) bool {
	if poll == nil || !p.Authenticated {
		return false
	}
	return p.Superuser || poll.Public || p.Owns(poll)
}

// Scope selects which polls a listing returns.
type Scope int

const (
	// ScopePublic lists public polls only.
	ScopePublic Scope = iota
	// ScopeOwnOrPublic lists public polls and polls owned by OwnerID.
	ScopeOwnOrPublic
	// ScopeAll lists every poll.
	ScopeAll
)

// ListFilter is the storage-facing form of a listing scope.
type ListFilter struct {
	Scope   Scope
	OwnerID string
}

// VisibleTo returns the listing filter matching CanRead for the principal.
func VisibleTo(p model.Principal) ListFilter {
	switch {
	case p.Authenticated && p.Superuser:
		return ListFilter{Scope: ScopeAll}
	case p.Authenticated && p.UserID != "":
		return ListFilter{Scope: ScopeOwnOrPublic, OwnerID: p.UserID}
	default:
		return ListFilter{Scope: ScopePublic}
	}
}

// CanSeeEmail reports whether the principal may see the email address of
// the account userID. Accounts see their own; superusers see all.
func CanSeeEmail(p model.Principal, userID string) bool {
	if !p.Authenticated {
		return false
	}
	return p.Superuser || p.UserID == userID
}
