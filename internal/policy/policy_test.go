package policy

import (
	"testing"

	"github.com/tallyhub/tallyhub/internal/model"
)

func TestPolicy_Decisions(t *testing.T) {
	t.Parallel()

	owner := model.Principal{UserID: "owner", Authenticated: true}
	other := model.Principal{UserID: "other", Authenticated: true}
	admin := model.Principal{UserID: "root", Superuser: true, Authenticated: true}
	anon := model.Anonymous()

	public := &model.Poll{ID: "p1", OwnerID: "owner", Public: true}
	private := &model.Poll{ID: "p2", OwnerID: "owner", Public: false}

	tests := []struct {
		name      string
		principal model.Principal
		poll      *model.Poll
		read      bool
		write     bool
		vote      bool
	}{
		{"owner public", owner, public, true, true, true},
		{"owner private", owner, private, true, true, true},
		{"other public", other, public, true, false, true},
		{"other private", other, private, false, false, false},
		{"superuser private", admin, private, true, true, true},
		{"anonymous public", anon, public, true, false, false},
		{"anonymous private", anon, private, false, false, false},
		{"nil poll", owner, nil, false, false, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := CanRead(tt.principal, tt.poll); got != tt.read {
				t.Errorf("CanRead = %v, want %v", got, tt.read)
			}
			if got := CanWrite(tt.principal, tt.poll); got != tt.write {
				t.Errorf("CanWrite = %v, want %v", got, tt.write)
			}
			if got := CanVote(tt.principal, tt.poll); got != tt.vote {
				t.Errorf("CanVote = %v, want %v", got, tt.vote)
			}
		})
	}
}

func TestPolicy_UnauthenticatedSuperuserFlagIgnored(t *testing.T) {
	t.Parallel()

	forged := model.Principal{Superuser: true}
	private := &model.Poll{OwnerID: "owner"}

	if CanRead(forged, private) || CanWrite(forged, private) || CanVote(forged, private) {
		t.Fatal("superuser flag without authentication must grant nothing")
	}
}

func TestVisibleTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		principal model.Principal
		want      ListFilter
	}{
		{"anonymous", model.Anonymous(), ListFilter{Scope: ScopePublic}},
		{"user", model.Principal{UserID: "u1", Authenticated: true}, ListFilter{Scope: ScopeOwnOrPublic, OwnerID: "u1"}},
		{"superuser", model.Principal{UserID: "root", Superuser: true, Authenticated: true}, ListFilter{Scope: ScopeAll}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := VisibleTo(tt.principal); got != tt.want {
				t.Errorf("VisibleTo() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCanSeeEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		principal model.Principal
		userID    string
		want      bool
	}{
		{"self", model.Principal{UserID: "u1", Authenticated: true}, "u1", true},
		{"other user", model.Principal{UserID: "u2", Authenticated: true}, "u1", false},
		{"superuser", model.Principal{UserID: "root", Superuser: true, Authenticated: true}, "u1", true},
		{"anonymous", model.Anonymous(), "u1", false},
		{"unauthenticated superuser flag", model.Principal{UserID: "u1", Superuser: true}, "u1", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := CanSeeEmail(tt.principal, tt.userID); got != tt.want {
				t.Errorf("CanSeeEmail = %v, want %v", got, tt.want)
			}
		})
	}
}
