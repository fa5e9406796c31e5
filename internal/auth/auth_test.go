package auth

import (
	"strings"
	"testing"

	"kanad/internal/domain"
)

func TestCurrentStartsNil(t *testing.T) {
	s := NewService()
	if s.Current() != nil {
		t.Fatal("expected no profile initially")
	}
}

func TestSignInAndOut(t *testing.T) {
	s := NewService()
	s.SignIn(domain.UserProfile{UID: "u1", DisplayName: "Ada"})

	p := s.Current()
	if p == nil || p.UID != "u1" {
		t.Fatalf("current = %+v", p)
	}
	// The returned profile is a copy.
	p.DisplayName = "mutated"
	if s.Current().DisplayName != "Ada" {
		t.Fatal("Current returned an aliased profile")
	}

	s.SignOut()
	if s.Current() != nil {
		t.Fatal("profile survived sign-out")
	}
}

func TestGuest(t *testing.T) {
	s := NewService()
	p := s.Guest()
	if !strings.HasPrefix(p.UID, "guest-") {
		t.Fatalf("uid = %q", p.UID)
	}
	if p.DisplayName != "Guest Researcher" {
		t.Fatalf("displayName = %q", p.DisplayName)
	}
	if cur := s.Current(); cur == nil || cur.UID != p.UID {
		t.Fatal("guest not signed in")
	}
}

func TestSubscribe(t *testing.T) {
	s := NewService()

	var calls []*domain.UserProfile
	unsub := s.Subscribe(func(p *domain.UserProfile) {
		calls = append(calls, p)
	})

	if len(calls) != 1 || calls[0] != nil {
		t.Fatalf("expected immediate call with nil state, got %+v", calls)
	}

	s.SignIn(domain.UserProfile{UID: "u1"})
	if len(calls) != 2 || calls[1] == nil || calls[1].UID != "u1" {
		t.Fatalf("sign-in not delivered: %+v", calls)
	}

	unsub()
	s.SignOut()
	if len(calls) != 2 {
		t.Fatal("unsubscribed callback still invoked")
	}
}
