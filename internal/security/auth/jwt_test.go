package auth

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndValidatePair(t *testing.T) {
	tm := NewTokenManager("secret", "", 5*time.Minute, time.Hour)

	pair, err := tm.IssuePair(Subject{UserID: 7, Username: "alice", IsAdmin: true})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if pair.Access == "" || pair.Refresh == "" || pair.Access == pair.Refresh {
		t.Fatalf("expected two distinct tokens, got %+v", pair)
	}

	claims, err := tm.Validate(pair.Access, TokenTypeAccess)
	if err != nil {
		t.Fatalf("validate access: %v", err)
	}
	if claims.UserID != 7 || claims.Username != "alice" || !claims.IsAdmin {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.ID == "" {
		t.Fatal("expected jti to be set")
	}

	if _, err := tm.Validate(pair.Access, TokenTypeRefresh); !errors.Is(err, ErrWrongTokenType) {
		t.Fatalf("access token accepted as refresh: %v", err)
	}
}

func TestRefresh(t *testing.T) {
	tm := NewTokenManager("secret", "", 5*time.Minute, time.Hour)
	pair, err := tm.IssuePair(Subject{UserID: 3, Username: "bob"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	access, err := tm.Refresh(pair.Refresh)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	claims, err := tm.Validate(access, TokenTypeAccess)
	if err != nil {
		t.Fatalf("validate refreshed access: %v", err)
	}
	if claims.UserID != 3 || claims.IsAdmin {
		t.Fatalf("unexpected claims %+v", claims)
	}

	if _, err := tm.Refresh(pair.Access); err == nil {
		t.Fatal("expected access token to be rejected by refresh")
	}
}

func TestExpiredAndForeignTokens(t *testing.T) {
	tm := NewTokenManager("secret", "", time.Minute, time.Hour)
	issuedAt := time.Now().Add(-time.Hour)
	tm.now = func() time.Time { return issuedAt }
	pair, err := tm.IssuePair(Subject{UserID: 1, Username: "old"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	tm.now = time.Now

	if _, err := tm.Validate(pair.Access, TokenTypeAccess); err == nil {
		t.Fatal("expected expired access token to fail")
	}

	other := NewTokenManager("other-secret", "", time.Minute, time.Hour)
	fresh, _ := other.IssuePair(Subject{UserID: 1})
	if _, err := tm.Validate(fresh.Access, TokenTypeAccess); err == nil {
		t.Fatal("expected token signed with another key to fail")
	}
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc", "abc", false},
		{"bearer abc", "abc", false},
		{"Token abc", "", true},
		{"Bearer", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ExtractToken(tt.header)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ExtractToken(%q) = %q, %v", tt.header, got, err)
		}
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(hash, "s3cret") {
		t.Fatal("expected password to match")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatal("expected wrong password to fail")
	}
}
