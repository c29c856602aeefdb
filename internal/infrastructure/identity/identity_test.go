package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"

	"github.com/pbnkron/kron/internal/core/domain"
)

func TestJWTProvider_RoundTrip(t *testing.T) {
	p := NewJWTProvider("secret", time.Hour)

	token, err := p.Issue(domain.Identity{UID: "u1", Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	id, err := p.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.UID != "u1" || id.Email != "ada@example.com" {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestJWTProvider_Expired(t *testing.T) {
	p := NewJWTProvider("secret", time.Minute)
	p.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := p.Issue(domain.Identity{UID: "u1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	p.now = time.Now
	if _, err := p.Verify(context.Background(), token); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestJWTProvider_WrongSecret(t *testing.T) {
	token, _ := NewJWTProvider("one", time.Hour).Issue(domain.Identity{UID: "u1"})

	if _, err := NewJWTProvider("two", time.Hour).Verify(context.Background(), token); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestJWTProvider_RejectsOtherAlgorithms(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   "u1",
		Issuer:    issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := NewJWTProvider("secret", time.Hour).Verify(context.Background(), signed); err == nil {
		t.Fatal("expected HS512 token to be rejected")
	}
}

func TestJWTProvider_MissingSubject(t *testing.T) {
	p := NewJWTProvider("secret", time.Hour)
	token, _ := p.Issue(domain.Identity{})

	if _, err := p.Verify(context.Background(), token); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

// ----

type stubVerifier struct {
	token *auth.Token
	err   error
}

func (s stubVerifier) VerifyIDToken(context.Context, string) (*auth.Token, error) {
	return s.token, s.err
}

func TestFirebaseProvider_Verify(t *testing.T) {
	p := &FirebaseProvider{client: stubVerifier{token: &auth.Token{
		UID:    "fb-1",
		Claims: map[string]interface{}{"email": "grace@example.com"},
	}}}

	id, err := p.Verify(context.Background(), "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.UID != "fb-1" || id.Email != "grace@example.com" {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestFirebaseProvider_InvalidToken(t *testing.T) {
	p := &FirebaseProvider{client: stubVerifier{err: errors.New("token expired")}}

	if _, err := p.Verify(context.Background(), "tok"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}
