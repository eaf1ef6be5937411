package authpw

import (
	"context"
	"errors"
	"testing"

	"loomboard/api/internal/store"
)

type mockUserStore struct {
	byEmail map[string]store.User
	byToken map[string]string // verification token -> email
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{
		byEmail: make(map[string]store.User),
		byToken: make(map[string]string),
	}
}

func (m *mockUserStore) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	if user, ok := m.byEmail[email]; ok {
		return user, nil
	}
	return store.User{}, store.ErrNotFound
}

func (m *mockUserStore) InsertUser(_ context.Context, user store.User) error {
	m.byEmail[user.Email] = user
	if user.VerificationToken != "" {
		m.byToken[user.VerificationToken] = user.Email
	}
	return nil
}

func (m *mockUserStore) VerifyEmailToken(_ context.Context, token string) error {
	email, ok := m.byToken[token]
	if !ok {
		return store.ErrNotFound
	}
	user := m.byEmail[email]
	user.EmailVerified = true
	user.VerificationToken = ""
	m.byEmail[email] = user
	delete(m.byToken, token)
	return nil
}

func signUp(t *testing.T, svc *Service) *SignUpResponse {
	t.Helper()
	res, err := svc.SignUp(context.Background(), SignUpRequest{
		Email:       "ada@example.com",
		Password:    "correct-horse",
		DisplayName: "Ada",
	})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	return res
}

func TestSignUpAndVerifyAndSignIn(t *testing.T) {
	svc := NewService(newMockUserStore())
	ctx := context.Background()

	res := signUp(t, svc)
	if res.UserID == "" || res.VerificationToken == "" {
		t.Fatalf("sign-up response incomplete: %+v", res)
	}

	// Unverified accounts cannot sign in.
	_, err := svc.SignIn(ctx, SignInRequest{Email: "ada@example.com", Password: "correct-horse"})
	if !errors.Is(err, ErrEmailNotVerified) {
		t.Fatalf("pre-verify sign-in err = %v", err)
	}

	if err := svc.VerifyEmail(ctx, res.VerificationToken); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}

	user, err := svc.SignIn(ctx, SignInRequest{Email: "ada@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if user.ID != res.UserID || user.Role != "editor" {
		t.Errorf("signed-in user = %+v", user)
	}
}

func TestSignUpValidation(t *testing.T) {
	svc := NewService(newMockUserStore())
	ctx := context.Background()

	cases := []SignUpRequest{
		{Email: "", Password: "correct-horse", DisplayName: "Ada"},
		{Email: "a@b.c", Password: "", DisplayName: "Ada"},
		{Email: "a@b.c", Password: "correct-horse", DisplayName: ""},
		{Email: "a@b.c", Password: "short", DisplayName: "Ada"},
	}
	for _, req := range cases {
		if _, err := svc.SignUp(ctx, req); err == nil {
			t.Errorf("expected validation error for %+v", req)
		}
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	svc := NewService(newMockUserStore())
	signUp(t, svc)

	_, err := svc.SignUp(context.Background(), SignUpRequest{
		Email:       "ada@example.com",
		Password:    "another-password",
		DisplayName: "Imposter",
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}
}

func TestSignInWrongPassword(t *testing.T) {
	svc := NewService(newMockUserStore())
	ctx := context.Background()
	res := signUp(t, svc)
	if err := svc.VerifyEmail(ctx, res.VerificationToken); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}

	_, err := svc.SignIn(ctx, SignInRequest{Email: "ada@example.com", Password: "wrong"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
	_, err = svc.SignIn(ctx, SignInRequest{Email: "nobody@example.com", Password: "whatever"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email err = %v, want ErrInvalidCredentials", err)
	}
}

func TestVerifyEmailBadToken(t *testing.T) {
	svc := NewService(newMockUserStore())
	if err := svc.VerifyEmail(context.Background(), "bogus"); err == nil {
		t.Fatal("expected error for unknown token")
	}
	if err := svc.VerifyEmail(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty token")
	}
}
