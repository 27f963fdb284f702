package session

import "testing"

func TestLoginLogoutArePure(t *testing.T) {
	t.Parallel()

	var zero Session
	if zero.Authenticated() {
		t.Fatal("zero session must be logged out")
	}

	in := zero.Login("tok_123")
	if !in.Authenticated() || in.Token != "tok_123" {
		t.Fatalf("unexpected session %+v", in)
	}
	if zero.Authenticated() {
		t.Fatal("login must not mutate the receiver")
	}

	out := in.Logout()
	if out.Authenticated() {
		t.Fatal("logout must clear the token")
	}
	if !in.Authenticated() {
		t.Fatal("logout must not mutate the receiver")
	}
}

func TestAuthenticatedIgnoresBlankToken(t *testing.T) {
	t.Parallel()

	if (Session{Token: "   "}).Authenticated() {
		t.Fatal("blank token must not authenticate")
	}
}
