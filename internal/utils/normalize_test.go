package utils

import "testing"

func TestNormalizeEmailCaseInsensitive(t *testing.T) {
	if got := NormalizeEmail("A@B.com"); got != NormalizeEmail("a@b.com") {
		t.Fatalf("expected case-insensitive normalization, got %q", got)
	}
	if got := NormalizeEmail("  User@Example.COM  "); got != "user@example.com" {
		t.Fatalf("expected trimmed lowercase, got %q", got)
	}
}

func TestNormalizeEmailIdempotent(t *testing.T) {
	emails := []string{"A@B.com", " mixed.Case@Mail.io ", "already@lower.dev", ""}
	for _, email := range emails {
		once := NormalizeEmail(email)
		if twice := NormalizeEmail(once); twice != once {
			t.Fatalf("normalize(%q) not idempotent: %q != %q", email, twice, once)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"+91 98765-43210", "919876543210"},
		{"(080) 1234 5678", "08012345678"},
		{"no digits", ""},
		{"1234567890", "1234567890"},
	}
	for _, tc := range cases {
		if got := NormalizePhone(tc.in); got != tc.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
