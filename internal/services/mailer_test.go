package services

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSendEmailUnconfiguredIsNoop(t *testing.T) {
	m := NewMailer("", "", "", "", "")
	// Must neither panic nor attempt a network call.
	m.SendEmail("someone@example.com", "subject", "<p>hi</p>", nil)
	m.SendEmail("", "subject", "<p>hi</p>", nil)
}

func TestNewMailerStripsAppPasswordSpaces(t *testing.T) {
	m := NewMailer("smtp.gmail.com", "587", "u@gmail.com", "abcd efgh ijkl mnop", "")
	if m.pass != "abcdefghijklmnop" {
		t.Fatalf("expected spaces stripped, got %q", m.pass)
	}
	if m.from != "u@gmail.com" {
		t.Fatalf("expected from to default to user, got %q", m.from)
	}
}

func TestBuildMessage(t *testing.T) {
	dir := t.TempDir()
	attPath := filepath.Join(dir, "proof.pdf")
	if err := os.WriteFile(attPath, []byte("%PDF-1.4 fake"), 0o644); err != nil {
		t.Fatalf("write attachment: %v", err)
	}

	m := NewMailer("smtp.example.com", "587", "orders@example.com", "pw", "shop@example.com")
	msg, err := m.buildMessage("to@example.com", "New Order", "<b>order</b>", []Attachment{
		{Filename: "proof.pdf", Path: attPath, ContentType: "application/pdf"},
	})
	if err != nil {
		t.Fatalf("buildMessage: %v", err)
	}

	text := string(msg)
	for _, want := range []string{
		"From: shop@example.com",
		"To: to@example.com",
		"multipart/mixed",
		"text/html; charset=UTF-8",
		"<b>order</b>",
		"application/pdf",
		`filename="proof.pdf"`,
		"base64",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("message missing %q", want)
		}
	}
}

func TestBuildMessageMissingAttachment(t *testing.T) {
	m := NewMailer("smtp.example.com", "587", "u", "pw", "f")
	if _, err := m.buildMessage("to@example.com", "s", "h", []Attachment{
		{Filename: "gone.png", Path: "/nonexistent/gone.png"},
	}); err == nil {
		t.Fatal("expected error for unreadable attachment")
	}
}
