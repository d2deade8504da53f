package services

import (
	"encoding/base64"
	"fmt"
	"log"
	"mime"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
)

// Mailer sends notification emails over SMTP. Delivery is best-effort:
// missing configuration or a send failure is logged and swallowed, it never
// fails the calling operation.
type Mailer struct {
	host string
	port string
	user string
	pass string
	from string
}

// NewMailer constructs a Mailer from SMTP settings.
func NewMailer(host, port, user, pass, from string) *Mailer {
	// Gmail app passwords are shown with spaces; strip them if present.
	pass = strings.ReplaceAll(pass, " ", "")
	if from == "" {
		from = user
	}
	return &Mailer{host: host, port: port, user: user, pass: pass, from: from}
}

// Attachment is a file to include with an outgoing email.
type Attachment struct {
	Filename    string
	Path        string
	ContentType string
}

func (m *Mailer) configured() bool {
	return m.host != "" && m.port != "" && m.user != "" && m.pass != ""
}

// SendEmail delivers an HTML email with optional attachments.
func (m *Mailer) SendEmail(to, subject, html string, attachments []Attachment) {
	if to == "" {
		log.Printf("[notify] no recipient; skipping email. subject: %s", subject)
		return
	}

	if !m.configured() {
		log.Printf("[notify] SMTP not configured; intended to: %s, subject: %s", to, subject)
		return
	}

	msg, err := m.buildMessage(to, subject, html, attachments)
	if err != nil {
		log.Printf("[notify] failed to build email: %v", err)
		return
	}

	auth := smtp.PlainAuth("", m.user, m.pass, m.host)
	if err := smtp.SendMail(m.host+":"+m.port, auth, m.from, []string{to}, msg); err != nil {
		log.Printf("[notify] failed to send email: %v", err)
		return
	}

	log.Printf("[notify] email sent to %s", to)
}

const mimeBoundary = "rrdigi-mail-boundary"

func (m *Mailer) buildMessage(to, subject, html string, attachments []Attachment) ([]byte, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mimeBoundary)

	fmt.Fprintf(&b, "--%s\r\n", mimeBoundary)
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(html)
	b.WriteString("\r\n")

	for _, att := range attachments {
		content, err := os.ReadFile(att.Path)
		if err != nil {
			return nil, fmt.Errorf("read attachment %s: %w", att.Path, err)
		}

		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		name := att.Filename
		if name == "" {
			name = filepath.Base(att.Path)
		}

		fmt.Fprintf(&b, "--%s\r\n", mimeBoundary)
		fmt.Fprintf(&b, "Content-Type: %s\r\n", contentType)
		fmt.Fprintf(&b, "Content-Disposition: attachment; filename=%q\r\n", name)
		b.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
		b.WriteString(wrapBase64(base64.StdEncoding.EncodeToString(content)))
		b.WriteString("\r\n")
	}

	fmt.Fprintf(&b, "--%s--\r\n", mimeBoundary)
	return []byte(b.String()), nil
}

func wrapBase64(s string) string {
	const lineLen = 76
	var b strings.Builder
	for len(s) > lineLen {
		b.WriteString(s[:lineLen])
		b.WriteString("\r\n")
		s = s[lineLen:]
	}
	b.WriteString(s)
	return b.String()
}
