package adapters

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// sendMailFunc matches smtp.SendMail; swapped out in tests.
type sendMailFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// EmailAdapter sends mail over SMTP. Credentials carry the server address
// and account; parameters carry the message.
type EmailAdapter struct {
	sendMail sendMailFunc
}

// NewEmailAdapter builds an SMTP email adapter.
func NewEmailAdapter() *EmailAdapter {
	return &EmailAdapter{sendMail: smtp.SendMail}
}

func (a *EmailAdapter) Provider() string { return "email" }

func (a *EmailAdapter) Call(ctx context.Context, operation string, parameters map[string]any, credentials Credentials) (map[string]any, error) {
	if operation != "send" {
		return nil, &PermanentError{Provider: a.Provider(), Message: fmt.Sprintf("unsupported operation %q", operation)}
	}

	if err := ctx.Err(); err != nil {
		return nil, &TemporaryError{Provider: a.Provider(), Message: "context cancelled", Err: err}
	}

	host := credentials["smtp_host"]
	from := credentials["username"]

	if host == "" || from == "" {
		return nil, &AuthenticationError{Provider: a.Provider(), Message: "credentials missing smtp_host or username"}
	}

	port := credentials["smtp_port"]
	if port == "" {
		port = "587"
	}

	to, err := requireParam(a.Provider(), parameters, "to")
	if err != nil {
		return nil, err
	}

	subject, err := requireParam(a.Provider(), parameters, "subject")
	if err != nil {
		return nil, err
	}

	body := stringParam(parameters, "body")
	recipients := splitRecipients(to)

	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		from, strings.Join(recipients, ", "), subject, body)

	var auth smtp.Auth
	if password := credentials["password"]; password != "" {
		auth = smtp.PlainAuth("", from, password, host)
	}

	if err := a.sendMail(host+":"+port, auth, from, recipients, []byte(msg)); err != nil {
		return nil, &TemporaryError{Provider: a.Provider(), Message: "smtp send: " + err.Error(), Err: err}
	}

	return map[string]any{"sent": true, "recipients": len(recipients)}, nil
}

func splitRecipients(to string) []string {
	parts := strings.Split(to, ",")
	recipients := make([]string, 0, len(parts))

	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			recipients = append(recipients, trimmed)
		}
	}

	return recipients
}
