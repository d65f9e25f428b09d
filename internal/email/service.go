package email

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
)

// TemplateData carries the fields notification templates may reference.
// Unused fields are left zero.
type TemplateData struct {
	OrderNumber     string
	Status          string
	Message         string
	TotalDisplay    string
	RefundDisplay   string
	TrackingCarrier string
	TrackingNumber  string
	TrackingURL     string
}

// Service renders notification templates and hands them to a Sender.
type Service struct {
	sender      Sender
	fromAddress string
	fromName    string
}

// NewService creates a new email service.
func NewService(sender Sender, fromAddress, fromName string) *Service {
	return &Service{
		sender:      sender,
		fromAddress: fromAddress,
		fromName:    fromName,
	}
}

// Send renders the template kind and sends it to the recipient.
func (s *Service) Send(ctx context.Context, kind Kind, recipient string, data TemplateData) error {
	tmpl, ok := templates[kind]
	if !ok {
		return fmt.Errorf("unknown email template kind: %s", kind)
	}

	subject, err := render(tmpl.subject, data)
	if err != nil {
		return fmt.Errorf("failed to render subject for %s: %w", kind, err)
	}
	body, err := render(tmpl.text, data)
	if err != nil {
		return fmt.Errorf("failed to render body for %s: %w", kind, err)
	}

	_, err = s.sender.Send(ctx, &Email{
		To:       recipient,
		From:     fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress),
		Subject:  subject,
		TextBody: body,
	})
	if err != nil {
		return fmt.Errorf("failed to send %s email: %w", kind, err)
	}

	return nil
}

// FormatCents renders a cent amount as a dollar string for templates.
func FormatCents(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}

func render(text string, data TemplateData) (string, error) {
	t, err := template.New("email").Parse(text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
