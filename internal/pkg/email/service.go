package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/rs/zerolog/log"
)

// Sender interface for sending templated emails
type Sender interface {
	SendTemplate(ctx context.Context, to, toName, templateName, subject string, data interface{}) error
}

// Service handles email sending with templates
type Service struct {
	client    *SendGridClient
	templates map[string]*template.Template
}

// NewService creates email service
func NewService(config SendGridConfig) *Service {
	s := &Service{
		client:    NewSendGridClient(config),
		templates: make(map[string]*template.Template),
	}
	s.loadTemplates()
	return s
}

func (s *Service) loadTemplates() {
	templates := map[string]string{
		"booking_approved":    BookingApprovedTemplate,
		"booking_rejected":    BookingRejectedTemplate,
		"account_credentials": AccountCredentialsTemplate,
	}

	for name, content := range templates {
		tmpl, err := template.New(name).Parse(content)
		if err != nil {
			log.Error().Err(err).Str("template", name).Msg("Failed to parse email template")
			continue
		}
		s.templates[name] = tmpl
	}
}

// SendTemplate renders a template and sends it
func (s *Service) SendTemplate(ctx context.Context, to, toName, templateName, subject string, data interface{}) error {
	tmpl, ok := s.templates[templateName]
	if !ok {
		return fmt.Errorf("template %s not found", templateName)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to render template %s: %w", templateName, err)
	}

	return s.client.Send(ctx, &EmailMessage{
		To:          to,
		ToName:      toName,
		Subject:     subject,
		HTMLContent: buf.String(),
	})
}
