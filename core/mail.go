package core

import (
	"bytes"
	"net/mail"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

type (
	// EmailMessage is a renderable email. Either BodyStr (plain, non-templated
	// content) or Template+TemplateData must be provided.
	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Subject string
		BodyStr string

		Template     *texttmpl.Template
		TemplateData interface{}
		TextContent  string
	}

	// EmailService is any service that can send emails.
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// Render resolves the message's final TextContent.
func (m *EmailMessage) Render(conf *Config) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	}
	if m.Template == nil {
		return nil
	}
	var buf bytes.Buffer
	data := struct {
		FrontendBaseURL string
		Data            interface{}
	}{conf.FrontendBaseURL, m.TemplateData}
	if err := m.Template.Execute(&buf, data); err != nil {
		return errors.Wrapf(err, "executing template %q", m.Template.Name())
	}
	m.TextContent = buf.String()
	return nil
}

func (m *EmailMessage) HasRecipients() bool {
	return len(m.To) > 0 || len(m.Cc) > 0
}

func (m *EmailMessage) HasContent() bool {
	return m.TextContent != ""
}
