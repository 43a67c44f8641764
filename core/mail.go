package core

import (
	"bytes"
	htmltmpl "html/template"
	"net/mail"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

type (
	Attachment struct {
		Content     *bytes.Buffer
		ContentType string
		Filename    string
	}

	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		BodyStr     string // simple text/plain, non-templated content
		Attachments []Attachment

		// templated contents
		TextTemplate string
		HTMLTemplate string
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	// ContextData is the root object available to email templates.
	ContextData struct {
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// Render executes the message's templates and fills TextContent/HTMLContent.
// A message with only BodyStr set renders as-is.
func (m *EmailMessage) Render(conf *Config) error {
	if m.TextTemplate == "" && m.HTMLTemplate == "" {
		m.TextContent = m.BodyStr
		return nil
	}

	data := ContextData{FrontendBaseURL: conf.FrontendBaseURL, Data: m.TemplateData}

	if m.TextTemplate != "" {
		t, err := texttmpl.New(m.Subject + ".txt").Parse(m.TextTemplate)
		if err != nil {
			return errors.Wrap(err, "parsing text template")
		}
		var buf bytes.Buffer
		if err = t.Execute(&buf, data); err != nil {
			return errors.Wrap(err, "executing text template")
		}
		m.TextContent = buf.String()
	}

	if m.HTMLTemplate != "" {
		t, err := htmltmpl.New(m.Subject + ".html").Parse(m.HTMLTemplate)
		if err != nil {
			return errors.Wrap(err, "parsing html template")
		}
		var buf bytes.Buffer
		if err = t.Execute(&buf, data); err != nil {
			return errors.Wrap(err, "executing html template")
		}
		m.HTMLContent = buf.String()
	}
	return nil
}

func (m *EmailMessage) HasRecipients() bool {
	return len(m.To) > 0 || len(m.Cc) > 0 || len(m.Bcc) > 0
}

func (m *EmailMessage) HasContent() bool {
	return m.TextContent != "" || m.HTMLContent != "" || m.BodyStr != ""
}

func (m *EmailMessage) HasAttachments() bool {
	return len(m.Attachments) > 0
}
