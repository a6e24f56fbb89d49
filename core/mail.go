package core

import (
	"bytes"
	"fmt"
	htmltmpl "html/template"
	"log"
	"net/mail"
	"path/filepath"
	"strings"
	"sync"
	texttmpl "text/template"
)

var (
	templates map[string]*emailTemplates // keyed by template name, no ext
	tmplInit  sync.Once
)

type (
	// emailTemplates pairs the text and HTML renditions of one email page.
	emailTemplates struct {
		text *texttmpl.Template
		html *htmltmpl.Template
	}

	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

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

func (m *EmailMessage) contextData() ContextData {
	return ContextData{
		FrontendBaseURL: Conf.FrontendBaseURL,
		Data:            m.TemplateData,
	}
}

// Render fills TextContent/HTMLContent. A missing template is not an error;
// the message simply ends up without content and is never sent.
func (m *EmailMessage) Render() error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
	}
	if m.TemplateName == "" {
		return nil
	}
	tmplInit.Do(parseTemplates) // lazy; first send pays the parse

	pair, ok := templates[m.TemplateName]
	if !ok {
		return nil
	}
	if m.TextContent == "" && pair.text != nil {
		var buff bytes.Buffer
		if err := pair.text.Execute(&buff, m.contextData()); err != nil {
			return err
		}
		m.TextContent = buff.String()
	}
	if pair.html != nil {
		var buff bytes.Buffer
		if err := pair.html.Execute(&buff, m.contextData()); err != nil {
			return err
		}
		m.HTMLContent = buff.String()
	}
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }

// parseTemplates loads every page under assets/templates/email, wrapping
// each in the shared _base layout of the matching extension.
func parseTemplates() {
	templates = make(map[string]*emailTemplates)

	dir := filepath.Join(Conf.WorkDir, "assets", "templates", "email")
	fps, err := filepath.Glob(filepath.Join(dir, "*"))
	if err != nil {
		log.Print(fmt.Errorf("core.parseTemplates: %v", err))
		return
	}

	strict := Conf.Debug || Conf.TestMode
	for _, fp := range fps {
		fname := filepath.Base(fp)
		ext := filepath.Ext(fname)
		if strings.HasPrefix(fname, "_") {
			continue // layouts are parsed alongside each page
		}

		name := strings.TrimSuffix(fname, ext)
		pair, ok := templates[name]
		if !ok {
			pair = &emailTemplates{}
			templates[name] = pair
		}

		switch ext {
		case ".txt":
			tmpl, err := texttmpl.ParseFiles(filepath.Join(dir, "_base.txt"), fp)
			if err != nil {
				log.Print(fmt.Errorf("core.parseTemplates: %v", err))
				continue
			}
			if strict {
				tmpl = tmpl.Option("missingkey=error")
			}
			pair.text = tmpl
		case ".gohtml":
			tmpl, err := htmltmpl.ParseFiles(filepath.Join(dir, "_base.gohtml"), fp)
			if err != nil {
				log.Print(fmt.Errorf("core.parseTemplates: %v", err))
				continue
			}
			if strict {
				tmpl = tmpl.Option("missingkey=error")
			}
			pair.html = tmpl
		}
	}
}
