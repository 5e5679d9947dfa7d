package email

import (
	"bytes"
	"embed"
	"fmt"
	htmltmpl "html/template"
	"net/mail"
	"path"
	texttmpl "text/template"
)

//go:embed templates/*.txt templates/*.gohtml
var templateFS embed.FS

// Template names
const (
	TemplateWelcome           = "welcome"
	TemplateMentorAssigned    = "mentor_assigned"
	TemplateApplicationStatus = "application_status"
	TemplateReportReviewed    = "report_reviewed"
	TemplateGrievanceUpdate   = "grievance_update"
	TemplateReportReady       = "report_ready"
	TemplatePasswordReset     = "password_reset"
)

var subjects = map[string]string{
	TemplateWelcome:           "Your PlaceIntern account",
	TemplateMentorAssigned:    "Mentor assignment",
	TemplateApplicationStatus: "Internship application update",
	TemplateReportReviewed:    "Monthly report reviewed",
	TemplateGrievanceUpdate:   "Grievance update",
	TemplateReportReady:       "Your report is ready",
	TemplatePasswordReset:     "Your password was reset",
}

// Message is a rendered email ready to be sent
type Message struct {
	To          mail.Address
	Subject     string
	TextContent string
	HTMLContent string
}

// ContextData is passed to every template
type ContextData struct {
	FrontendBaseURL string
	Name            string
	Data            map[string]any
}

type templatePair struct {
	text *texttmpl.Template
	html *htmltmpl.Template
}

// Renderer renders the embedded email templates
type Renderer struct {
	frontendBaseURL string
	templates       map[string]templatePair
}

// NewRenderer parses all embedded templates
func NewRenderer(frontendBaseURL string) (*Renderer, error) {
	r := &Renderer{frontendBaseURL: frontendBaseURL, templates: make(map[string]templatePair)}

	for name := range subjects {
		text, err := texttmpl.ParseFS(templateFS, path.Join("templates", "_base.txt"), path.Join("templates", name+".txt"))
		if err != nil {
			return nil, fmt.Errorf("parse %s text template: %w", name, err)
		}
		html, err := htmltmpl.ParseFS(templateFS, path.Join("templates", "_base.gohtml"), path.Join("templates", name+".gohtml"))
		if err != nil {
			return nil, fmt.Errorf("parse %s html template: %w", name, err)
		}
		r.templates[name] = templatePair{text: text, html: html}
	}
	return r, nil
}

// Render builds the message for template name
func (r *Renderer) Render(name string, to mail.Address, data map[string]any) (*Message, error) {
	pair, ok := r.templates[name]
	if !ok {
		return nil, fmt.Errorf("unknown email template %q", name)
	}

	ctx := ContextData{FrontendBaseURL: r.frontendBaseURL, Name: to.Name, Data: data}
	if ctx.Name == "" {
		ctx.Name = to.Address
	}

	var text, html bytes.Buffer
	if err := pair.text.ExecuteTemplate(&text, "base", ctx); err != nil {
		return nil, fmt.Errorf("render %s text: %w", name, err)
	}
	if err := pair.html.ExecuteTemplate(&html, "base", ctx); err != nil {
		return nil, fmt.Errorf("render %s html: %w", name, err)
	}

	return &Message{
		To:          to,
		Subject:     subjects[name],
		TextContent: text.String(),
		HTMLContent: html.String(),
	}, nil
}
