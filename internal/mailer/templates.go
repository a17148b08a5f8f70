package mailer

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/hireline/hireline/internal/model"
)

type emailTemplate struct {
	subject *template.Template
	body    *template.Template
}

func mustTemplate(name, subject, body string) emailTemplate {
	return emailTemplate{
		subject: template.Must(template.New(name + ".subject").Parse(subject)),
		body:    template.Must(template.New(name + ".body").Parse(body)),
	}
}

var templates = map[string]emailTemplate{
	model.TemplateWelcome: mustTemplate(model.TemplateWelcome,
		`Welcome to Hireline, {{.Name}}`,
		`Hi {{.Name}},

Your {{.Role}} account is ready. Sign in any time to continue.
`),
	model.TemplateApplicationNew: mustTemplate(model.TemplateApplicationNew,
		`New application for {{.JobTitle}}`,
		`{{.CandidateName}} applied to {{.JobTitle}}.

Application ID: {{.ApplicationID}}
`),
	model.TemplateApplicationStatus: mustTemplate(model.TemplateApplicationStatus,
		`Your application for {{.JobTitle}} is now {{.Status}}`,
		`Hi {{.Name}},

The status of your application for {{.JobTitle}} changed to {{.Status}}.
{{- if .Note}}

Note from the employer: {{.Note}}
{{- end}}
`),
	model.TemplateJobAlert: mustTemplate(model.TemplateJobAlert,
		`{{len .Jobs}} new job{{if gt (len .Jobs) 1}}s{{end}} for "{{.AlertName}}"`,
		`New jobs matching your alert "{{.AlertName}}":
{{range .Jobs}}
- {{.Title}}{{if .Location}} ({{.Location}}){{end}} /jobs/{{.ID}}
{{- end}}
`),
	model.TemplateInvoice: mustTemplate(model.TemplateInvoice,
		`Invoice {{.Number}}`,
		`Invoice {{.Number}} for {{.Amount}} {{.Currency}} is {{.Status}}.
`),
}

// Render executes the named template and returns the subject and body.
func Render(name string, data any) (subject, body string, err error) {
	tpl, ok := templates[name]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}

	var sb strings.Builder
	if err := tpl.subject.Execute(&sb, data); err != nil {
		return "", "", fmt.Errorf("render %s subject: %w", name, err)
	}
	subject = strings.TrimSpace(sb.String())

	sb.Reset()
	if err := tpl.body.Execute(&sb, data); err != nil {
		return "", "", fmt.Errorf("render %s body: %w", name, err)
	}
	return subject, sb.String(), nil
}
