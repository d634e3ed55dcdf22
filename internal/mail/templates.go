package mail

import (
	"bytes"
	htmltemplate "html/template"
	texttemplate "text/template"
)

// Registration is the data rendered into the welcome email.
type Registration struct {
	Name     string
	Username string
	Email    string
}

const registrationSubject = "Welcome to Warden"

var (
	registrationText = texttemplate.Must(texttemplate.New("registration.txt").Parse(
		`Hello {{.Name}},

Your account has been created. Sign in with the username "{{.Username}}".
`))
	registrationHTML = htmltemplate.Must(htmltemplate.New("registration.html").Parse(
		`<p>Hello {{.Name}},</p>
<p>Your account has been created. Sign in with the username <strong>{{.Username}}</strong>.</p>
`))
)

// RenderRegistration renders the welcome email for a new account.
func RenderRegistration(data Registration) (Message, error) {
	var text, html bytes.Buffer
	if err := registrationText.Execute(&text, data); err != nil {
		return Message{}, err
	}
	if err := registrationHTML.Execute(&html, data); err != nil {
		return Message{}, err
	}
	return Message{
		To:       data.Email,
		Subject:  registrationSubject,
		TextBody: text.String(),
		HTMLBody: html.String(),
	}, nil
}
