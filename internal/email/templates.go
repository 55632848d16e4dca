package email

import (
	"bytes"
	htmltemplate "html/template"
	texttemplate "text/template"
)

type template struct {
	subject string
	html    *htmltemplate.Template
	text    *texttemplate.Template
}

func newTemplate(name, subject, html, text string) template {
	return template{
		subject: subject,
		html:    htmltemplate.Must(htmltemplate.New(name).Parse(html)),
		text:    texttemplate.Must(texttemplate.New(name).Parse(text)),
	}
}

func (t template) render(to string, data interface{}) (Message, error) {
	var h, p bytes.Buffer
	if err := t.html.Execute(&h, data); err != nil {
		return Message{}, err
	}
	if err := t.text.Execute(&p, data); err != nil {
		return Message{}, err
	}
	subject := t.subject
	if d, ok := data.(statusData); ok {
		subject = "Update on your application to " + d.CompanyName
	}
	return Message{To: to, Subject: subject, HTML: h.String(), Text: p.String()}, nil
}

type linkData struct {
	Link string
}

type statusData struct {
	CompanyName string
	Position    string
	Status      string
	Feedback    string
}

var (
	verificationTemplate = newTemplate("verify", "Verify Your Email Address", `<html>
<body>
<h2>Verify Your Email Address</h2>
<p>Thank you for registering! Please verify your email address.</p>
<p><a href="{{.Link}}">Verify Email</a></p>
<p>If you didn't register for an account, please ignore this email.</p>
</body>
</html>`, `Verify your email by opening this link: {{.Link}}`)

	passwordResetTemplate = newTemplate("reset", "Reset Your Password", `<html>
<body>
<h2>Reset Your Password</h2>
<p>You've requested to reset your password.</p>
<p><a href="{{.Link}}">Reset Password</a></p>
<p>If you didn't request this, please ignore this email.</p>
<p>The link will expire in 30 minutes.</p>
</body>
</html>`, `Reset your password by opening this link: {{.Link}}
The link will expire in 30 minutes.`)

	emailChangeTemplate = newTemplate("change", "Confirm Your New Email Address", `<html>
<body>
<h2>Confirm Your New Email Address</h2>
<p>Please confirm that you want to use this address for your account.</p>
<p><a href="{{.Link}}">Confirm Email</a></p>
<p>If you didn't request this change, please ignore this email.</p>
</body>
</html>`, `Confirm your new email address by opening this link: {{.Link}}`)

	accountDeletedTemplate = newTemplate("deleted", "Your Account Has Been Deleted", `<html>
<body>
<h2>Account Deletion Confirmation</h2>
<p>Your account has been successfully deleted from our system.</p>
<p>All your personal data and job applications have been removed.</p>
<p>If you wish to use our services again, you'll need to create a new account.</p>
</body>
</html>`, `Your account has been successfully deleted from our system. All your personal data and job applications have been removed.`)

	statusUpdateTemplate = newTemplate("status", "", `<html>
<body>
<h2>Application Status Update</h2>
<p>There's an update on your application for the <strong>{{.Position}}</strong> position at <strong>{{.CompanyName}}</strong>.</p>
<p>Your application status has been changed to: <strong>{{.Status}}</strong></p>
{{if .Feedback}}<p><strong>Feedback:</strong> {{.Feedback}}</p>{{end}}
<p>Log in to your account to see more details.</p>
</body>
</html>`, `Update on your application for the {{.Position}} position at {{.CompanyName}}. Status: {{.Status}}.{{if .Feedback}}
Feedback: {{.Feedback}}{{end}}`)
)
