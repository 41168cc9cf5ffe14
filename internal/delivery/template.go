package delivery

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"procura/internal/directory"
	"procura/internal/notification"
	"procura/pkg/email"
)

const defaultActionLabel = "View Details"

var emailTemplate = template.Must(template.New("notification").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body style="margin:0;padding:0;background-color:#f4f5f7;font-family:Arial,Helvetica,sans-serif;">
<table role="presentation" width="100%" cellspacing="0" cellpadding="0">
<tr><td align="center" style="padding:24px;">
<table role="presentation" width="600" cellspacing="0" cellpadding="0" style="background-color:#ffffff;border-radius:8px;">
<tr><td style="padding:24px;border-bottom:4px solid {{.AccentColor}};">
<h1 style="margin:0;font-size:20px;color:#1f2937;">{{.Title}}</h1>
<p style="margin:8px 0 0;font-size:12px;font-weight:bold;color:{{.AccentColor}};">Priority: {{.Priority}}</p>
</td></tr>
<tr><td style="padding:24px;color:#374151;font-size:14px;line-height:1.6;">
<p style="margin:0 0 16px;">Hello {{.Greeting}},</p>
<p style="margin:0 0 16px;">{{.Message}}</p>
{{- if .ActionURL}}
<p style="margin:24px 0;"><a href="{{.ActionURL}}" style="display:inline-block;padding:10px 20px;text-decoration:none;border-radius:5px;background-color:{{.AccentColor}};color:#ffffff;">{{.ActionLabel}}</a></p>
{{- end}}
</td></tr>
<tr><td style="padding:16px 24px;font-size:12px;color:#6b7280;border-top:1px solid #e5e7eb;">
You are receiving this email because of your notification preferences. You can change them at any time from your notification settings.
</td></tr>
</table>
</td></tr>
</table>
</body>
</html>
`))

type emailView struct {
	Title       string
	Priority    notification.Priority
	AccentColor string
	Greeting    string
	Message     string
	ActionURL   string
	ActionLabel string
}

// greeting uses the recipient's name, then a name guessed from the address,
// then the address itself.
func greeting(u *directory.User) string {
	if u.Name != "" {
		return u.Name
	}
	if guessed := email.NameFromAddress(u.Email); guessed != "" {
		return guessed
	}
	return u.Email
}

// renderEmail builds the message for one recipient. Relative action links are
// resolved against baseURL.
func renderEmail(n *notification.Notification, recipient *directory.User, baseURL string) (Message, error) {
	view := emailView{
		Title:       n.Title,
		Priority:    n.Priority,
		AccentColor: "#2563eb",
		Greeting:    greeting(recipient),
		Message:     n.Message,
	}
	if n.Priority.IsElevated() {
		view.AccentColor = "#dc2626"
	}
	if n.ActionURL != "" {
		view.ActionURL = resolveURL(baseURL, n.ActionURL)
		view.ActionLabel = n.ActionLabel
		if view.ActionLabel == "" {
			view.ActionLabel = defaultActionLabel
		}
	}

	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, view); err != nil {
		return Message{}, fmt.Errorf("render email: %w", err)
	}
	return Message{
		To:       recipient.Email,
		Subject:  n.Title,
		HTMLBody: buf.String(),
	}, nil
}

func resolveURL(baseURL, path string) string {
	if baseURL == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}
