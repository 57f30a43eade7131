package email

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"net/url"
	"strings"
	texttemplate "text/template"
)

type message struct {
	Subject string
	HTML    string
	Text    string
}

const layoutHTML = `<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #1c1e21; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.button { display: inline-block; padding: 12px 24px; background-color: #1877f2; color: white; text-decoration: none; border-radius: 6px; margin: 20px 0; }
	</style>
</head>
<body>
	<div class="container">
		<h1>{{.Heading}}</h1>
		{{range .Paragraphs}}<p>{{.}}</p>
		{{end}}<a href="{{.Link}}" class="button">{{.Action}}</a>
		<p style="word-break: break-all; color: #65676b;">{{.Link}}</p>
		<hr>
		<p style="color: #8a8d91; font-size: 12px;">This is an automated message from Unify.</p>
	</div>
</body>
</html>`

const layoutText = `{{.Heading}}
{{range .Paragraphs}}
{{.}}
{{end}}
{{.Link}}

This is an automated message from Unify.
`

var (
	htmlLayout = htmltemplate.Must(htmltemplate.New("html").Parse(layoutHTML))
	textLayout = texttemplate.Must(texttemplate.New("text").Parse(layoutText))
)

type content struct {
	Heading    string
	Paragraphs []string
	Action     string
	Link       string
}

func render(subject string, c content) (*message, error) {
	var h, t bytes.Buffer
	if err := htmlLayout.Execute(&h, c); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	if err := textLayout.Execute(&t, c); err != nil {
		return nil, fmt.Errorf("render text: %w", err)
	}
	return &message{Subject: subject, HTML: h.String(), Text: t.String()}, nil
}

func renderPasswordReset(baseURL, token string) (*message, error) {
	return render("Reset your Unify password", content{
		Heading: "Reset your password",
		Paragraphs: []string{
			"You asked to reset the password of your Unify account.",
			"This link expires in 1 hour. If you did not ask for it you can ignore this email.",
		},
		Action: "Reset password",
		Link:   strings.TrimSuffix(baseURL, "/") + "/reset-password?token=" + url.QueryEscape(token),
	})
}

func renderFriendRequest(baseURL, toName, fromName, fromUsername string) (*message, error) {
	if fromName == "" {
		fromName = fromUsername
	}
	greeting := "Hi,"
	if toName != "" {
		greeting = "Hi " + toName + ","
	}
	return render(fromName+" sent you a friend request", content{
		Heading: "New friend request",
		Paragraphs: []string{
			greeting,
			fromName + " (@" + fromUsername + ") wants to connect with you on Unify.",
		},
		Action: "See request",
		Link:   strings.TrimSuffix(baseURL, "/") + "/friends",
	})
}
