package notify

import (
	"context"
	"html"

	"github.com/pkg/errors"
	"gopkg.in/gomail.v2"
)

// SendResetCode mails a password reset code.
func (m *Mailer) SendResetCode(ctx context.Context, to, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Wrapf(m.dialer.DialAndSend(BuildResetCodeMessage(m.from, to, code)), "send reset code to %s", to)
}

func BuildResetCodeMessage(from, to, code string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Password Reset Code")

	m.SetBody("text/plain", "Your password reset code is: "+code)

	htmlBody := `
	<!DOCTYPE html>
	<html>
	<head>
		<title>Password Reset Code</title>
		<style>
			body {
				font-family: Arial, sans-serif;
				background-color: #f4f4f4;
				margin: 0;
				padding: 0;
			}
			.container {
				background-color: #ffffff;
				margin: 20px auto;
				padding: 20px;
				border-radius: 8px;
				max-width: 600px;
			}
			.code {
				font-weight: bold;
				color: #007bff;
			}
		</style>
	</head>
	<body>
		<div class="container">
			<h1>Password Reset Code</h1>
			<p>Your hospital account password reset code is:</p>
			<p class="code">` + html.EscapeString(code) + `</p>
			<p>The code expires in 15 minutes. If you did not ask for it, ignore this email.</p>
		</div>
	</body>
	</html>
	`
	m.AddAlternative("text/html", htmlBody)
	return m
}
