// Package notify emails hospitals when a treatment plan is recorded.
package notify

import (
	"context"
	"fmt"
	"html"

	"github.com/pkg/errors"
	"gopkg.in/gomail.v2"
)

// PlanNotice is what the hospital is told about a new treatment plan.
type PlanNotice struct {
	HospitalName string
	PatientName  string
	PatientID    uint
	Disease      string
	Treatment    string
	Medication   string
	Tests        string
	Precaution   string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewMailer(cfg SMTPConfig) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// NotifyTreatmentPlan sends notice to the hospital address.
func (m *Mailer) NotifyTreatmentPlan(ctx context.Context, to string, notice PlanNotice) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := BuildPlanMessage(m.from, to, notice)
	return errors.Wrapf(m.dialer.DialAndSend(msg), "send treatment plan notice to %s", to)
}

// BuildPlanMessage renders the plain text and HTML bodies.
func BuildPlanMessage(from, to string, n PlanNotice) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", fmt.Sprintf("Treatment plan recorded for %s", n.PatientName))

	m.SetBody("text/plain", fmt.Sprintf(
		"A treatment plan was recorded for patient %s (#%d).\n\nDisease: %s\nTreatment: %s\nMedication: %s\nTests: %s\nPrecautions: %s\n",
		n.PatientName, n.PatientID, n.Disease, n.Treatment, n.Medication, n.Tests, n.Precaution,
	))

	htmlBody := `
	<!DOCTYPE html>
	<html>
	<head>
		<title>Treatment Plan</title>
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
			th {
				text-align: left;
				color: #333333;
				padding-right: 12px;
			}
		</style>
	</head>
	<body>
		<div class="container">
			<h1>` + html.EscapeString(n.HospitalName) + `</h1>
			<p>A treatment plan was recorded for <strong>` + html.EscapeString(n.PatientName) + `</strong>.</p>
			<table>
				<tr><th>Disease</th><td>` + html.EscapeString(n.Disease) + `</td></tr>
				<tr><th>Treatment</th><td>` + html.EscapeString(n.Treatment) + `</td></tr>
				<tr><th>Medication</th><td>` + html.EscapeString(n.Medication) + `</td></tr>
				<tr><th>Tests</th><td>` + html.EscapeString(n.Tests) + `</td></tr>
				<tr><th>Precautions</th><td>` + html.EscapeString(n.Precaution) + `</td></tr>
			</table>
		</div>
	</body>
	</html>
	`
	m.AddAlternative("text/html", htmlBody)
	return m
}
