// Package email sends the order confirmation mail over SMTP.
package email

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"

	"fanpit-ticketing/internal/config"
	"fanpit-ticketing/internal/models"
)

type Mailer struct {
	config config.EmailConfig
	tmpl   *template.Template
}

// NewMailer validates credentials up front; a deployment without an
// outbound email account fails at process start, not on first send.
func NewMailer(cfg config.EmailConfig) (*Mailer, error) {
	if cfg.SMTPUsername == "" || cfg.SMTPPassword == "" {
		return nil, errors.New("SMTP_USERNAME and SMTP_PASSWORD are required")
	}
	tmpl, err := template.New("tickets").Parse(ticketsTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse tickets template: %w", err)
	}
	return &Mailer{config: cfg, tmpl: tmpl}, nil
}

type ticketsEmailData struct {
	RecipientName string
	OrderToken    string
	TotalAmount   float64
	Currency      string
	Tickets       []models.IssuedTicket
}

// SendTicketsEmail sends the one-time confirmation with the issued
// ticket numbers and QR payloads.
func (m *Mailer) SendTicketsEmail(order models.Order, tickets []models.IssuedTicket) error {
	name := order.CustomerName
	if name == "" {
		name = order.CustomerEmail
	}
	var body bytes.Buffer
	err := m.tmpl.Execute(&body, ticketsEmailData{
		RecipientName: name,
		OrderToken:    order.PublicToken,
		TotalAmount:   order.TotalAmount,
		Currency:      order.Currency,
		Tickets:       tickets,
	})
	if err != nil {
		return fmt.Errorf("render tickets email: %w", err)
	}

	subject := fmt.Sprintf("Your festival tickets (order %s)", order.PublicToken)
	return m.send(order.CustomerEmail, subject, body.String())
}

func (m *Mailer) send(to, subject, htmlBody string) error {
	from := fmt.Sprintf("%s <%s>", m.config.FromName, m.config.FromAddress)
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		from, to, subject, htmlBody)

	auth := smtp.PlainAuth("", m.config.SMTPUsername, m.config.SMTPPassword, m.config.SMTPHost)
	addr := m.config.SMTPHost + ":" + m.config.SMTPPort
	return smtp.SendMail(addr, auth, m.config.FromAddress, []string{to}, []byte(msg))
}

const ticketsTemplate = `<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #222;">
  <h2>See you in the fan pit, {{.RecipientName}}!</h2>
  <p>Your payment is confirmed and your tickets are ready.</p>
  <p>Order: <strong>{{.OrderToken}}</strong><br>
     Total: <strong>{{printf "%.2f" .TotalAmount}} {{.Currency}}</strong></p>
  <table border="0" cellpadding="6">
    <tr><th align="left">Ticket #</th><th align="left">Code</th></tr>
    {{range .Tickets}}
    <tr><td>{{.TicketNumber}}</td><td><code>{{.QRPayload}}</code></td></tr>
    {{end}}
  </table>
  <p>Show the codes at the gate. Have a great festival!</p>
</body>
</html>`
