package mailer

import (
	"bytes"
	"fmt"
	"html/template"

	gomail "gopkg.in/mail.v2"
)

var validationTemplate = template.Must(template.New("validation").Parse(`
<p>Hello,</p>
<p>Your ReelView verification code is:</p>
<p><strong>{{.Token}}</strong></p>
<p>The code expires in {{.TTLMinutes}} minutes. If you did not request it, you can ignore this email.</p>
`))

// Sender delivers transactional email over SMTP.
type Sender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSender constructs a Sender for the provided SMTP server.
func NewSender(host string, port int, username, password, from string) *Sender {
	return &Sender{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

// SendValidationToken emails a validation code to the address it was issued for.
func (s *Sender) SendValidationToken(to, token string, ttlMinutes int) error {
	body := new(bytes.Buffer)
	if err := validationTemplate.Execute(body, map[string]any{
		"Token":      token,
		"TTLMinutes": ttlMinutes,
	}); err != nil {
		return fmt.Errorf("render validation email: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Your ReelView verification code")
	m.SetBody("text/html", body.String())

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send validation email: %w", err)
	}

	return nil
}
