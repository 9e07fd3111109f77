// Package email renders and delivers HTML job digests over SMTP.
package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkowalczk/jobscout/internal/models"
)

// Settings carries the SMTP endpoint and identity configuration.
type Settings struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	AdminEmail string
}

type sendFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// Sender delivers digests. The zero Settings value disables delivery,
// which keeps searches usable without a mail account configured.
type Sender struct {
	settings Settings
	log      zerolog.Logger
	send     sendFunc
	now      func() time.Time
}

func NewSender(settings Settings, log zerolog.Logger) *Sender {
	return &Sender{
		settings: settings,
		log:      log,
		send:     smtp.SendMail,
		now:      time.Now,
	}
}

// Enabled reports whether delivery is configured.
func (s *Sender) Enabled() bool {
	return s.settings.Host != "" && s.settings.From != ""
}

// SendJobAlert delivers a digest of jobs to the recipient, falling back
// to the admin address when the search has no owner email.
func (s *Sender) SendJobAlert(recipient string, jobs []models.Job, criteria models.SearchCriteria) error {
	if !s.Enabled() {
		s.log.Debug().Msg("email disabled, digest skipped")
		return nil
	}
	if recipient == "" {
		recipient = s.settings.AdminEmail
	}
	if recipient == "" {
		return fmt.Errorf("no recipient and no admin email configured")
	}

	subject := fmt.Sprintf("%d new job listings - %s", len(jobs), s.now().Format("Jan 2, 2006"))
	body, err := renderDigest(jobs, criteria)
	if err != nil {
		return fmt.Errorf("render digest: %w", err)
	}
	return s.deliver(recipient, subject, body)
}

// SendTest delivers a minimal message to verify the SMTP configuration.
func (s *Sender) SendTest(recipient string) error {
	if !s.Enabled() {
		return fmt.Errorf("email is not configured")
	}
	if recipient == "" {
		recipient = s.settings.AdminEmail
	}
	body := "<html><body><p>SMTP configuration works.</p></body></html>"
	return s.deliver(recipient, "Test message", body)
}

func (s *Sender) deliver(recipient, subject, htmlBody string) error {
	msg := buildMessage(s.settings.From, recipient, subject, htmlBody)

	addr := fmt.Sprintf("%s:%d", s.settings.Host, s.settings.Port)
	var auth smtp.Auth
	if s.settings.Username != "" {
		auth = smtp.PlainAuth("", s.settings.Username, s.settings.Password, s.settings.Host)
	}

	if err := s.send(addr, auth, s.settings.From, []string{recipient}, msg); err != nil {
		return fmt.Errorf("send to %s: %w", recipient, err)
	}
	s.log.Info().Str("to", recipient).Str("subject", subject).Msg("email sent")
	return nil
}

func buildMessage(from, to, subject, htmlBody string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}

var digestTemplate = template.Must(template.New("digest").Parse(`<html>
<body style="font-family: Arial, sans-serif; max-width: 640px; margin: 0 auto;">
  <h2>{{len .Jobs}} new job listing{{if ne (len .Jobs) 1}}s{{end}}</h2>
  <p style="color: #555;">{{.Summary}}</p>
  {{range .Jobs}}
  <div style="border: 1px solid #ddd; border-radius: 6px; padding: 12px; margin-bottom: 12px;">
    <h3 style="margin: 0 0 4px 0;"><a href="{{.Link}}">{{.Title}}</a></h3>
    <p style="margin: 2px 0;"><strong>{{.Company}}</strong> &middot; {{.Location}}</p>
    <p style="margin: 2px 0;">Salary: {{.Salary}}</p>
    {{if .EmploymentType}}<p style="margin: 2px 0;">Type: {{.EmploymentType}}</p>{{end}}
    <p style="margin: 2px 0; color: #777;">Posted {{.PostingDate}} via {{.Source}}</p>
  </div>
  {{end}}
</body>
</html>`))

func renderDigest(jobs []models.Job, criteria models.SearchCriteria) (string, error) {
	var buf bytes.Buffer
	err := digestTemplate.Execute(&buf, struct {
		Jobs    []models.Job
		Summary string
	}{jobs, criteriaSummary(criteria)})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func criteriaSummary(criteria models.SearchCriteria) string {
	parts := []string{strings.Join(criteria.Titles(), ", ")}
	if criteria.RemoteOnly() {
		parts = append(parts, "remote only")
	}
	if criteria.MinSalary > 0 {
		parts = append(parts, fmt.Sprintf("min $%d", criteria.MinSalary))
	}
	if criteria.MaxSalary > 0 {
		parts = append(parts, fmt.Sprintf("max $%d", criteria.MaxSalary))
	}
	return "Search: " + strings.Join(parts, " | ")
}
