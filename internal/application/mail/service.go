package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strconv"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	tmplActivation      = "activation"
	tmplResetPassword   = "reset-password"
	tmplConfirmNewEmail = "confirm-new-email"
)

// Sender delivers a rendered message. Implemented by the SMTP, SNS and log transports.
type Sender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// Service renders the account emails and hands them to a Sender.
type Service interface {
	UserSignUp(ctx context.Context, to, hash string) error
	ForgotPassword(ctx context.Context, to, hash string, expires time.Time) error
	ConfirmNewEmail(ctx context.Context, to, hash string) error
}

type ServiceDeps struct {
	Sender         Sender
	AppName        string
	FrontendDomain string
}

type service struct {
	sender   Sender
	appName  string
	frontend string
	tmpls    map[string]*template.Template
}

func NewService(deps ServiceDeps) (Service, error) {
	tmpls := make(map[string]*template.Template)
	for _, name := range []string{tmplActivation, tmplResetPassword, tmplConfirmNewEmail} {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse mail template %s: %w", name, err)
		}
		tmpls[name] = t
	}
	return &service{
		sender:   deps.Sender,
		appName:  deps.AppName,
		frontend: deps.FrontendDomain,
		tmpls:    tmpls,
	}, nil
}

type templateData struct {
	Title       string
	ActionTitle string
	URL         string
	AppName     string
}

func (s *service) UserSignUp(ctx context.Context, to, hash string) error {
	return s.send(ctx, to, tmplActivation, "Verify Your "+s.appName+" Email Address", templateData{
		Title:       "Email Address Verification",
		ActionTitle: "Verify Email",
		URL:         s.link("/confirm-email", url.Values{"hash": {hash}}),
	})
}

func (s *service) ForgotPassword(ctx context.Context, to, hash string, expires time.Time) error {
	return s.send(ctx, to, tmplResetPassword, "Reset Your Password", templateData{
		Title:       "Reset Your Password",
		ActionTitle: "Reset Your Password",
		URL: s.link("/password-change", url.Values{
			"hash":    {hash},
			"expires": {strconv.FormatInt(expires.UnixMilli(), 10)},
		}),
	})
}

func (s *service) ConfirmNewEmail(ctx context.Context, to, hash string) error {
	return s.send(ctx, to, tmplConfirmNewEmail, "Confirm New Email Address", templateData{
		Title:       "Confirm New Email Address",
		ActionTitle: "Confirm Email Address",
		URL:         s.link("/confirm-new-email", url.Values{"hash": {hash}}),
	})
}

func (s *service) link(path string, q url.Values) string {
	return s.frontend + path + "?" + q.Encode()
}

func (s *service) send(ctx context.Context, to, name, subject string, data templateData) error {
	data.AppName = s.appName
	var buf bytes.Buffer
	if err := s.tmpls[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s mail: %w", name, err)
	}
	if err := s.sender.SendEmail(ctx, to, subject, buf.String()); err != nil {
		return fmt.Errorf("send %s mail: %w", name, err)
	}
	return nil
}
