package email

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"text/template"

	"github.com/idlayer/authfront/pkg/idp"
)

var verificationTemplate = template.Must(template.New("verification").Parse(
	`Hello,

confirm your email address by entering this code on the verification page:

    {{.Code}}

or follow this link:

    {{.Link}}

If you did not request this, you can ignore this mail.
`))

var passwordResetTemplate = template.Must(template.New("reset").Parse(
	`Hello,

a password reset was requested for your account. Follow this link to
choose a new password:

    {{.Link}}

If you did not request this, you can ignore this mail.
`))

// Mailer composes and sends the verification and password-reset mails.
// It resolves the recipient of a verification mail through the provider
// since the orchestrator only holds the verification id.
type Mailer struct {
	idp    idp.Client
	sender Sender
	appURL string
}

func NewMailer(idpClient idp.Client, sender Sender, appURL string) *Mailer {
	return &Mailer{
		idp:    idpClient,
		sender: sender,
		appURL: strings.TrimSuffix(appURL, "/"),
	}
}

func (m *Mailer) SendEmailVerification(ctx context.Context, locale, verificationID, pendingAuthenticationToken string) error {
	verification, err := m.idp.GetEmailVerification(ctx, verificationID)
	if err != nil {
		return fmt.Errorf("unable to get email verification %s: %w", verificationID, err)
	}

	link := fmt.Sprintf("%s/%s/auth/verify-email?email=%s&token=%s",
		m.appURL, localeOrDefault(locale),
		url.QueryEscape(verification.Email),
		url.QueryEscape(pendingAuthenticationToken))

	body, err := render(verificationTemplate, map[string]string{
		"Code": verification.Code,
		"Link": link,
	})
	if err != nil {
		return err
	}

	return m.sender.Send(ctx, verification.Email, "Email Verification", body)
}

func (m *Mailer) SendPasswordReset(ctx context.Context, locale, email, passwordResetToken string) error {
	link := fmt.Sprintf("%s/%s/auth/reset-password?token=%s",
		m.appURL, localeOrDefault(locale), url.QueryEscape(passwordResetToken))

	body, err := render(passwordResetTemplate, map[string]string{
		"Link": link,
	})
	if err != nil {
		return err
	}

	return m.sender.Send(ctx, email, "Forgot Password", body)
}

func render(tmpl *template.Template, data any) (string, error) {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("unable to render mail body: %w", err)
	}
	return sb.String(), nil
}

func localeOrDefault(locale string) string {
	if locale == "" {
		return "en"
	}
	return locale
}
