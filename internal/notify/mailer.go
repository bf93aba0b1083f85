// Package notify sends operator-facing email notifications.
package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/registra/internal/config"
	"github.com/smallbiznis/registra/pkg/telemetry"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

// Mailer is the notification surface consumed by the core services.
type Mailer interface {
	// SendTeamModified tells account admins that staff changed the team.
	SendTeamModified(ctx context.Context, orgID snowflake.ID, recipients []string) error
	// SendAdminRemoved tells a deactivated owner they were removed.
	SendAdminRemoved(ctx context.Context, orgID snowflake.ID, recipient string) error
	// SendPasscodeReset delivers a freshly issued entity passcode.
	SendPasscodeReset(ctx context.Context, businessIdentifier, passcode string, recipients []string) error
}

type smtpMailer struct {
	provider  Provider
	log       *zap.Logger
	metrics   *telemetry.Metrics
	baseURL   string
	templates *template.Template
}

// NewMailer builds the SMTP-backed mailer. Template parse failures are a
// packaging bug, so they fail construction.
func NewMailer(cfg config.Config, provider Provider, log *zap.Logger, metrics *telemetry.Metrics) (Mailer, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse notification templates: %w", err)
	}
	return &smtpMailer{
		provider:  provider,
		log:       log.Named("notify.mailer"),
		metrics:   metrics,
		baseURL:   cfg.Email.AppBaseURL,
		templates: templates,
	}, nil
}

func (m *smtpMailer) SendTeamModified(ctx context.Context, orgID snowflake.ID, recipients []string) error {
	return m.send(ctx, recipients, "Your team has been modified", "team_modified", map[string]any{
		"AccountID":  orgID.String(),
		"ContextURL": m.baseURL,
	})
}

func (m *smtpMailer) SendAdminRemoved(ctx context.Context, orgID snowflake.ID, recipient string) error {
	return m.send(ctx, []string{recipient}, "You have been removed from a team", "admin_removed", map[string]any{
		"AccountID":  orgID.String(),
		"ContextURL": m.baseURL,
	})
}

func (m *smtpMailer) SendPasscodeReset(ctx context.Context, businessIdentifier, passcode string, recipients []string) error {
	return m.send(ctx, recipients, "Your passcode has been reset", "passcode_reset", map[string]any{
		"BusinessIdentifier": businessIdentifier,
		"Passcode":           passcode,
		"ContextURL":         m.baseURL,
	})
}

func (m *smtpMailer) send(ctx context.Context, recipients []string, subject, templateName string, data map[string]any) error {
	if len(recipients) == 0 {
		m.log.Warn("notification skipped, no recipients", zap.String("template", templateName))
		return nil
	}

	var body bytes.Buffer
	if err := m.templates.ExecuteTemplate(&body, templateName+".html", data); err != nil {
		return fmt.Errorf("execute template %s: %w", templateName, err)
	}

	start := time.Now()
	err := m.provider.Send(ctx, recipients, subject, body.String())
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.metrics.RecordNotificationDelivery(templateName, status, time.Since(start))
	return err
}
