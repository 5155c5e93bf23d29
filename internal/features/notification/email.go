package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go-hr/internal/common/models"
	"go-hr/internal/config"
	"go-hr/internal/features/organization"
	"go-hr/internal/metrics"

	"go.uber.org/zap"
)

// Mailer sends one plain-text message.
type Mailer interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

type SMTPMailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	return &SMTPMailer{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		send:     smtp.SendMail,
	}
}

func (m *SMTPMailer) Send(_ context.Context, to []string, subject, body string) error {
	if len(to) == 0 {
		return nil
	}
	var auth smtp.Auth
	if m.Username != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.From)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)
	return m.send(addr, auth, m.From, to, []byte(msg.String()))
}

// EmailNotifier stores every notice in the inbox and then mails it to the
// recipient, or to every active holder of a role address. Mail is best effort.
type EmailNotifier struct {
	Inbox     Notifier
	Mailer    Mailer
	Directory organization.Directory
	Logger    *zap.Logger
}

// NewNotifier returns the inbox alone unless outgoing mail is configured.
func NewNotifier(cfg *config.Config, inbox NotificationService, directory organization.Directory, logger *zap.Logger) Notifier {
	if cfg.SMTPHost == "" {
		return inbox
	}
	logger.Info("Email notices enabled", zap.String("smtp_host", cfg.SMTPHost))
	return &EmailNotifier{
		Inbox:     inbox,
		Mailer:    NewSMTPMailer(cfg),
		Directory: directory,
		Logger:    logger,
	}
}

func (n *EmailNotifier) Notify(ctx context.Context, notice Notice) error {
	if err := n.Inbox.Notify(ctx, notice); err != nil {
		return err
	}

	to, err := n.addresses(ctx, notice.RecipientUserID)
	if err != nil {
		n.failed(notice, err)
		return nil
	}
	if len(to) == 0 {
		return nil
	}

	body := notice.Message
	if notice.RelatedRequestID != "" {
		body += fmt.Sprintf("\r\n\r\nRequest: %s\r\n", notice.RelatedRequestID)
	}
	if err := n.Mailer.Send(ctx, to, notice.Subject, body); err != nil {
		n.failed(notice, err)
	}
	return nil
}

func (n *EmailNotifier) failed(notice Notice, err error) {
	metrics.SideEffectFailures.WithLabelValues("email").Inc()
	n.Logger.Warn("Failed to email notice",
		zap.String("recipient", notice.RecipientUserID),
		zap.String("kind", string(notice.Kind)),
		zap.Error(err))
}

func (n *EmailNotifier) addresses(ctx context.Context, recipient string) ([]string, error) {
	if role, ok := strings.CutPrefix(recipient, RolePrefix); ok {
		members, err := n.Directory.GetFilteredMembers(ctx, models.MemberFilter{Role: role, Status: models.MemberStatusActive})
		if err != nil {
			return nil, err
		}
		var out []string
		for _, m := range members {
			if m.Email != "" {
				out = append(out, m.Email)
			}
		}
		return out, nil
	}

	member, err := n.Directory.FindMemberByID(ctx, recipient)
	if err != nil || member == nil || member.Email == "" {
		return nil, err
	}
	return []string{member.Email}, nil
}
