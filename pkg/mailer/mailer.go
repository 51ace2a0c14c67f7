package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"supervitec-sgd/backend/config"
)

// ErrNoRecipients 邮件没有收件人
var ErrNoRecipients = errors.New("邮件缺少收件人")

// Attachment 邮件附件
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message 待发送邮件
type Message struct {
	To          []string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Mailer SMTP 邮件发送器
type Mailer struct {
	dialer *gomail.Dialer
	from   string
	logger *zap.Logger
}

// New 创建 SMTP 邮件发送器
func New(cfg *config.MailConfig, logger *zap.Logger) *Mailer {
	d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.Username, cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: cfg.SMTPHost, MinVersion: tls.VersionTLS12}
	return &Mailer{dialer: d, from: cfg.From, logger: logger}
}

// Send 发送一封邮件
// gomail 不支持 context，仅在发送前检查取消
func (m *Mailer) Send(ctx context.Context, msg *Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.To...)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/html", msg.HTML)

	for _, a := range msg.Attachments {
		data := a.Data
		gm.Attach(a.Filename,
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
			gomail.SetHeader(map[string][]string{"Content-Type": {a.ContentType}}),
		)
	}

	if err := m.dialer.DialAndSend(gm); err != nil {
		return fmt.Errorf("SMTP 发送失败: %w", err)
	}

	m.logger.Debug("邮件已发送", zap.Strings("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}
