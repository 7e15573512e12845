package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"os"
	"strings"

	"github.com/jordan-wright/email"
	"go.uber.org/zap"
)

// smtpsPort is the implicit-TLS submission port the mail providers in use
// all accept.
const smtpsPort = 465

// EmailChannel sends the summary as an HTML email with PDF attachments over
// SMTPS. The SMTP host is derived from the account's domain (smtp.<domain>),
// which holds for the mainland providers this runs against.
type EmailChannel struct {
	User   string
	Pass   string
	To     string
	Sender string

	log *zap.Logger
}

// NewEmailChannel creates the email channel. To defaults to the sending
// account itself.
func NewEmailChannel(user, pass, to, sender string, log *zap.Logger) *EmailChannel {
	if to == "" {
		to = user
	}
	if sender == "" {
		sender = "CAAC 文件监控"
	}
	return &EmailChannel{User: user, Pass: pass, To: to, Sender: sender, log: log}
}

func (c *EmailChannel) Name() string { return "Email" }

// Send delivers the message. Attachments that no longer exist on disk are
// skipped with a warning rather than failing the whole email.
func (c *EmailChannel) Send(_ context.Context, msg Message) error {
	at := strings.LastIndex(c.User, "@")
	if at < 0 {
		return fmt.Errorf("invalid email account %q", c.User)
	}
	host := "smtp." + c.User[at+1:]

	e := email.NewEmail()
	e.From = fmt.Sprintf("%s <%s>", c.Sender, c.User)
	e.To = []string{c.To}
	e.Subject = msg.Title
	e.Text = []byte(msg.Text)
	if msg.HTML != "" {
		e.HTML = []byte(msg.HTML)
	}

	for _, path := range msg.Attachments {
		if _, err := os.Stat(path); err != nil {
			c.log.Warn("attachment missing, skipping", zap.String("path", path))
			continue
		}
		if _, err := e.AttachFile(path); err != nil {
			c.log.Warn("failed to attach file", zap.String("path", path), zap.Error(err))
		}
	}

	addr := fmt.Sprintf("%s:%d", host, smtpsPort)
	auth := smtp.PlainAuth("", c.User, c.Pass, host)
	if err := e.SendWithTLS(addr, auth, &tls.Config{ServerName: host}); err != nil {
		return fmt.Errorf("failed to send email via %s: %w", addr, err)
	}
	return nil
}
