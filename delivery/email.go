package delivery

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	jsonclient "github.com/jsonmapper/integration-mapper/json"
	"github.com/jsonmapper/integration-mapper/types"
)

const emailSentMessage = "Email sent successfully"

type ISMTPSender interface {
	Send(ctx context.Context, config types.EmailConfig, recipients []string, message []byte) error
}

type EmailDeliveryClient struct {
	Sender ISMTPSender
	Logger *logrus.Logger
}

func NewEmailDeliveryClient(sender ISMTPSender, logger *logrus.Logger) *EmailDeliveryClient {
	if sender == nil {
		sender = &SMTPSender{}
	}
	return &EmailDeliveryClient{
		Sender: sender,
		Logger: logger,
	}
}

// Deliver sends output as an indented JSON plain-text email.
func (emailClient *EmailDeliveryClient) Deliver(ctx context.Context, target types.Target, output map[string]any) (*Result, error) {
	config := target.EmailConfig
	recipients := config.Recipients()
	if len(recipients) == 0 {
		return nil, errors.New("email target has no recipients")
	}
	subject := config.Subject
	if subject == "" {
		subject = types.DefaultEmailSubject
	}

	body, err := jsonclient.Marshal(output)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Request: map[string]any{
			"type":        "email",
			"smtp_server": config.SMTPServer,
			"from":        config.FromEmail,
			"to":          recipients,
			"subject":     subject,
			"body":        string(body),
		},
	}

	start := time.Now()
	err = emailClient.Sender.Send(ctx, config, recipients, buildMessage(config.FromEmail, recipients, subject, body))
	result.Duration = time.Since(start)
	if err != nil {
		emailClient.Logger.Warnf("Email to %s failed: %v", config.ToEmail, err)
		return result, errors.Wrap(err, "sending email")
	}

	result.OK = true
	result.Message = emailSentMessage
	result.Response = map[string]any{
		"status":     "sent",
		"recipients": recipients,
		"message":    emailSentMessage,
	}
	emailClient.Logger.Infof("Email sent to %d recipients in %dms", len(recipients), result.Duration.Milliseconds())
	return result, nil
}

func buildMessage(from string, recipients []string, subject string, body []byte) []byte {
	var message bytes.Buffer
	fmt.Fprintf(&message, "From: %s\r\n", from)
	fmt.Fprintf(&message, "To: %s\r\n", strings.Join(recipients, ", "))
	fmt.Fprintf(&message, "Subject: %s\r\n", subject)
	message.WriteString("MIME-Version: 1.0\r\n")
	message.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	message.WriteString("\r\n")
	message.Write(body)
	message.WriteString("\r\n")
	return message.Bytes()
}

// SMTPSender talks to an SMTP relay, upgrading with STARTTLS when the
// config asks for it and authenticating when a username is set.
type SMTPSender struct{}

func (sender *SMTPSender) Send(ctx context.Context, config types.EmailConfig, recipients []string, message []byte) error {
	port := config.SMTPPort
	if port == 0 {
		port = types.DefaultSMTPPort
	}
	address := net.JoinHostPort(config.SMTPServer, strconv.Itoa(port))

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return errors.Wrapf(err, "connecting to %s", address)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, config.SMTPServer)
	if err != nil {
		conn.Close()
		return errors.Wrap(err, "starting SMTP session")
	}
	defer client.Close()

	if config.UseTLS {
		if err := client.StartTLS(&tls.Config{ServerName: config.SMTPServer}); err != nil {
			return errors.Wrap(err, "starting TLS")
		}
	}
	if config.SMTPUsername != "" {
		auth := smtp.PlainAuth("", config.SMTPUsername, config.SMTPPassword, config.SMTPServer)
		if err := client.Auth(auth); err != nil {
			return errors.Wrap(err, "authenticating")
		}
	}

	if err := client.Mail(config.FromEmail); err != nil {
		return errors.Wrap(err, "setting sender")
	}
	for _, recipient := range recipients {
		if err := client.Rcpt(recipient); err != nil {
			return errors.Wrapf(err, "adding recipient %s", recipient)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return errors.Wrap(err, "opening message body")
	}
	if _, err := writer.Write(message); err != nil {
		return errors.Wrap(err, "writing message body")
	}
	if err := writer.Close(); err != nil {
		return errors.Wrap(err, "closing message body")
	}
	return client.Quit()
}
