package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/amazingprincelee/backend-collabogig/internal/config"
	"github.com/amazingprincelee/backend-collabogig/internal/domain/ports/adapter"
	"github.com/amazingprincelee/backend-collabogig/internal/infra/metrics"
)

var _ adapter.NotificationDispatcher = (*Dispatcher)(nil)

// SMSSender is implemented by the SMS transport; split from the dispatcher so
// tests can fake it.
type SMSSender interface {
	Send(ctx context.Context, phone, message string) error
}

// Dispatcher fans reconciliation notifications out over SMTP and SMS.
type Dispatcher struct {
	dialer *gomail.Dialer
	from   string
	sms    SMSSender
	log    *zerolog.Logger
}

func NewDispatcher(cfg *config.MailConfig, sms SMSSender, logger *zerolog.Logger) *Dispatcher {
	l := logger.With().Str("component", "notify").Logger()
	return &Dispatcher{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
		sms:    sms,
		log:    &l,
	}
}

func (d *Dispatcher) sendMail(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", d.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)
	if err := d.dialer.DialAndSend(m); err != nil {
		metrics.IncNotification("email", "error")
		return err
	}
	metrics.IncNotification("email", "sent")
	return nil
}

func (d *Dispatcher) SendWelcome(ctx context.Context, email, name, courseTitle, tempPassword string) error {
	body := fmt.Sprintf(
		`<p>Hi %s,</p>
<p>Your payment for <b>%s</b> was received and an account has been created for you.</p>
<p>Temporary password: <b>%s</b></p>
<p>Please log in and change it as soon as possible.</p>`,
		name, courseTitle, tempPassword)
	return d.sendMail(email, "Welcome aboard", body)
}

func (d *Dispatcher) SendPaymentSuccess(ctx context.Context, email, name string, amount int64, serviceTitle string) error {
	body := fmt.Sprintf(
		`<p>Hi %s,</p>
<p>We confirmed your payment of <b>NGN %d</b> for <b>%s</b>.</p>
<p>Thank you!</p>`,
		name, amount, serviceTitle)
	return d.sendMail(email, "Payment confirmed", body)
}

func (d *Dispatcher) SendReferralCredited(ctx context.Context, email string, commission int64) error {
	body := fmt.Sprintf(
		`<p>Good news!</p>
<p>A referral of yours just paid and <b>NGN %d</b> commission was credited to your balance.</p>`,
		commission)
	return d.sendMail(email, "Referral commission credited", body)
}

// SendCampaign delivers one campaign message. The body is trusted HTML
// authored by an admin.
func (d *Dispatcher) SendCampaign(ctx context.Context, email, name, subject, body string) error {
	return d.sendMail(email, subject, body)
}

func (d *Dispatcher) SendSMS(ctx context.Context, phone, message string) error {
	if err := d.sms.Send(ctx, phone, message); err != nil {
		metrics.IncNotification("sms", "error")
		return err
	}
	metrics.IncNotification("sms", "sent")
	return nil
}
