package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"gopkg.in/gomail.v2"

	"github.com/avakara/ewaste-platform/internal/config"
)

// Contact numbers are collected as 10 local digits.
const defaultCountryCode = "+91"

type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

type PushSender interface {
	SendPush(ctx context.Context, token, title, body string, data map[string]string) error
}

type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *SMTPSender) SendEmail(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return s.dialer.DialAndSend(m)
}

type TwilioSender struct {
	client *twilio.RestClient
	from   string
}

func NewTwilioSender(cfg config.TwilioConfig) *TwilioSender {
	return &TwilioSender{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		}),
		from: cfg.From,
	}
}

func (s *TwilioSender) SendSMS(ctx context.Context, to, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(e164(to))
	params.SetFrom(s.from)
	params.SetBody(body)
	_, err := s.client.Api.CreateMessage(params)
	return err
}

type ExpoSender struct {
	client *expo.PushClient
}

func NewExpoSender() *ExpoSender {
	return &ExpoSender{client: expo.NewPushClient(nil)}
}

func (s *ExpoSender) SendPush(ctx context.Context, token, title, body string, data map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pushToken, err := expo.NewExponentPushToken(token)
	if err != nil {
		return err
	}
	response, err := s.client.Publish(&expo.PushMessage{
		To:       []expo.ExponentPushToken{pushToken},
		Body:     body,
		Data:     data,
		Sound:    "default",
		Title:    title,
		Priority: expo.DefaultPriority,
	})
	if err != nil {
		return err
	}
	if err := response.ValidateResponse(); err != nil {
		return fmt.Errorf("expo rejected push: %w", err)
	}
	return nil
}

var errNoRecipient = errors.New("notify: no recipient")

func e164(number string) string {
	number = strings.TrimSpace(number)
	if strings.HasPrefix(number, "+") {
		return number
	}
	return defaultCountryCode + number
}
