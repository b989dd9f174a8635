// Package notify delivers workflow notifications over email, SMS and Expo push. Deliveries run in
// the background with their own timeout so a slow provider never holds up a committed transition.
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/avakara/ewaste-platform/internal/metrics"
	"github.com/avakara/ewaste-platform/internal/model"
	"github.com/avakara/ewaste-platform/internal/service"
)

const (
	channelEmail = "email"
	channelSMS   = "sms"
	channelPush  = "push"
)

// Dispatcher implements service.Notifier. Any channel may be nil, in which case it is skipped.
type Dispatcher struct {
	email   EmailSender
	sms     SMSSender
	push    PushSender
	timeout time.Duration
	log     zerolog.Logger
	wg      sync.WaitGroup
}

var _ service.Notifier = (*Dispatcher)(nil)

func NewDispatcher(email EmailSender, sms SMSSender, push PushSender, timeout time.Duration, log zerolog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{email: email, sms: sms, push: push, timeout: timeout, log: log}
}

func (d *Dispatcher) InventoryAlert(ctx context.Context, agency model.Agency, inv model.Inventory) {
	subject := fmt.Sprintf("Inventory at %.0f%% capacity", inv.Occupancy()*100)
	body := fmt.Sprintf(
		"Hello %s,\n\nYour inventory holds %.2f kg of %.2f kg (%.1f%%). Please plan processing or increase capacity before accepting more material.\n",
		agency.Name, inv.CurrentCapacity, inv.TotalCapacity, inv.Occupancy()*100,
	)
	d.sendEmail(ctx, agency.Email, subject, body)
}

func (d *Dispatcher) PickupCode(ctx context.Context, user model.User, req model.Request, code string) {
	body := fmt.Sprintf("Your e-waste pickup is on the way. Share code %s with the volunteer to confirm handover.", code)
	d.sendSMS(ctx, firstNonEmpty(req.ContactNumber, user.Phone), body)
	d.sendEmail(ctx, user.Email, "Your pickup verification code", body)
}

func (d *Dispatcher) VolunteerAssigned(ctx context.Context, volunteer model.Volunteer, req model.Request) {
	body := fmt.Sprintf("New pickup on %s at %s.", req.PickupDate.Format("02 Jan 2006"), req.PickupAddress)
	if volunteer.PushToken != "" {
		d.sendPush(ctx, volunteer.PushToken, "New pickup assigned", body, map[string]string{"requestId": req.ID.String()})
		return
	}
	d.sendSMS(ctx, volunteer.Phone, body)
}

func (d *Dispatcher) StatusChanged(ctx context.Context, user model.User, req model.Request) {
	subject := fmt.Sprintf("Pickup request %s", strings.ToLower(string(req.Status)))
	body := fmt.Sprintf("Hello %s,\n\nYour request %s is now %s (%s).\n", user.Name, req.ID, req.Status, req.Stage)
	if req.RejectionReason != nil && *req.RejectionReason != "" {
		body += fmt.Sprintf("Reason: %s\n", *req.RejectionReason)
	}
	d.sendEmail(ctx, user.Email, subject, body)
}

// Wait blocks until in-flight deliveries finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) sendEmail(ctx context.Context, to, subject, body string) {
	if d.email == nil {
		metrics.NotificationsTotal.WithLabelValues(channelEmail, "skipped").Inc()
		return
	}
	d.deliver(ctx, channelEmail, to, func(ctx context.Context) error {
		return d.email.SendEmail(ctx, to, subject, body)
	})
}

func (d *Dispatcher) sendSMS(ctx context.Context, to, body string) {
	if d.sms == nil {
		metrics.NotificationsTotal.WithLabelValues(channelSMS, "skipped").Inc()
		return
	}
	d.deliver(ctx, channelSMS, to, func(ctx context.Context) error {
		return d.sms.SendSMS(ctx, to, body)
	})
}

func (d *Dispatcher) sendPush(ctx context.Context, token, title, body string, data map[string]string) {
	if d.push == nil {
		metrics.NotificationsTotal.WithLabelValues(channelPush, "skipped").Inc()
		return
	}
	d.deliver(ctx, channelPush, token, func(ctx context.Context) error {
		return d.push.SendPush(ctx, token, title, body, data)
	})
}

func (d *Dispatcher) deliver(ctx context.Context, channel, recipient string, send func(context.Context) error) {
	if strings.TrimSpace(recipient) == "" {
		d.log.Warn().Err(errNoRecipient).Str("channel", channel).Msg("notification skipped")
		metrics.NotificationsTotal.WithLabelValues(channel, "skipped").Inc()
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		start := time.Now()
		err := send(ctx)
		metrics.NotificationsTotal.WithLabelValues(channel, metrics.Outcome(err)).Inc()
		metrics.ExternalCallDuration.WithLabelValues(channel, metrics.Outcome(err)).Observe(time.Since(start).Seconds())
		if err != nil {
			d.log.Warn().Err(err).Str("channel", channel).Msg("notification delivery failed")
		}
	}()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
