package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/avakara/ewaste-platform/internal/model"
)

type sent struct {
	channel string
	to      string
	body    string
}

type recorder struct {
	mu   sync.Mutex
	out  []sent
	fail bool
}

func (r *recorder) add(channel, to, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.out = append(r.out, sent{channel: channel, to: to, body: body})
	if r.fail {
		return errors.New("provider down")
	}
	return nil
}

func (r *recorder) SendEmail(_ context.Context, to, subject, body string) error {
	return r.add(channelEmail, to, subject+"\n"+body)
}

func (r *recorder) SendSMS(_ context.Context, to, body string) error {
	return r.add(channelSMS, to, body)
}

func (r *recorder) SendPush(_ context.Context, token, title, body string, _ map[string]string) error {
	return r.add(channelPush, token, title+"\n"+body)
}

func (r *recorder) byChannel(channel string) []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sent
	for _, s := range r.out {
		if s.channel == channel {
			out = append(out, s)
		}
	}
	return out
}

func TestPickupCodeGoesBySMSAndEmail(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec, rec, rec, time.Second, zerolog.Nop())

	d.PickupCode(context.Background(), model.User{Email: "asha@example.com", Phone: "9000000000"}, model.Request{ContactNumber: "9876543210"}, "042917")
	d.Wait()

	sms := rec.byChannel(channelSMS)
	if len(sms) != 1 || sms[0].to != "9876543210" || !strings.Contains(sms[0].body, "042917") {
		t.Fatalf("unexpected sms %+v", sms)
	}
	if email := rec.byChannel(channelEmail); len(email) != 1 || email[0].to != "asha@example.com" {
		t.Fatalf("unexpected email %+v", email)
	}
}

func TestVolunteerAssignedPrefersPush(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec, rec, rec, time.Second, zerolog.Nop())
	req := model.Request{ID: uuid.New(), PickupAddress: "12 MG Road"}

	d.VolunteerAssigned(context.Background(), model.Volunteer{PushToken: "ExponentPushToken[abc]", Phone: "9111111111"}, req)
	d.VolunteerAssigned(context.Background(), model.Volunteer{Phone: "9111111111"}, req)
	d.Wait()

	if len(rec.byChannel(channelPush)) != 1 || len(rec.byChannel(channelSMS)) != 1 {
		t.Fatalf("expected one push and one sms fallback, got %+v", rec.out)
	}
}

func TestInventoryAlertAndStatusEmails(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec, nil, nil, time.Second, zerolog.Nop())
	reason := "outside service area"

	d.InventoryAlert(context.Background(), model.Agency{Name: "Green Loop", Email: "ops@greenloop.test"}, model.Inventory{TotalCapacity: 100, CurrentCapacity: 92})
	d.StatusChanged(context.Background(), model.User{Name: "Asha", Email: "asha@example.com"}, model.Request{Status: model.RequestStatusRejected, RejectionReason: &reason})
	d.PickupCode(context.Background(), model.User{Email: "asha@example.com"}, model.Request{}, "123456")
	d.Wait()

	emails := rec.byChannel(channelEmail)
	if len(emails) != 3 {
		t.Fatalf("expected three emails, got %d", len(emails))
	}
	if !strings.Contains(emails[0].body, "92%") && !strings.Contains(emails[1].body, "92%") && !strings.Contains(emails[2].body, "92%") {
		t.Fatalf("expected alert to state occupancy, got %+v", emails)
	}
}

func TestDeliveryFailureDoesNotPanic(t *testing.T) {
	rec := &recorder{fail: true}
	d := NewDispatcher(rec, rec, rec, time.Second, zerolog.Nop())

	d.StatusChanged(context.Background(), model.User{Email: "asha@example.com"}, model.Request{Status: model.RequestStatusCompleted})
	d.StatusChanged(context.Background(), model.User{}, model.Request{Status: model.RequestStatusCompleted})
	d.Wait()

	if len(rec.byChannel(channelEmail)) != 1 {
		t.Fatalf("expected one attempt and one skipped recipient, got %d", len(rec.out))
	}
}

func TestE164(t *testing.T) {
	if e164("9876543210") != "+919876543210" || e164(" +15551234567 ") != "+15551234567" {
		t.Fatalf("unexpected e164 formatting")
	}
}
