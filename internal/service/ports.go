package service

import (
	"context"

	"github.com/avakara/ewaste-platform/internal/model"
)

// File is an uploaded payload handed to object storage or the classifier.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

type ObjectStorage interface {
	Upload(ctx context.Context, folder string, file File) (model.Attachment, error)
	Delete(ctx context.Context, key string) error
}

type Geocoder interface {
	ReverseGeocode(ctx context.Context, lon, lat float64) (string, error)
}

// Moderation labels returned by the classifier for community events.
const (
	ModerationValid   = "VALID"
	ModerationFake    = "FAKE"
	ModerationUnknown = "UNKNOWN"
)

type Classifier interface {
	ClassifyWasteImage(ctx context.Context, image File) (string, error)
	ModerateEvent(ctx context.Context, title, description string) (string, error)
}

// Notifier delivers messages without blocking the caller; delivery failures are the
// implementation's to log.
type Notifier interface {
	InventoryAlert(ctx context.Context, agency model.Agency, inventory model.Inventory)
	PickupCode(ctx context.Context, user model.User, req model.Request, code string)
	VolunteerAssigned(ctx context.Context, volunteer model.Volunteer, req model.Request)
	StatusChanged(ctx context.Context, user model.User, req model.Request)
}

type EventSink interface {
	Publish(ctx context.Context, event model.RequestEvent) error
}

type nopNotifier struct{}

func (nopNotifier) InventoryAlert(context.Context, model.Agency, model.Inventory)     {}
func (nopNotifier) PickupCode(context.Context, model.User, model.Request, string)     {}
func (nopNotifier) VolunteerAssigned(context.Context, model.Volunteer, model.Request) {}
func (nopNotifier) StatusChanged(context.Context, model.User, model.Request)          {}

type nopEvents struct{}

func (nopEvents) Publish(context.Context, model.RequestEvent) error { return nil }
