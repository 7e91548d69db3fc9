package service

import (
	"context"

	"medbook/pkg/model"
)

// DoctorDirectory is the slice of the doctor store booking needs. The
// doctors repository satisfies it.
type DoctorDirectory interface {
	FindByID(ctx context.Context, id string) (*model.Doctor, error)
	Count(ctx context.Context) (int64, error)
	BookSlot(ctx context.Context, id string, date model.SlotDate, slotTime string) error
	ReleaseSlot(ctx context.Context, id string, date model.SlotDate, slotTime string) error
	Delete(ctx context.Context, id string) error
}

// UserDirectory is the slice of the user store booking needs.
type UserDirectory interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	Count(ctx context.Context) (int64, error)
}

// NotificationSink records in-app notifications. Delivery failures are
// returned so the caller can decide whether they are fatal.
type NotificationSink interface {
	Notify(ctx context.Context, n *model.Notification) error
}

// ReviewPurger removes a doctor's reviews during cascade deletion.
type ReviewPurger interface {
	DeleteByDoctor(ctx context.Context, docID string) (int64, error)
}
