package kafka

import (
	"time"

	"medbook/pkg/model"
)

const (
	EventBooked    = "appointment.booked"
	EventAccepted  = "appointment.accepted"
	EventCompleted = "appointment.completed"
	EventCancelled = "appointment.cancelled"
	EventRemedy    = "appointment.remedy_sent"
)

// AppointmentEvent is the lifecycle record published for downstream
// consumers (analytics, audit). Keyed by appointment id so one
// appointment's history stays ordered within a partition.
type AppointmentEvent struct {
	Type          string    `json:"type"`
	AppointmentID string    `json:"appointment_id"`
	UserID        string    `json:"user_id"`
	DocID         string    `json:"doc_id"`
	SlotDate      string    `json:"slot_date"`
	SlotTime      string    `json:"slot_time"`
	ActorRole     string    `json:"actor_role,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func NewAppointmentEvent(eventType string, appt *model.Appointment, actorRole string) AppointmentEvent {
	return AppointmentEvent{
		Type:          eventType,
		AppointmentID: appt.ID,
		UserID:        appt.UserID,
		DocID:         appt.DocID,
		SlotDate:      appt.SlotDate.String(),
		SlotTime:      appt.SlotTime,
		ActorRole:     actorRole,
		OccurredAt:    time.Now().UTC(),
	}
}
