package model

import "time"

type NotificationType string

const (
	NotifyAppointmentRequest           NotificationType = "appointment_request"
	NotifyAppointmentAccepted          NotificationType = "appointment_accepted"
	NotifyAppointmentCancelledByUser   NotificationType = "appointment_cancelled_by_user"
	NotifyAppointmentCancelledByDoctor NotificationType = "appointment_cancelled_by_doctor"
	NotifyAppointmentCompleted         NotificationType = "appointment_completed"
	NotifyRemedySent                   NotificationType = "remedy_sent"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotifyAppointmentRequest,
		NotifyAppointmentAccepted,
		NotifyAppointmentCancelledByUser,
		NotifyAppointmentCancelledByDoctor,
		NotifyAppointmentCompleted,
		NotifyRemedySent:
		return true
	}
	return false
}

type Notification struct {
	ID            string           `json:"id,omitempty" bson:"_id,omitempty"`
	SenderID      string           `json:"sender_id" bson:"sender_id"`
	ReceiverID    string           `json:"receiver_id" bson:"receiver_id"`
	AppointmentID string           `json:"appointment_id,omitempty" bson:"appointment_id,omitempty"`
	Type          NotificationType `json:"type" bson:"type"`
	Message       string           `json:"message" bson:"message"`
	IsRead        bool             `json:"is_read" bson:"is_read"`
	CreatedAt     time.Time        `json:"created_at" bson:"created_at"`
}

// NotificationView is a Notification with the related appointment's slot
// joined in at read time.
type NotificationView struct {
	Notification `bson:",inline"`

	SlotDate SlotDate `json:"slot_date,omitempty" bson:"slot_date,omitempty"`
	SlotTime string   `json:"slot_time,omitempty" bson:"slot_time,omitempty"`
}
