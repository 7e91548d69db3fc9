package model

import "time"

type AppointmentState string

const (
	StatePending   AppointmentState = "pending"
	StateConfirmed AppointmentState = "confirmed"
	StateCompleted AppointmentState = "completed"
	StateCancelled AppointmentState = "cancelled"
)

const (
	CancelledByUser   = "user"
	CancelledByDoctor = "doctor"
	CancelledByAdmin  = "admin"
)

// PatientDetails is the booking subform describing who is actually being
// examined, captured once at booking time. It is independent of the booking
// user's own profile.
type PatientDetails struct {
	Name    string `json:"name" bson:"name" validate:"required,min=2,max=50"`
	Phone   string `json:"phone" bson:"phone" validate:"required,min=7,max=20"`
	DOB     string `json:"dob" bson:"dob" validate:"required"`
	Gender  string `json:"gender" bson:"gender" validate:"required,oneof=male female other"`
	Reason  string `json:"reason" bson:"reason" validate:"required,max=500"`
	Address string `json:"address" bson:"address" validate:"required,max=200"`
}

// BookingSnapshot freezes the display data that must reflect booking time
// (most importantly the fee). It is written once and never patched.
type BookingSnapshot struct {
	DoctorName      string `json:"doctor_name" bson:"doctor_name"`
	DoctorSpecialty string `json:"doctor_specialty" bson:"doctor_specialty"`
	DoctorFees      int64  `json:"doctor_fees" bson:"doctor_fees"`
	PatientName     string `json:"patient_name" bson:"patient_name"`
	PatientEmail    string `json:"patient_email" bson:"patient_email"`
}

type Appointment struct {
	ID       string   `json:"id,omitempty" bson:"_id,omitempty"`
	UserID   string   `json:"user_id" bson:"user_id"`
	DocID    string   `json:"doc_id" bson:"doc_id"`
	SlotDate SlotDate `json:"slot_date" bson:"slot_date"`
	SlotTime string   `json:"slot_time" bson:"slot_time"`
	Amount   int64    `json:"amount" bson:"amount"`
	Payment  bool     `json:"payment" bson:"payment"`

	Pending     bool   `json:"pending" bson:"pending"`
	Cancelled   bool   `json:"cancelled" bson:"cancelled"`
	CancelledBy string `json:"cancelled_by,omitempty" bson:"cancelled_by,omitempty"`
	Completed   bool   `json:"completed" bson:"completed"`
	Reviewed    bool   `json:"reviewed" bson:"reviewed"`
	RemedySent  bool   `json:"remedy_sent" bson:"remedy_sent"`
	RemedyImage string `json:"remedy_image,omitempty" bson:"remedy_image,omitempty"`

	Snapshot BookingSnapshot `json:"booking_snapshot" bson:"booking_snapshot"`
	Patient  PatientDetails  `json:"patient" bson:"patient"`

	BookedAt    time.Time  `json:"booked_at" bson:"booked_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
}

// State derives the lifecycle state from the stored flags. At most one of
// Cancelled/Completed is ever true; Pending is meaningful only while neither
// is.
func (a *Appointment) State() AppointmentState {
	switch {
	case a.Cancelled:
		return StateCancelled
	case a.Completed:
		return StateCompleted
	case a.Pending:
		return StatePending
	default:
		return StateConfirmed
	}
}

// Terminal reports whether no further lifecycle transition is valid.
func (a *Appointment) Terminal() bool {
	return a.Cancelled || a.Completed
}

// BookingRequest is the payload to reserve a slot. UserID is taken from the
// authenticated principal, never from the body.
type BookingRequest struct {
	UserID   string         `json:"-" validate:"required"`
	DocID    string         `json:"doc_id" validate:"required"`
	SlotDate string         `json:"slot_date" validate:"required"`
	SlotTime string         `json:"slot_time" validate:"required"`
	Patient  PatientDetails `json:"patient"`
}
