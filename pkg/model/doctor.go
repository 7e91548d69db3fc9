package model

import "time"

type Doctor struct {
	ID         string  `json:"id,omitempty" bson:"_id,omitempty"`
	Name       string  `json:"name" bson:"name" validate:"required,min=3,max=50"`
	Email      string  `json:"email" bson:"email" validate:"required,email"`
	Password   string  `json:"-" bson:"password"`
	Specialty  string  `json:"specialty" bson:"specialty" validate:"required,min=2,max=50"`
	Degree     string  `json:"degree" bson:"degree" validate:"required,min=2,max=50"`
	Experience string  `json:"experience" bson:"experience" validate:"omitempty,max=50"`
	About      string  `json:"about" bson:"about" validate:"omitempty,max=1000"`
	Fees       int64   `json:"fees" bson:"fees" validate:"required,min=0"`
	Address    string  `json:"address" bson:"address" validate:"omitempty,max=200"`
	Image      string  `json:"image" bson:"image"`
	Available  bool    `json:"available" bson:"available"`

	// SlotsBooked is the slot ledger: canonical date -> booked times in
	// booking order. Uniqueness within a date is enforced by the booking
	// service, not by the structure.
	SlotsBooked map[string][]string `json:"slots_booked" bson:"slots_booked"`

	ReviewIDs     []string  `json:"review_ids" bson:"review_ids"`
	AverageRating float64   `json:"average_rating" bson:"average_rating"`
	TotalRating   int64     `json:"total_rating" bson:"total_rating"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
}

// SlotTaken reports whether the ledger already holds the given time on the
// given date.
func (d *Doctor) SlotTaken(date SlotDate, slotTime string) bool {
	for _, t := range d.SlotsBooked[date.String()] {
		if t == slotTime {
			return true
		}
	}
	return false
}

// DoctorProfileUpdate carries the fields a doctor may change after
// registration. Nil means leave unchanged.
type DoctorProfileUpdate struct {
	Fees      *int64  `json:"fees" validate:"omitempty,min=0"`
	Address   *string `json:"address" validate:"omitempty,max=200"`
	About     *string `json:"about" validate:"omitempty,max=1000"`
	Available *bool   `json:"available"`
}
