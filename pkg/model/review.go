package model

import "time"

type Review struct {
	ID            string    `json:"id,omitempty" bson:"_id,omitempty"`
	DocID         string    `json:"doc_id" bson:"doc_id" validate:"required"`
	UserID        string    `json:"user_id" bson:"user_id" validate:"required"`
	AppointmentID string    `json:"appointment_id" bson:"appointment_id" validate:"required"`
	ReviewText    string    `json:"review_text" bson:"review_text" validate:"required,max=200"`
	Rating        int       `json:"rating" bson:"rating" validate:"min=0,max=5"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" bson:"updated_at"`
}

// RatingAggregate is the derived {count, average} recomputed from the review
// collection and cached on the doctor record.
type RatingAggregate struct {
	DocID       string  `bson:"_id"`
	TotalRating int64   `bson:"total_rating"`
	Average     float64 `bson:"average_rating"`
}
