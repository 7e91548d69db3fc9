package model

import "time"

type User struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty"`
	Username  string    `json:"username" bson:"username" validate:"required,min=3,max=30"`
	Name      string    `json:"name" bson:"name" validate:"omitempty,min=3,max=15"`
	Email     string    `json:"email" bson:"email" validate:"required,email"`
	Password  string    `json:"-" bson:"password"`
	Phone     string    `json:"phone" bson:"phone" validate:"omitempty,len=10"`
	Address   string    `json:"address" bson:"address" validate:"omitempty,max=80"`
	DOB       string    `json:"dob" bson:"dob"`
	Gender    string    `json:"gender" bson:"gender" validate:"omitempty,oneof=male female other"`
	Image     string    `json:"image" bson:"image"`
	IsBlocked bool      `json:"is_blocked" bson:"is_blocked"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// UserProfileUpdate carries the profile fields a patient may change. Nil
// means leave unchanged.
type UserProfileUpdate struct {
	Name    *string `json:"name" validate:"omitempty,min=3,max=15"`
	Phone   *string `json:"phone" validate:"omitempty,max=20"`
	Address *string `json:"address" validate:"omitempty,max=80"`
	DOB     *string `json:"dob"`
	Gender  *string `json:"gender" validate:"omitempty,oneof=male female other"`
}
