package model

import "time"

// SlotLock is an advisory lock document serializing concurrent booking
// attempts for one (doctor, date, time) slot. The composite _id makes the
// collection's unique index the arbiter: the second inserter loses.
type SlotLock struct {
	ID        string    `bson:"_id"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

func SlotLockID(docID string, date SlotDate, slotTime string) string {
	return "slot_lock_" + docID + "_" + date.String() + "_" + slotTime
}
