package validators

import "go.mongodb.org/mongo-driver/bson"

var AppointmentValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"user_id",
			"doc_id",
			"slot_date",
			"slot_time",
			"amount",
			"pending",
			"cancelled",
			"completed",
			"booked_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"user_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"doc_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"slot_date": bson.M{
				"bsonType": "string",
				"pattern":  `^\d{4}-\d{2}-\d{2}$`,
			},

			"slot_time": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"amount": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},

			"pending": bson.M{
				"bsonType": "bool",
			},

			"cancelled": bson.M{
				"bsonType": "bool",
			},

			"cancelled_by": bson.M{
				"enum": []any{"user", "doctor", "admin", "", nil},
			},

			"completed": bson.M{
				"bsonType": "bool",
			},

			"booked_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
