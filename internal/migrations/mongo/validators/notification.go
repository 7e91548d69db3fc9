package validators

import "go.mongodb.org/mongo-driver/bson"

var NotificationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"receiver_id",
			"type",
			"message",
			"is_read",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"receiver_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"type": bson.M{
				"enum": []any{
					"appointment_request",
					"appointment_accepted",
					"appointment_cancelled_by_user",
					"appointment_cancelled_by_doctor",
					"appointment_completed",
					"remedy_sent",
				},
			},

			"is_read": bson.M{
				"bsonType": "bool",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
