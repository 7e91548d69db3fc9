package validators

import "go.mongodb.org/mongo-driver/bson"

var DoctorValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"name",
			"email",
			"password",
			"specialty",
			"fees",
			"available",
			"slots_booked",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 3,
				"maxLength": 50,
			},

			"email": bson.M{
				"bsonType": "string",
				"pattern":  `^[^@\s]+@[^@\s]+\.[^@\s]+$`,
			},

			"specialty": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 50,
			},

			"fees": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},

			"available": bson.M{
				"bsonType": "bool",
			},

			"slots_booked": bson.M{
				"bsonType": "object",
				"patternProperties": bson.M{
					`^\d{4}-\d{2}-\d{2}$`: bson.M{
						"bsonType": "array",
						"items":    bson.M{"bsonType": "string"},
					},
				},
				"additionalProperties": false,
			},

			"average_rating": bson.M{
				"bsonType": []string{"double", "int", "long"},
				"minimum":  0,
				"maximum":  5,
			},
		},
	},
}
