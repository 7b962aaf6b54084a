package validators

import "go.mongodb.org/mongo-driver/bson"

// BookingValidator requires exactly one of the room or experience shapes,
// selected by kind.
var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"kind",
			"user_id",
			"guests",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"kind": bson.M{
				"enum": []string{"room", "experience"},
			},

			"user_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"guests": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
			},

			"room_id":         bson.M{"bsonType": "string", "minLength": 1},
			"experience_id":   bson.M{"bsonType": "string", "minLength": 1},
			"check_in":        bson.M{"bsonType": "date"},
			"check_out":       bson.M{"bsonType": "date"},
			"experience_time": bson.M{"bsonType": "date"},
			"created_at":      bson.M{"bsonType": "date"},
			"updated_at":      bson.M{"bsonType": "date"},
		},

		"oneOf": []bson.M{
			{
				"properties": bson.M{"kind": bson.M{"enum": []string{"room"}}},
				"required":   []string{"room_id", "check_in", "check_out"},
				"not": bson.M{"anyOf": []bson.M{
					{"required": []string{"experience_id"}},
					{"required": []string{"experience_time"}},
				}},
			},
			{
				"properties": bson.M{"kind": bson.M{"enum": []string{"experience"}}},
				"required":   []string{"experience_id", "experience_time"},
				"not": bson.M{"anyOf": []bson.M{
					{"required": []string{"room_id"}},
					{"required": []string{"check_in"}},
					{"required": []string{"check_out"}},
				}},
			},
		},
	},
}

var BookingLockValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"_id", "owner", "expires_at", "created_at"},
		"properties": bson.M{
			"_id":        bson.M{"bsonType": "string", "minLength": 1},
			"owner":      bson.M{"bsonType": "string", "minLength": 1},
			"expires_at": bson.M{"bsonType": "date"},
			"created_at": bson.M{"bsonType": "date"},
		},
	},
}

// RoomGuardValidator describes the per-room write counters bumped by room
// booking transactions.
var RoomGuardValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"_id", "writes"},
		"properties": bson.M{
			"_id":    bson.M{"bsonType": "string", "minLength": 1},
			"writes": bson.M{"bsonType": []string{"int", "long"}},
		},
	},
}
