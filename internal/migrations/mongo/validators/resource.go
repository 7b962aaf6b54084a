package validators

import "go.mongodb.org/mongo-driver/bson"

var RoomValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"name", "owner_id"},
		"properties": bson.M{
			"name":     bson.M{"bsonType": "string", "minLength": 1},
			"owner_id": bson.M{"bsonType": "string", "minLength": 1},
		},
	},
}

// ExperienceValidator checks start and end are "HH:MM".
var ExperienceValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"name", "owner_id", "start", "end"},
		"properties": bson.M{
			"name":     bson.M{"bsonType": "string", "minLength": 1},
			"owner_id": bson.M{"bsonType": "string", "minLength": 1},
			"start":    bson.M{"bsonType": "string", "pattern": timeOfDayPattern},
			"end":      bson.M{"bsonType": "string", "pattern": timeOfDayPattern},
		},
	},
}

const timeOfDayPattern = `^([01][0-9]|2[0-3]):[0-5][0-9]$`
