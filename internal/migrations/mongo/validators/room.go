package validators

import "go.mongodb.org/mongo-driver/bson"

var RoomValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"name", "capacity"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":      bson.M{"bsonType": "objectId"},
			"name":     bson.M{"bsonType": "string", "minLength": 1, "maxLength": 50},
			"letter":   bson.M{"bsonType": "string", "maxLength": 1},
			"number":   bson.M{"bsonType": "int"},
			"capacity": bson.M{"bsonType": "int", "minimum": 1},
			"location": bson.M{"bsonType": "string"},
		},
	},
}
