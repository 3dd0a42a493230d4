package model

type Room struct {
	ID       string `json:"id,omitempty" bson:"_id,omitempty"`
	Name     string `json:"name" bson:"name"`
	Letter   string `json:"letter" bson:"letter"`
	Number   int    `json:"number" bson:"number"`
	Capacity int    `json:"capacity" bson:"capacity"`
	Location string `json:"location" bson:"location"`
}
