package entity

import "time"

// Account mirrors the user directory maintained by the auth service.
// This service only reads it to resolve transfer recipients.
type Account struct {
	ID        string    `bson:"_id" json:"id"`
	Email     string    `bson:"email" json:"email"`
	Name      string    `bson:"name" json:"name"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
