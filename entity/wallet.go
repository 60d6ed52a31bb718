package entity

import (
	"time"
)

// Wallet is a custodial signing wallet, one per application user, with an
// immutable address. The private key is stored AES-GCM encrypted and never
// leaves the vault; it is excluded from every JSON encoding.
type Wallet struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	UserID       string    `bson:"user_id" json:"user_id"`
	Address      string    `bson:"address" json:"address"`
	KeyEncrypted []byte    `bson:"key_encrypted" json:"-"`
	SaltMeta     string    `bson:"salt_meta" json:"-"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}
