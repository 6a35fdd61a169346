package model

type Tenant struct {
	ID         int64  `json:"id" db:"id" bson:"_id"`
	Email      string `json:"email" db:"email" bson:"email"`
	APIKeyHash string `json:"-" db:"api_key_hash" bson:"api_key_hash"`
	Ctime      int64  `json:"ctime" db:"ctime" bson:"ctime"`
}
