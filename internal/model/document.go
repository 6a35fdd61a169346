package model

type Document struct {
	ID        int64  `json:"id" db:"id" bson:"_id"`
	OwnerID   int64  `json:"owner_id" db:"owner_id" bson:"owner_id"`
	Title     string `json:"title" db:"title" bson:"title"`
	RawSource string `json:"raw_source" db:"raw_source" bson:"raw_source"`
	Ctime     int64  `json:"ctime" db:"ctime" bson:"ctime"`
}

// Translation is the rendered form of exactly one Document.
type Translation struct {
	DocumentID int64  `json:"document_id" db:"document_id" bson:"document_id"`
	Backend    string `json:"backend" db:"backend" bson:"backend"`
	Content    string `json:"content" db:"content" bson:"content"`
}

type DocumentSummary struct {
	ID      int64  `json:"id" db:"id"`
	OwnerID int64  `json:"owner_id" db:"owner_id"`
	Owner   string `json:"owner" db:"owner"`
	Title   string `json:"title" db:"title"`
	Ctime   int64  `json:"ctime" db:"ctime"`
}
