package models

import "time"

// Orphan kinds.
const (
	OrphanDirectoryRecord = "directory-record"
	OrphanStoredObject    = "stored-object"
)

// Operations an orphan can originate from.
const (
	OperationUpload    = "upload"
	OperationReupload  = "reupload"
	OperationDuplicate = "duplicate"
	OperationDelete    = "delete"
)

// Orphan is a side effect a saga could not undo because its compensation
// call failed. Operators clear it by hand and then resolve the row.
type Orphan struct {
	ID        string    `db:"id" json:"id" cbor:"1,keyasint"`
	Kind      string    `db:"kind" json:"kind" cbor:"2,keyasint"`
	Owner     string    `db:"owner" json:"owner" cbor:"3,keyasint"`
	Bucket    string    `db:"bucket" json:"bucket,omitempty" cbor:"4,keyasint,omitempty"`
	ObjectID  string    `db:"object_id" json:"objectId" cbor:"5,keyasint"`
	Operation string    `db:"operation" json:"operation" cbor:"6,keyasint"`
	Reason    string    `db:"reason" json:"reason" cbor:"7,keyasint"`
	CreatedAt time.Time `db:"created_at" json:"createdAt" cbor:"8,keyasint"`
}
