// Package models defines the records the gateway reads from and writes to
// its downstream services, plus the orphan ledger row it owns.
package models

import "time"

// FsObject kinds.
const (
	TypeFile     = "file"
	TypeFolder   = "folder"
	TypeShortcut = "shortcut"
)

// FsObject is a file-system node as the object directory returns it.
// Parent links form a tree; children are never embedded.
type FsObject struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	ParentID  *string   `json:"parent"`
	Type      string    `json:"type"`
	Bucket    string    `json:"bucket,omitempty"`
	Size      int64     `json:"size,omitempty"`
	Public    bool      `json:"public"`
	Client    string    `json:"client,omitempty"`
	Ref       string    `json:"ref,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (o *FsObject) IsFile() bool   { return o.Type == TypeFile }
func (o *FsObject) IsFolder() bool { return o.Type == TypeFolder }

// NewFile is the body of a create-file call.
type NewFile struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parent,omitempty"`
	Size     int64   `json:"size"`
	Bucket   string  `json:"bucket"`
	Public   bool    `json:"public"`
	Client   string  `json:"client"`
}

// FilePatch carries the fields a re-upload may change. Nil fields are left
// untouched by the directory.
type FilePatch struct {
	Size *int64  `json:"size,omitempty"`
	Name *string `json:"name,omitempty"`
}

// ShareResult is the directory's answer to a share call.
type ShareResult struct {
	FsObjectID       string    `json:"fsObjectId"`
	SharedUserID     string    `json:"sharedUserId"`
	SharedPermission string    `json:"sharedPermission"`
	CreatedAt        time.Time `json:"createdAt,omitempty"`
}

// User is an identity directory record. The gateway passes it through.
type User struct {
	ID            string `json:"id"`
	FirstName     string `json:"firstName,omitempty"`
	LastName      string `json:"lastName,omitempty"`
	FullName      string `json:"fullName,omitempty"`
	Mail          string `json:"mail,omitempty"`
	HierarchyFlat string `json:"hierarchyFlat,omitempty"`
}
