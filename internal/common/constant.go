// Package common contains shared constants and sentinel errors used across
// gateway components.
package common

// RequestIDHeaderName carries the per-request correlation id, both inbound
// and on every downstream call.
const RequestIDHeaderName = "X-Request-Id"

// DefaultUserHeaderName is where the auth gateway puts the acting user id.
const DefaultUserHeaderName = "X-User-Id"

// Share permissions, lowest to highest.
const (
	PermissionRead  = "read"
	PermissionWrite = "write"
	PermissionOwner = "owner"
)

// IsPermission reports whether p is one of the defined share permissions.
func IsPermission(p string) bool {
	switch p {
	case PermissionRead, PermissionWrite, PermissionOwner:
		return true
	}
	return false
}
