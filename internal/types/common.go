package types

import (
	uuid "github.com/gofrs/uuid"
)

// HTTP Header Constants
const (
	HeaderUID           = "uid"
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"
)

// Authentication Constants
const (
	BearerPrefix = "Bearer "
)

// UserCtxName is the fiber Locals key holding the authenticated UserContext
const UserCtxName = "user"

// UserContext is the authenticated user as carried by the access token.
// Its profile fields feed the denormalized author snapshot on comments.
type UserContext struct {
	UserID    uuid.UUID `json:"uid"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Nickname  string    `json:"nickname"`
	Avatar    string    `json:"avatar"`
	Role      string    `json:"role"`
}
