package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Admin is an allow-listed back-office operator. Authentication itself is done by the hosted
// identity provider; this table only says which verified emails may use the admin API.
type Admin struct {
	bun.BaseModel `bun:"table:admins"`

	ID        string    `bun:"id,pk" json:"id"`
	Email     string    `bun:"email,unique,notnull" json:"email"`
	Name      string    `bun:"name,notnull" json:"name"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}
