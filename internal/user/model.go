package user

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/pos-platform/internal/auth"
)

type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         auth.Role  `json:"role" db:"role"`
	TenantID     *uuid.UUID `json:"tenant_id,omitempty" db:"tenant_id"`
	Superuser    bool       `json:"is_superuser" db:"is_superuser"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// Principal maps the stored user to the authorization layer's view of it.
func (u *User) Principal() *auth.Principal {
	return &auth.Principal{
		UserID:    u.ID,
		Role:      u.Role,
		TenantID:  u.TenantID,
		Superuser: u.Superuser,
	}
}
