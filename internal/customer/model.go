package customer

import (
	"time"

	"github.com/gofrs/uuid"
)

type Customer struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	TenantID  *uuid.UUID `json:"tenant_id,omitempty" db:"tenant_id"`
	Name      string     `json:"name" db:"name"`
	Email     string     `json:"email,omitempty" db:"email"`
	Phone     string     `json:"phone,omitempty" db:"phone"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}
