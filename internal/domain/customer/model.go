// Package customer provides the customer record and its single identifier
// scheme: every customer ID is an allocator-issued sequential numeric
// string. There is deliberately no second, store-generated key path, or the
// identifiers would lose their sequential guarantee.
package customer

import (
	"regexp"
	"time"

	"github.com/Masaki-Miyazawa/erp/internal/core/apperror"
)

var emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Customer represents a customer record.
type Customer struct {
	// ID is the allocator-issued sequential numeric string
	ID string `json:"id"`

	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Fields holds the caller-supplied profile data for Create.
type Fields struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

// ProfileUpdate holds optional replacement values for Update.
// Nil fields keep their current value.
type ProfileUpdate struct {
	Name    *string
	Email   *string
	Phone   *string
	Address *string
}

// Validate checks the profile fields.
func (f Fields) Validate() error {
	if f.Name == "" {
		return apperror.NewInvalidInput("name is required").
			WithDetail("field", "name")
	}
	if f.Email != "" && !emailRE.MatchString(f.Email) {
		return apperror.NewInvalidInput("invalid email format").
			WithDetail("field", "email")
	}
	return nil
}
