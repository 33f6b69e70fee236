package dto

import (
	"time"

	"github.com/Masaki-Miyazawa/erp/internal/domain/customer"
)

// CreateCustomerRequest is the customer creation payload. Identifiers are
// never accepted from the client; the allocator issues them.
type CreateCustomerRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// ToFields maps the request to the domain input type.
func (r CreateCustomerRequest) ToFields() customer.Fields {
	return customer.Fields{
		Name:    r.Name,
		Email:   r.Email,
		Phone:   r.Phone,
		Address: r.Address,
	}
}

// UpdateCustomerRequest is a partial profile update; absent fields keep
// their current value.
type UpdateCustomerRequest struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

// ToUpdate maps the request to the domain update type.
func (r UpdateCustomerRequest) ToUpdate() customer.ProfileUpdate {
	return customer.ProfileUpdate{
		Name:    r.Name,
		Email:   r.Email,
		Phone:   r.Phone,
		Address: r.Address,
	}
}

// CustomerResponse mirrors a customer record.
type CustomerResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FromCustomer maps a domain customer to its response shape.
func FromCustomer(c *customer.Customer) CustomerResponse {
	return CustomerResponse{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// FromCustomers maps a customer list.
func FromCustomers(customers []customer.Customer) []CustomerResponse {
	out := make([]CustomerResponse, len(customers))
	for i := range customers {
		out[i] = FromCustomer(&customers[i])
	}
	return out
}
