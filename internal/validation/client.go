package validation

import (
	"context"
	"time"

	"github.com/simp-lee/bankoffice/internal/domain"
)

// ClientFields is the validated projection of a client.
type ClientFields struct {
	Name              string   `json:"name" validate:"required,max=100"`
	Surname           string   `json:"surname" validate:"required,max=100"`
	Email             string   `json:"email" validate:"required,bankemail,max=255"`
	Phone             string   `json:"phone" validate:"omitempty,phone"`
	PostalCode        string   `json:"postalCode" validate:"max=20"`
	RegionCode        string   `json:"regionCode" validate:"max=20"`
	DateOfBirth       string   `json:"dateOfBirth" validate:"omitempty,adult"`
	Latitude          *float64 `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude         *float64 `json:"longitude" validate:"omitempty,min=-180,max=180"`
	ProfilePictureURL string   `json:"profilePictureUrl" validate:"max=512"`
}

// ClientFieldsOf projects c for validation.
func ClientFieldsOf(c *domain.Client) ClientFields {
	f := ClientFields{
		Name:              c.Name,
		Surname:           c.Surname,
		Email:             c.Email,
		Phone:             c.Phone,
		PostalCode:        c.PostalCode,
		RegionCode:        c.RegionCode,
		Latitude:          c.Latitude,
		Longitude:         c.Longitude,
		ProfilePictureURL: c.ProfilePictureURL,
	}
	if c.DateOfBirth != nil && !c.DateOfBirth.IsZero() {
		f.DateOfBirth = c.DateOfBirth.String()
	}
	return f
}

// Client checks every client rule as of now and returns per-field messages,
// or nil when c is valid.
func Client(ctx context.Context, now time.Time, c *domain.Client) map[string]string {
	fields := Struct(ctx, now, ClientFieldsOf(c))
	if (c.Latitude == nil) != (c.Longitude == nil) {
		if fields == nil {
			fields = map[string]string{}
		}
		fields["latitude"] = "latitude and longitude must be set together"
	}
	return fields
}
