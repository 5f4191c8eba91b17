package client

import "github.com/simp-lee/bankoffice/internal/domain"

// ClientRequest is the body of create and full-update requests. Field rules
// are enforced by the service so that API and console share them.
type ClientRequest struct {
	Name              string       `json:"name"`
	Surname           string       `json:"surname"`
	Email             string       `json:"email"`
	Phone             string       `json:"phone"`
	StreetAddress     string       `json:"streetAddress"`
	City              string       `json:"city"`
	State             string       `json:"state"`
	PostalCode        string       `json:"postalCode"`
	Country           string       `json:"country"`
	Region            string       `json:"region"`
	RegionCode        string       `json:"regionCode"`
	Latitude          *float64     `json:"latitude"`
	Longitude         *float64     `json:"longitude"`
	DateOfBirth       *domain.Date `json:"dateOfBirth"`
	ProfilePictureURL string       `json:"profilePictureUrl"`
}

// ToClient converts the request into a client without id or accounts.
func (r *ClientRequest) ToClient() *domain.Client {
	dob := r.DateOfBirth
	if dob != nil && dob.IsZero() {
		dob = nil
	}
	return &domain.Client{
		Name:              r.Name,
		Surname:           r.Surname,
		Email:             r.Email,
		Phone:             r.Phone,
		StreetAddress:     r.StreetAddress,
		City:              r.City,
		State:             r.State,
		PostalCode:        r.PostalCode,
		Country:           r.Country,
		Region:            r.Region,
		RegionCode:        r.RegionCode,
		Latitude:          r.Latitude,
		Longitude:         r.Longitude,
		DateOfBirth:       dob,
		ProfilePictureURL: r.ProfilePictureURL,
	}
}

// ProfilePictureRequest sets a client's picture URL.
type ProfilePictureRequest struct {
	ProfilePictureURL string `json:"profilePictureUrl" form:"profilePictureUrl"`
}
