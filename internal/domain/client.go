package domain

import (
	"context"
	"strings"
	"time"
)

// Client is a bank customer managed from the back-office.
type Client struct {
	BaseModel
	Name              string    `gorm:"size:100;not null;index" json:"name"`
	Surname           string    `gorm:"size:100;not null" json:"surname"`
	Email             string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Phone             string    `gorm:"size:20;index" json:"phone"`
	StreetAddress     string    `gorm:"size:255" json:"streetAddress"`
	City              string    `gorm:"size:100;index" json:"city"`
	State             string    `gorm:"size:100" json:"state"`
	PostalCode        string    `gorm:"size:20" json:"postalCode"`
	Country           string    `gorm:"size:100" json:"country"`
	Region            string    `gorm:"size:100;index" json:"region"`
	RegionCode        string    `gorm:"size:20" json:"regionCode"`
	Latitude          *float64  `json:"latitude"`
	Longitude         *float64  `json:"longitude"`
	DateOfBirth       *Date     `json:"dateOfBirth"`
	ProfilePictureURL string    `gorm:"size:512" json:"profilePictureUrl"`
	Accounts          []Account `gorm:"foreignKey:ClientID;constraint:OnDelete:SET NULL" json:"accounts"`
}

// FullName returns "Name Surname".
func (c *Client) FullName() string {
	return strings.TrimSpace(c.Name + " " + c.Surname)
}

// Sortable client fields, keyed by their wire name.
var ClientSortColumns = map[string]string{
	"name":        "name",
	"dateOfBirth": "date_of_birth",
	"createdAt":   "created_at",
}

// Default client list parameters.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	DefaultSortBy   = "name"
)

// ClientFilter holds the predicates and paging of a client list query.
// Empty strings and nil pointers mean "no filter".
type ClientFilter struct {
	PageRequest
	Name        string `json:"name,omitempty"`
	City        string `json:"city,omitempty"`
	Region      string `json:"region,omitempty"`
	RegionCode  string `json:"regionCode,omitempty"`
	Query       string `json:"query,omitempty"`
	PhonePrefix string `json:"phonePrefix,omitempty"`
	AgeMin      *int   `json:"ageMin,omitempty"`
	AgeMax      *int   `json:"ageMax,omitempty"`
	HasAccounts *bool  `json:"hasAccounts,omitempty"`
}

// DefaultClientFilter returns the unfiltered first page sorted by name.
func DefaultClientFilter() ClientFilter {
	return ClientFilter{PageRequest: PageRequest{
		Page:          0,
		Size:          DefaultPageSize,
		SortBy:        DefaultSortBy,
		SortDirection: SortAsc,
	}}
}

// Validate checks paging bounds, sort keys and the age range.
func (f ClientFilter) Validate() error {
	fields := map[string]string{}
	if f.Page < 0 {
		fields["page"] = "page must be zero or greater"
	}
	if f.Size < 1 || f.Size > MaxPageSize {
		fields["size"] = "size must be between 1 and 100"
	}
	if _, ok := ClientSortColumns[f.SortBy]; !ok {
		fields["sortBy"] = "sortBy must be one of name, dateOfBirth, createdAt"
	}
	if f.SortDirection != SortAsc && f.SortDirection != SortDesc {
		fields["sortDirection"] = "sortDirection must be asc or desc"
	}
	if f.AgeMin != nil && *f.AgeMin < 0 {
		fields["ageMin"] = "ageMin must be zero or greater"
	}
	if f.AgeMax != nil && *f.AgeMax < 0 {
		fields["ageMax"] = "ageMax must be zero or greater"
	}
	if f.AgeMin != nil && f.AgeMax != nil && *f.AgeMin > *f.AgeMax {
		fields["ageMax"] = "ageMax must not be less than ageMin"
	}
	if len(fields) > 0 {
		return NewFieldError(fields)
	}
	return nil
}

// ClientRepository defines the data access interface for clients.
type ClientRepository interface {
	Create(ctx context.Context, client *Client) error
	GetByID(ctx context.Context, id uint) (*Client, error)
	FindByEmail(ctx context.Context, email string) (*Client, error)
	FindByPhone(ctx context.Context, phone string) (*Client, error)
	List(ctx context.Context, filter ClientFilter, now time.Time) ([]Client, int64, error)
	Update(ctx context.Context, client *Client) error
	UpdateColumns(ctx context.Context, id uint, columns map[string]any) error
	Delete(ctx context.Context, id uint) error
	Count(ctx context.Context) (int64, error)
}

// ClientService defines the business logic interface for clients.
type ClientService interface {
	CreateClient(ctx context.Context, client *Client) (*Client, error)
	GetClient(ctx context.Context, id uint) (*Client, error)
	ListClients(ctx context.Context, filter ClientFilter) (*PageResult[Client], error)
	ReplaceClient(ctx context.Context, id uint, client *Client) (*Client, error)
	PatchClient(ctx context.Context, id uint, fields map[string]any) (*Client, error)
	SetProfilePicture(ctx context.Context, id uint, url string) (*Client, error)
	DeleteClient(ctx context.Context, id uint) error
}
