package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/simp-lee/bankoffice/internal/domain"
	"github.com/simp-lee/bankoffice/internal/validation"
)

// FormMode selects between creating a client and editing one.
type FormMode int

const (
	ModeCreate FormMode = iota
	ModeEdit
)

func (m FormMode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "create"
}

// MaxPictureBytes is the largest accepted profile picture.
const MaxPictureBytes int64 = 5 << 20

// PictureTypes maps accepted picture content types to their file extension.
var PictureTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// Form messages shown to the operator.
const (
	PictureTypeMessage     = "Only JPEG, PNG and GIF images are allowed"
	PictureTooLargeMessage = "Image must be 5MB or smaller"
	NoChangesMessage       = "No changes to save"
	TextValueMessage       = "must be text"
)

// Form errors.
var (
	ErrUnknownField     = errors.New("unknown field")
	ErrLocationViaMap   = errors.New("latitude and longitude are set through the location picker")
	ErrPictureType      = errors.New("picture must be a JPEG, PNG or GIF image")
	ErrPictureTooLarge  = errors.New("picture is larger than 5MB")
	ErrNoChanges        = errors.New("no changes to save")
	ErrFormNotSubmitted = errors.New("form has validation errors")
	ErrNotText          = errors.New(TextValueMessage)
)

// Attachment is a picture selected for upload.
type Attachment struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// Ext returns the stored-file extension for the attachment's content type.
func (a *Attachment) Ext() string {
	if ext, ok := PictureTypes[a.ContentType]; ok {
		return ext
	}
	return strings.ToLower(filepath.Ext(a.Name))
}

type clientField struct {
	label string
	get   func(c *domain.Client) any
	set   func(c *domain.Client, v any) error
}

func textField(label string, ptr func(c *domain.Client) *string) clientField {
	return clientField{
		label: label,
		get:   func(c *domain.Client) any { return *ptr(c) },
		set: func(c *domain.Client, v any) error {
			var s string
			switch x := v.(type) {
			case nil:
			case string:
				s = x
			case *string:
				if x != nil {
					s = *x
				}
			default:
				return ErrNotText
			}
			*ptr(c) = strings.TrimSpace(s)
			return nil
		},
	}
}

func floatField(label string, ptr func(c *domain.Client) **float64) clientField {
	return clientField{
		label: label,
		get:   func(c *domain.Client) any { return *ptr(c) },
		set: func(c *domain.Client, v any) error {
			f, err := toFloat(v)
			if err != nil {
				return err
			}
			*ptr(c) = f
			return nil
		},
	}
}

// EditableFields lists the client fields a form edits, in display order.
var EditableFields = []string{
	"name", "surname", "email", "phone", "dateOfBirth",
	"streetAddress", "city", "state", "postalCode", "country",
	"region", "regionCode", "latitude", "longitude", "profilePictureUrl",
}

var clientFields = map[string]clientField{
	"name":          textField("Name", func(c *domain.Client) *string { return &c.Name }),
	"surname":       textField("Surname", func(c *domain.Client) *string { return &c.Surname }),
	"email":         textField("Email", func(c *domain.Client) *string { return &c.Email }),
	"phone":         textField("Phone", func(c *domain.Client) *string { return &c.Phone }),
	"streetAddress": textField("Street address", func(c *domain.Client) *string { return &c.StreetAddress }),
	"city":          textField("City", func(c *domain.Client) *string { return &c.City }),
	"state":         textField("State", func(c *domain.Client) *string { return &c.State }),
	"postalCode":    textField("Postal code", func(c *domain.Client) *string { return &c.PostalCode }),
	"country":       textField("Country", func(c *domain.Client) *string { return &c.Country }),
	"region":        textField("Region", func(c *domain.Client) *string { return &c.Region }),
	"regionCode":    textField("Region code", func(c *domain.Client) *string { return &c.RegionCode }),
	"profilePictureUrl": textField("Profile picture", func(c *domain.Client) *string {
		return &c.ProfilePictureURL
	}),
	"latitude":  floatField("Latitude", func(c *domain.Client) **float64 { return &c.Latitude }),
	"longitude": floatField("Longitude", func(c *domain.Client) **float64 { return &c.Longitude }),
	"dateOfBirth": {
		label: "Date of birth",
		get:   func(c *domain.Client) any { return c.DateOfBirth },
		set: func(c *domain.Client, v any) error {
			d, err := toDate(v)
			if err != nil {
				return err
			}
			c.DateOfBirth = d
			return nil
		},
	},
}

// FieldLabel returns the display label of a client field.
func FieldLabel(field string) string {
	if f, ok := clientFields[field]; ok {
		return f.label
	}
	return field
}

// ClientSnapshot captures the editable fields of c for change tracking.
func ClientSnapshot(c *domain.Client) map[string]any {
	s := make(map[string]any, len(EditableFields))
	for _, name := range EditableFields {
		s[name] = normalize(clientFields[name].get(c))
	}
	return s
}

// ApplyFields writes a partial update onto c. The "id" key is ignored.
// Unknown fields and unparseable values are reported per field and leave c
// partially updated, so callers apply onto a copy.
func ApplyFields(c *domain.Client, fields map[string]any) map[string]string {
	errs := map[string]string{}
	for name, v := range fields {
		if name == "id" {
			continue
		}
		cf, ok := clientFields[name]
		if !ok {
			errs[name] = name + " cannot be updated"
			continue
		}
		if err := cf.set(c, v); err != nil {
			errs[name] = err.Error()
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Form is the create/edit state of a single client.
type Form struct {
	mode        FormMode
	id          uint
	draft       domain.Client
	tracker     *Tracker
	picture     *Attachment
	inputErrors map[string]string
	errors      map[string]string
}

// NewCreateForm returns an empty create form.
func NewCreateForm() *Form {
	return &Form{mode: ModeCreate, inputErrors: map[string]string{}}
}

// NewEditForm returns an edit form seeded from c, tracking changes against it.
func NewEditForm(c *domain.Client) *Form {
	return &Form{
		mode:        ModeEdit,
		id:          c.ID,
		draft:       cloneClient(c),
		tracker:     NewTracker(ClientSnapshot(c)),
		inputErrors: map[string]string{},
	}
}

// cloneClient copies the editable state of c without sharing pointers.
// Accounts are dropped.
func cloneClient(c *domain.Client) domain.Client {
	out := *c
	out.Accounts = nil
	if c.Latitude != nil {
		lat := *c.Latitude
		out.Latitude = &lat
	}
	if c.Longitude != nil {
		lng := *c.Longitude
		out.Longitude = &lng
	}
	if c.DateOfBirth != nil {
		dob := *c.DateOfBirth
		out.DateOfBirth = &dob
	}
	return out
}

// Mode returns the form mode.
func (f *Form) Mode() FormMode { return f.mode }

// ID returns the id of the client being edited, zero in create mode.
func (f *Form) ID() uint { return f.id }

// Draft returns a copy of the current draft.
func (f *Form) Draft() domain.Client { return f.draft }

// Value returns the current draft value of field.
func (f *Form) Value(field string) any {
	if cf, ok := clientFields[field]; ok {
		return normalize(cf.get(&f.draft))
	}
	return nil
}

// Original returns the value field had when editing began, nil in create
// mode.
func (f *Form) Original(field string) any {
	if f.tracker == nil {
		return nil
	}
	return f.tracker.Snapshot(field)
}

// Set updates one field of the draft. Latitude and longitude are rejected;
// use SetLocation.
func (f *Form) Set(field string, value any) error {
	if field == "latitude" || field == "longitude" {
		return ErrLocationViaMap
	}
	return f.set(field, value)
}

func (f *Form) set(field string, value any) error {
	cf, ok := clientFields[field]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	if err := cf.set(&f.draft, value); err != nil {
		f.inputErrors[field] = err.Error()
		return err
	}
	delete(f.inputErrors, field)
	if f.tracker != nil {
		f.tracker.RecordEdit(field, cf.get(&f.draft))
	}
	return nil
}

// SetLocation sets both coordinates from a map pick.
func (f *Form) SetLocation(lat, lng float64) error {
	if err := f.set("latitude", lat); err != nil {
		return err
	}
	return f.set("longitude", lng)
}

// ClearLocation removes both coordinates.
func (f *Form) ClearLocation() {
	_ = f.set("latitude", nil)
	_ = f.set("longitude", nil)
}

// AttachPicture selects a profile picture. Only JPEG, PNG and GIF up to
// MaxPictureBytes are accepted; a rejected picture leaves any previous
// selection in place.
func (f *Form) AttachPicture(a Attachment) error {
	if _, ok := PictureTypes[a.ContentType]; !ok {
		f.inputErrors["profilePicture"] = PictureTypeMessage
		return ErrPictureType
	}
	if a.Size > MaxPictureBytes {
		f.inputErrors["profilePicture"] = PictureTooLargeMessage
		return ErrPictureTooLarge
	}
	delete(f.inputErrors, "profilePicture")
	f.picture = &a
	return nil
}

// Picture returns the selected picture, if any.
func (f *Form) Picture() *Attachment { return f.picture }

// Changes returns the tracked changes. Create forms have none.
func (f *Form) Changes() []FieldChange {
	if f.tracker == nil {
		return nil
	}
	return f.tracker.Changes()
}

// Validate checks every rule as of now and returns the field messages.
func (f *Form) Validate(ctx context.Context, now time.Time) map[string]string {
	errs := map[string]string{}
	for k, v := range validation.Client(ctx, now, &f.draft) {
		errs[k] = v
	}
	for k, v := range f.inputErrors {
		errs[k] = v
	}
	f.errors = errs
	return errs
}

// Errors returns the messages from the last Validate call.
func (f *Form) Errors() map[string]string { return f.errors }

// Submission is what a valid form hands to the caller.
type Submission struct {
	Mode    FormMode
	ID      uint
	Client  domain.Client
	Fields  map[string]any
	Changes []FieldChange
	Picture *Attachment
}

// Submit validates the form. A create submission carries the full draft; an
// edit submission carries the id plus only the changed fields. An edit with
// no changes and no picture returns ErrNoChanges.
func (f *Form) Submit(ctx context.Context, now time.Time) (*Submission, error) {
	if errs := f.Validate(ctx, now); len(errs) > 0 {
		return nil, domain.NewFieldError(errs)
	}
	sub := &Submission{Mode: f.mode, ID: f.id, Client: f.draft, Picture: f.picture}
	if f.mode == ModeCreate {
		sub.Fields = make(map[string]any, len(EditableFields))
		for _, name := range EditableFields {
			sub.Fields[name] = f.Value(name)
		}
		return sub, nil
	}
	if f.tracker.Count() == 0 && f.picture == nil {
		return nil, ErrNoChanges
	}
	sub.Fields = f.tracker.Payload(f.id)
	sub.Changes = f.tracker.Changes()
	return sub, nil
}

// Cancel discards the draft's tracked changes and selected picture.
func (f *Form) Cancel() {
	if f.tracker != nil {
		f.tracker.Discard()
	}
	f.picture = nil
}

func toFloat(v any) (*float64, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case float64:
		return &x, nil
	case *float64:
		if x == nil {
			return nil, nil
		}
		f := *x
		return &f, nil
	case string:
		x = strings.TrimSpace(x)
		if x == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", x)
		}
		return &f, nil
	}
	return nil, fmt.Errorf("unsupported coordinate %T", v)
}

func toDate(v any) (*domain.Date, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case domain.Date:
		if x.IsZero() {
			return nil, nil
		}
		return &x, nil
	case *domain.Date:
		if x == nil || x.IsZero() {
			return nil, nil
		}
		d := *x
		return &d, nil
	case time.Time:
		d := domain.NewDate(x)
		return &d, nil
	case string:
		if strings.TrimSpace(x) == "" {
			return nil, nil
		}
		d, err := domain.ParseDate(x)
		if err != nil {
			return nil, errors.New("date must be YYYY-MM-DD")
		}
		return &d, nil
	}
	return nil, fmt.Errorf("unsupported date %T", v)
}
