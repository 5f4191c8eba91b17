// Package validation holds the field rules shared by the console form, the
// client service and request binding.
package validation

import (
	"context"
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/simp-lee/bankoffice/internal/domain"
)

// MinAge is the minimum client age in years.
const MinAge = 18

var (
	emailPattern = regexp.MustCompile(`(?i)^[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}$`)
	phonePattern = regexp.MustCompile(`^[2459]\d{7}$`)
)

type nowKey struct{}

// WithNow attaches the reference instant used by the "adult" rule.
func WithNow(ctx context.Context, now time.Time) context.Context {
	return context.WithValue(ctx, nowKey{}, now)
}

func nowFrom(ctx context.Context) time.Time {
	if now, ok := ctx.Value(nowKey{}).(time.Time); ok {
		return now
	}
	return time.Now()
}

// IsEmail reports whether s matches the accepted local@domain.tld grammar.
func IsEmail(s string) bool { return emailPattern.MatchString(s) }

// IsPhone reports whether s is an 8-digit national number.
func IsPhone(s string) bool { return phonePattern.MatchString(s) }

// Register installs the custom tags (bankemail, phone, adult) on v and makes
// field errors report JSON names.
func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return errors.Join(
		v.RegisterValidation("bankemail", func(fl validator.FieldLevel) bool {
			return IsEmail(fl.Field().String())
		}),
		v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return IsPhone(fl.Field().String())
		}),
		v.RegisterValidationCtx("adult", func(ctx context.Context, fl validator.FieldLevel) bool {
			dob, err := domain.ParseDate(fl.Field().String())
			if err != nil {
				return false
			}
			now := nowFrom(ctx)
			return !dob.After(now) && dob.AgeAt(now) >= MinAge
		}),
	)
}

var std = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := Register(v); err != nil {
		panic("validation: " + err.Error())
	}
	return v
}

// Struct validates s and returns JSON-named field messages, or nil when valid.
func Struct(ctx context.Context, now time.Time, s any) map[string]string {
	err := std.StructCtx(WithNow(ctx, now), s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return map[string]string{"_": err.Error()}
	}
	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		if _, seen := fields[fe.Field()]; !seen {
			fields[fe.Field()] = Message(fe.Field(), fe.Tag(), fe.Param())
		}
	}
	return fields
}

// Message renders a tag failure as a human-readable message.
func Message(field, tag, param string) string {
	switch tag {
	case "required":
		return field + " is required"
	case "email", "bankemail":
		return field + " must be a valid email address"
	case "phone":
		return field + " must be an 8-digit number starting with 2, 4, 5 or 9"
	case "adult":
		return field + " must be a past date at least 18 years ago"
	case "min":
		return field + " must be at least " + param
	case "max":
		return field + " must be at most " + param
	case "oneof":
		return field + " must be one of " + param
	}
	if param != "" {
		return field + " failed " + tag + "=" + param
	}
	return field + " failed " + tag
}
