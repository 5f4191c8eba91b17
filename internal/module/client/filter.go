package client

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/simp-lee/bankoffice/internal/domain"
)

// filterScope applies every non-empty predicate of f. Clients without a date
// of birth never match an age bound.
func filterScope(f domain.ClientFilter, now time.Time) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.Name != "" {
			db = db.Where("LOWER(name) LIKE ? ESCAPE '\\'", likePattern(f.Name))
		}
		if f.City != "" {
			db = db.Where("city = ?", f.City)
		}
		if f.Region != "" {
			db = db.Where("region = ?", f.Region)
		}
		if f.RegionCode != "" {
			db = db.Where("region_code = ?", f.RegionCode)
		}
		if f.Query != "" {
			p := likePattern(f.Query)
			db = db.Where(
				"LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(email) LIKE ? ESCAPE '\\' OR "+
					"LOWER(city) LIKE ? ESCAPE '\\' OR LOWER(region) LIKE ? ESCAPE '\\'",
				p, p, p, p,
			)
		}
		if f.PhonePrefix != "" {
			db = db.Where("phone LIKE ? ESCAPE '\\'", escapeLike(f.PhonePrefix)+"%")
		}
		if f.AgeMin != nil {
			// age >= min  <=>  born on or before today minus min years
			db = db.Where("date_of_birth <= ?", domain.NewDate(now.AddDate(-*f.AgeMin, 0, 0)))
		}
		if f.AgeMax != nil {
			// age <= max  <=>  born after today minus max+1 years
			db = db.Where("date_of_birth > ?", domain.NewDate(now.AddDate(-(*f.AgeMax + 1), 0, 0)))
		}
		if f.HasAccounts != nil {
			exists := "EXISTS (SELECT 1 FROM accounts WHERE accounts.client_id = clients.id)"
			if *f.HasAccounts {
				db = db.Where(exists)
			} else {
				db = db.Where("NOT " + exists)
			}
		}
		return db
	}
}

func likePattern(s string) string {
	return "%" + escapeLike(strings.ToLower(s)) + "%"
}

// escapeLike neutralizes LIKE wildcards in user input.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
