// Package console implements the client-side state of the back-office
// console: filter and change tracking, the debounced client list, the entity
// form, the update preview flow and the session gate. It holds no transport;
// page handlers and the bankctl CLI drive it against a ClientLister.
package console

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/simp-lee/bankoffice/internal/domain"
)

// Predicate keys, in display order.
const (
	FilterName        = "name"
	FilterCity        = "city"
	FilterRegion      = "region"
	FilterRegionCode  = "regionCode"
	FilterQuery       = "query"
	FilterPhonePrefix = "phonePrefix"
	FilterAgeMin      = "ageMin"
	FilterAgeMax      = "ageMax"
	FilterHasAccounts = "hasAccounts"
)

// Structural keys.
const (
	KeyPage          = "page"
	KeySize          = "size"
	KeySortBy        = "sortBy"
	KeySortDirection = "sortDirection"
)

var filterKeys = []string{
	FilterName, FilterCity, FilterRegion, FilterRegionCode, FilterQuery,
	FilterPhonePrefix, FilterAgeMin, FilterAgeMax, FilterHasAccounts,
}

// ErrUnknownFilter is returned for keys that are not filter predicates.
var ErrUnknownFilter = errors.New("unknown filter")

// IsFilterKey reports whether key names a filter predicate.
func IsFilterKey(key string) bool {
	for _, k := range filterKeys {
		if k == key {
			return true
		}
	}
	return false
}

// ActiveFilter is a non-empty predicate ready for display as a chip.
type ActiveFilter struct {
	Key   string
	Value string
	Label string
}

// ClientQuery is the filter/paging/sort state of the client list.
// Predicate changes always return to the first page.
type ClientQuery struct {
	predicates    map[string]string
	Page          int
	Size          int
	SortBy        string
	SortDirection string
}

// NewClientQuery returns the default query: no predicates, first page,
// default page size, sorted by name ascending.
func NewClientQuery() *ClientQuery {
	return &ClientQuery{
		predicates:    map[string]string{},
		Size:          domain.DefaultPageSize,
		SortBy:        domain.DefaultSortBy,
		SortDirection: domain.SortAsc,
	}
}

// Clone returns an independent copy of q.
func (q *ClientQuery) Clone() *ClientQuery {
	c := *q
	c.predicates = make(map[string]string, len(q.predicates))
	for k, v := range q.predicates {
		c.predicates[k] = v
	}
	return &c
}

// Get returns the current value of a predicate, or "" when unset.
func (q *ClientQuery) Get(key string) string {
	return q.predicates[key]
}

// SetFilter sets one predicate and resets the page to zero. A blank value
// clears the predicate.
func (q *ClientQuery) SetFilter(key, value string) error {
	if !IsFilterKey(key) {
		return ErrUnknownFilter
	}
	value = strings.TrimSpace(value)
	if value == "" {
		delete(q.predicates, key)
	} else {
		q.predicates[key] = value
	}
	q.Page = 0
	return nil
}

// RemoveFilter clears one predicate.
func (q *ClientQuery) RemoveFilter(key string) error {
	return q.SetFilter(key, "")
}

// SetPage moves to page n. Predicates are left as they are.
func (q *ClientQuery) SetPage(n int) {
	if n < 0 {
		n = 0
	}
	q.Page = n
}

// SetSize changes the page size and returns to the first page.
func (q *ClientQuery) SetSize(n int) {
	q.Size = n
	q.Page = 0
}

// SetSort changes the sort column and direction and returns to the first page.
func (q *ClientQuery) SetSort(by, direction string) {
	if by != "" {
		q.SortBy = by
	}
	if direction != "" {
		q.SortDirection = strings.ToLower(direction)
	}
	q.Page = 0
}

// Reset restores the default query.
func (q *ClientQuery) Reset() {
	*q = *NewClientQuery()
}

// ActiveFilters lists the non-empty predicates in display order.
func (q *ClientQuery) ActiveFilters() []ActiveFilter {
	var out []ActiveFilter
	for _, k := range filterKeys {
		v, ok := q.predicates[k]
		if !ok || v == "" {
			continue
		}
		out = append(out, ActiveFilter{Key: k, Value: v, Label: capitalize(k) + ": " + v})
	}
	return out
}

// Values encodes q as query parameters. Empty predicates are omitted;
// structural keys are always present.
func (q *ClientQuery) Values() url.Values {
	v := url.Values{}
	for _, k := range filterKeys {
		if val := q.predicates[k]; val != "" {
			v.Set(k, val)
		}
	}
	v.Set(KeyPage, strconv.Itoa(q.Page))
	v.Set(KeySize, strconv.Itoa(q.Size))
	v.Set(KeySortBy, q.SortBy)
	v.Set(KeySortDirection, q.SortDirection)
	return v
}

// Encode is Values().Encode().
func (q *ClientQuery) Encode() string {
	return q.Values().Encode()
}

// ParseClientQuery rebuilds a query from parameters. Unknown keys are
// ignored and malformed paging values fall back to defaults; range checks
// happen in Filter.
func ParseClientQuery(v url.Values) *ClientQuery {
	q := NewClientQuery()
	for _, k := range filterKeys {
		if val := strings.TrimSpace(v.Get(k)); val != "" {
			q.predicates[k] = val
		}
	}
	if n, err := strconv.Atoi(v.Get(KeyPage)); err == nil && n >= 0 {
		q.Page = n
	}
	if n, err := strconv.Atoi(v.Get(KeySize)); err == nil && n > 0 {
		q.Size = n
	}
	if s := v.Get(KeySortBy); s != "" {
		q.SortBy = s
	}
	if s := v.Get(KeySortDirection); s != "" {
		q.SortDirection = strings.ToLower(s)
	}
	return q
}

// Filter converts q into a validated domain filter.
func (q *ClientQuery) Filter() (domain.ClientFilter, error) {
	f := domain.ClientFilter{
		PageRequest: domain.PageRequest{
			Page:          q.Page,
			Size:          q.Size,
			SortBy:        q.SortBy,
			SortDirection: q.SortDirection,
		},
		Name:        q.predicates[FilterName],
		City:        q.predicates[FilterCity],
		Region:      q.predicates[FilterRegion],
		RegionCode:  q.predicates[FilterRegionCode],
		Query:       q.predicates[FilterQuery],
		PhonePrefix: q.predicates[FilterPhonePrefix],
	}
	bad := map[string]string{}
	f.AgeMin = parseIntPredicate(q.predicates[FilterAgeMin], FilterAgeMin, bad)
	f.AgeMax = parseIntPredicate(q.predicates[FilterAgeMax], FilterAgeMax, bad)
	if s := q.predicates[FilterHasAccounts]; s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			bad[FilterHasAccounts] = "hasAccounts must be true or false"
		} else {
			f.HasAccounts = &b
		}
	}
	if len(bad) > 0 {
		return f, domain.NewFieldError(bad)
	}
	if err := f.Validate(); err != nil {
		return f, err
	}
	return f, nil
}

func parseIntPredicate(s, key string, bad map[string]string) *int {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		bad[key] = key + " must be a whole number"
		return nil
	}
	return &n
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
