package client

import (
	"context"
	"strconv"

	"github.com/simp-lee/pagination"

	"github.com/simp-lee/bankoffice/internal/console"
	"github.com/simp-lee/bankoffice/internal/domain"
)

// filterChip is an active filter with the URL that removes it.
type filterChip struct {
	console.ActiveFilter
	RemoveURL string
}

// sortLink is a sortable column header.
type sortLink struct {
	Column    string
	Label     string
	URL       string
	Active    bool
	Direction string
}

// pageLink is one pager entry.
type pageLink struct {
	Number  int
	URL     string
	Current bool
}

type pagerView struct {
	PrevURL string
	NextURL string
	Links   []pageLink
}

// formView is the template data for the create/edit form.
type formView struct {
	Values    map[string]string
	Originals map[string]string
	Errors    map[string]string
	Changed   map[string]bool
	// ChangedLabels names the changed fields in display order.
	ChangedLabels []string
	ID            uint
}

var sortColumns = []struct{ column, label string }{
	{"name", "Name"},
	{"dateOfBirth", "Date of birth"},
	{"createdAt", "Created"},
}

// maxPageLinks bounds the numbered links around the current page.
const maxPageLinks = 7

func listURL(q *console.ClientQuery) string {
	return listPath + "?" + q.Encode()
}

func activeFilterViews(q *console.ClientQuery) []filterChip {
	active := q.ActiveFilters()
	out := make([]filterChip, 0, len(active))
	for _, f := range active {
		next := q.Clone()
		_ = next.RemoveFilter(f.Key)
		out = append(out, filterChip{ActiveFilter: f, RemoveURL: listURL(next)})
	}
	return out
}

// sortLinks builds column headers. Clicking the active column flips the
// direction; any other column starts ascending.
func sortLinks(q *console.ClientQuery) []sortLink {
	out := make([]sortLink, 0, len(sortColumns))
	for _, col := range sortColumns {
		dir := domain.SortAsc
		active := q.SortBy == col.column
		if active && q.SortDirection == domain.SortAsc {
			dir = domain.SortDesc
		}
		next := q.Clone()
		next.SetSort(col.column, dir)
		link := sortLink{Column: col.column, Label: col.label, URL: listURL(next), Active: active}
		if active {
			link.Direction = q.SortDirection
		}
		out = append(out, link)
	}
	return out
}

func pageLinks(ctx context.Context, q *console.ClientQuery, result *domain.PageResult[domain.Client]) pagerView {
	var v pagerView
	at := func(n int) string {
		next := q.Clone()
		next.SetPage(n)
		return listURL(next)
	}
	if !result.First() {
		v.PrevURL = at(result.Page - 1)
	}
	if !result.Last() {
		v.NextURL = at(result.Page + 1)
	}
	if result.TotalPages == 0 || result.Size <= 0 {
		return v
	}

	// The rows are already loaded; the paginator only lays out the window.
	window, err := pagination.NewPaginator[domain.Client](
		pagination.WithItemsPerPage[domain.Client](result.Size),
		pagination.WithPagesInRange[domain.Client](maxPageLinks),
		pagination.WithKnownTotal[domain.Client](result.TotalElements),
		pagination.WithSliceCallback[domain.Client](func(context.Context, int, int) ([]domain.Client, error) {
			return result.Content, nil
		}),
	).Paginate(ctx, result.Page+1)
	if err != nil {
		return v
	}
	for _, n := range window.Pages {
		v.Links = append(v.Links, pageLink{Number: n, URL: at(n - 1), Current: n-1 == result.Page})
	}
	return v
}

func newFormView(f *console.Form, errs map[string]string) formView {
	v := formView{
		Values:    make(map[string]string, len(console.EditableFields)),
		Originals: make(map[string]string, len(console.EditableFields)),
		Errors:    errs,
		Changed:   map[string]bool{},
		ID:        f.ID(),
	}
	if v.Errors == nil {
		v.Errors = map[string]string{}
	}
	for _, ch := range f.Changes() {
		v.Changed[ch.Field] = true
	}
	for _, name := range console.EditableFields {
		v.Values[name] = formValue(f.Value(name))
		v.Originals[name] = formValue(f.Original(name))
		if v.Changed[name] {
			v.ChangedLabels = append(v.ChangedLabels, console.FieldLabel(name))
		}
	}
	return v
}

func formValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case domain.Date:
		return x.String()
	}
	return console.FormatValue(v)
}
