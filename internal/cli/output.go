package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/simp-lee/bankoffice/internal/console"
	"github.com/simp-lee/bankoffice/internal/domain"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 1, 2, ' ', 0)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func ageText(dob *domain.Date, now time.Time) string {
	if n, ok := console.Age(dob, now); ok {
		return strconv.Itoa(n)
	}
	return "-"
}

func dateText(d *domain.Date) string {
	if d == nil || d.IsZero() {
		return "-"
	}
	return d.String()
}

func printClients(w io.Writer, page *domain.PageResult[domain.Client], active []console.ActiveFilter, now time.Time) {
	if page == nil {
		return
	}
	for _, f := range active {
		fmt.Fprintf(w, "[%s] ", f.Label)
	}
	if len(active) > 0 {
		fmt.Fprintln(w)
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tPHONE\tCITY\tREGION\tAGE")
	for _, c := range page.Content {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.FullName(), c.Email, orDash(c.Phone), orDash(c.City), orDash(c.Region), ageText(c.DateOfBirth, now))
	}
	tw.Flush()

	if len(page.Content) == 0 {
		fmt.Fprintln(w, "No clients match these filters.")
	}
	pages := page.TotalPages
	if pages == 0 {
		pages = 1
	}
	fmt.Fprintf(w, "Page %d of %d, %d clients\n", page.Page+1, pages, page.TotalElements)
}

func printClient(w io.Writer, c *domain.Client, now time.Time) {
	tw := newTable(w)
	row := func(label, value string) { fmt.Fprintf(tw, "%s:\t%s\n", label, orDash(value)) }
	row("ID", strconv.FormatUint(uint64(c.ID), 10))
	row("Name", c.FullName())
	row("Email", c.Email)
	row("Phone", c.Phone)
	dob := dateText(c.DateOfBirth)
	if age := ageText(c.DateOfBirth, now); age != "-" {
		dob += " (" + age + " years)"
	}
	row("Date of birth", dob)
	row("Address", c.StreetAddress)
	row("City", c.City)
	row("Postal code", c.PostalCode)
	row("State", c.State)
	row("Country", c.Country)
	row("Region", c.Region)
	row("Region code", c.RegionCode)
	if c.Latitude != nil && c.Longitude != nil {
		row("Location", fmt.Sprintf("%g, %g", *c.Latitude, *c.Longitude))
	} else {
		row("Location", "")
	}
	row("Picture", c.ProfilePictureURL)
	tw.Flush()

	if len(c.Accounts) > 0 {
		fmt.Fprintln(w)
		printAccounts(w, c.Accounts, false)
	}
}

func printAccounts(w io.Writer, accounts []domain.Account, withClient bool) {
	tw := newTable(w)
	header := "RIB\tTYPE\tSTATUS\tBALANCE\tCURRENCY"
	if withClient {
		header += "\tCLIENT"
	}
	fmt.Fprintln(tw, header)
	for _, a := range accounts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s", a.RIB, a.Type, a.Status, a.Balance.StringFixed(2), a.Currency)
		if withClient {
			owner := "-"
			if a.Client != nil {
				owner = a.Client.FullName()
			}
			fmt.Fprintf(tw, "\t%s", owner)
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
}

func printPreview(w io.Writer, rows []console.PreviewRow) {
	tw := newTable(w)
	fmt.Fprintln(tw, "FIELD\tCURRENT\tNEW")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Label, orDash(r.Old), orDash(r.New))
	}
	tw.Flush()
}

func printFieldErrors(w io.Writer, errs map[string]string) {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		fmt.Fprintf(w, "  %s: %s\n", console.FieldLabel(f), errs[f])
	}
}

var dashboardStatusOrder = []domain.AccountStatus{
	domain.AccountActive, domain.AccountPendingActivation, domain.AccountInactive,
	domain.AccountSuspended, domain.AccountBlocked, domain.AccountClosed,
}

func printDashboard(w io.Writer, s *domain.DashboardStats) {
	tw := newTable(w)
	fmt.Fprintf(tw, "Clients:\t%d\n", s.TotalClients)
	fmt.Fprintf(tw, "Accounts:\t%d\n", s.TotalAccounts)
	fmt.Fprintf(tw, "Total balance:\t%s\n", s.TotalBalance.StringFixed(2))
	tw.Flush()

	fmt.Fprintln(w)
	tw = newTable(w)
	fmt.Fprintln(tw, "STATUS\tACCOUNTS")
	for _, st := range dashboardStatusOrder {
		fmt.Fprintf(tw, "%s\t%d\n", st, s.AccountsByStatus[st])
	}
	tw.Flush()
}
