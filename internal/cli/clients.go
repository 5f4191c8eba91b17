package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/simp-lee/bankoffice/internal/console"
	"github.com/simp-lee/bankoffice/internal/domain"
)

func newClientsCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "clients",
		Aliases: []string{"client"},
		Short:   "Browse and maintain clients",
	}
	cmd.AddCommand(
		newClientsListCommand(e),
		newClientsBrowseCommand(e),
		newClientsShowCommand(e),
		newClientsEditCommand(e),
		newClientsDeleteCommand(e),
	)
	return cmd
}

// filterFlags maps list flags onto query predicates.
var filterFlags = []struct{ flag, key, usage string }{
	{"name", console.FilterName, "name contains"},
	{"city", console.FilterCity, "city contains"},
	{"region", console.FilterRegion, "region contains"},
	{"region-code", console.FilterRegionCode, "exact region code"},
	{"query", console.FilterQuery, "free text over name, surname, email and phone"},
	{"phone-prefix", console.FilterPhonePrefix, "phone starts with"},
	{"age-min", console.FilterAgeMin, "minimum age"},
	{"age-max", console.FilterAgeMax, "maximum age"},
	{"has-accounts", console.FilterHasAccounts, "true or false"},
}

type listFlags struct {
	filters map[string]*string
	page    int
	size    int
	sortBy  string
	desc    bool
}

func (f *listFlags) register(cmd *cobra.Command) {
	f.filters = make(map[string]*string, len(filterFlags))
	for _, ff := range filterFlags {
		f.filters[ff.key] = cmd.Flags().String(ff.flag, "", ff.usage)
	}
	cmd.Flags().IntVar(&f.page, "page", 1, "page number, starting at 1")
	cmd.Flags().IntVar(&f.size, "size", domain.DefaultPageSize, "rows per page")
	cmd.Flags().StringVar(&f.sortBy, "sort", domain.DefaultSortBy, "sort column (name, dateOfBirth, createdAt)")
	cmd.Flags().BoolVar(&f.desc, "desc", false, "sort descending")
}

func (f *listFlags) query() (*console.ClientQuery, error) {
	q := console.NewClientQuery()
	for key, v := range f.filters {
		if err := q.SetFilter(key, *v); err != nil {
			return nil, err
		}
	}
	dir := domain.SortAsc
	if f.desc {
		dir = domain.SortDesc
	}
	q.SetSort(f.sortBy, dir)
	q.SetSize(f.size)
	q.SetPage(f.page - 1)
	return q, nil
}

func newClientsListCommand(e *env) *cobra.Command {
	var lf listFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List clients matching filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := lf.query()
			if err != nil {
				return err
			}
			list := console.NewListQuery(e.api, console.WithQuery(q), console.WithListLogger(e.log.Logger))
			defer list.Close()

			if err := list.Refresh(cmd.Context()); err != nil {
				return reportFieldErrors(e.out, err)
			}
			state := list.State()
			if e.jsonOut {
				return writeJSON(e.out, state.Result)
			}
			printClients(e.out, state.Result, state.Query.ActiveFilters(), e.now())
			return nil
		},
	}
	lf.register(cmd)
	return cmd
}

const browseHelp = `Commands:
  <filter> <value>       set a filter (name, city, region, regionCode, query,
                         phonePrefix, ageMin, ageMax, hasAccounts)
  clear <filter>         remove a filter (applied like a filter edit)
  page <n>               go to page n
  size <n>               rows per page
  sort <column> [desc]   sort by name, dateOfBirth or createdAt
  reset                  clear every filter (applied like a filter edit)
  refresh                fetch again
  quit                   leave
`

func newClientsBrowseCommand(e *env) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Filter the client list interactively",
		Long:  "Reads commands from stdin. Filter edits are applied after a quiet period; paging and sorting apply at once.\n\n" + browseHelp,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.browse(cmd.Context(), debounce)
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", console.DefaultDebounce, "quiet period before a filter edit is applied")
	return cmd
}

func (e *env) browse(ctx context.Context, debounce time.Duration) error {
	list := console.NewListQuery(e.api,
		console.WithDebounce(debounce),
		console.WithListLogger(e.log.Logger),
		console.OnResult(func(s console.ListState) {
			if s.Err == nil {
				printClients(e.out, s.Result, s.Query.ActiveFilters(), e.now())
			}
		}),
		console.OnError(func(err error) {
			if fields := domain.FieldErrors(err); len(fields) > 0 {
				fmt.Fprintln(e.out, "Invalid filters:")
				printFieldErrors(e.out, fields)
				return
			}
			fmt.Fprintln(e.out, "Could not load clients:", err)
		}),
	)
	defer list.Close()

	if err := list.Refresh(ctx); err != nil && !isRecoverable(err) {
		return err
	}
	fmt.Fprintln(e.out, "Type 'help' for commands.")

	for {
		line, err := e.readLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		quit, err := e.browseCommand(ctx, list, strings.Fields(line))
		if err != nil && !isRecoverable(err) {
			return err
		}
		if quit {
			return nil
		}
	}
}

// isRecoverable reports whether a browse session can continue after err.
func isRecoverable(err error) bool {
	return !errors.Is(err, console.ErrClosed) && !domain.IsUnauthorized(err) && !errors.Is(err, context.Canceled)
}

func (e *env) browseCommand(ctx context.Context, list *console.ListQuery, args []string) (bool, error) {
	if len(args) == 0 {
		return false, nil
	}
	switch args[0] {
	case "quit", "exit", "q":
		return true, nil
	case "help", "?":
		fmt.Fprint(e.out, browseHelp)
		return false, nil
	case "refresh":
		return false, list.Refresh(ctx)
	case "reset":
		return false, list.Reset()
	case "clear":
		if len(args) != 2 {
			fmt.Fprintln(e.out, "usage: clear <filter>")
			return false, nil
		}
		return false, e.reportUsage(list.RemoveFilter(args[1]))
	case "page", "size":
		if len(args) != 2 {
			fmt.Fprintf(e.out, "usage: %s <n>\n", args[0])
			return false, nil
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			fmt.Fprintf(e.out, "%s must be a positive number\n", args[0])
			return false, nil
		}
		if args[0] == "page" {
			return false, list.SetPage(ctx, n-1)
		}
		return false, list.SetSize(ctx, n)
	case "sort":
		if len(args) < 2 || len(args) > 3 {
			fmt.Fprintln(e.out, "usage: sort <column> [asc|desc]")
			return false, nil
		}
		dir := domain.SortAsc
		if len(args) == 3 {
			dir = args[2]
		}
		return false, list.SetSort(ctx, args[1], dir)
	}

	if !console.IsFilterKey(args[0]) {
		fmt.Fprintf(e.out, "unknown command %q, type 'help'\n", args[0])
		return false, nil
	}
	return false, list.SetFilter(args[0], strings.Join(args[1:], " "))
}

func (e *env) reportUsage(err error) error {
	if errors.Is(err, console.ErrUnknownFilter) {
		fmt.Fprintln(e.out, err)
		return nil
	}
	return err
}

func parseClientID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid client id %q", s)
	}
	return uint(id), nil
}

func newClientsShowCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one client with its accounts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseClientID(args[0])
			if err != nil {
				return err
			}
			list := console.NewListQuery(e.api, console.WithListLogger(e.log.Logger))
			defer list.Close()

			client, err := list.Preview(cmd.Context(), id)
			if err != nil {
				return err
			}
			if e.jsonOut {
				return writeJSON(e.out, client)
			}
			printClient(e.out, client, e.now())
			return nil
		},
	}
}

func newClientsEditCommand(e *env) *cobra.Command {
	var (
		sets          []string
		location      string
		clearLocation bool
		yes           bool
	)
	cmd := &cobra.Command{
		Use:   "edit ID --set field=value ...",
		Short: "Change client fields after reviewing the differences",
		Long: "Applies --set edits to a copy of the client, shows the changed fields side by side " +
			"and asks for confirmation before sending only those fields.\n\nFields: " +
			strings.Join(console.EditableFields, ", "),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseClientID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			list := console.NewListQuery(e.api, console.WithListLogger(e.log.Logger))
			defer list.Close()

			original, err := list.Preview(ctx, id)
			if err != nil {
				return err
			}
			form := console.NewEditForm(original)
			if err := applyEdits(form, sets, location, clearLocation); err != nil {
				return err
			}

			sub, err := form.Submit(ctx, e.now())
			if errors.Is(err, console.ErrNoChanges) {
				fmt.Fprintln(e.out, console.NoChangesMessage)
				return nil
			}
			if err != nil {
				return reportFieldErrors(e.out, err)
			}

			handoff, err := console.NewHandoff(original, sub)
			if err != nil {
				return err
			}
			preview, err := console.NewPreview(handoff)
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "Changes to %s:\n", original.FullName())
			printPreview(e.out, preview.Rows())

			ok, err := e.confirm("Apply these changes?", yes)
			if err != nil {
				return err
			}
			if !ok {
				form.Cancel()
				fmt.Fprintln(e.out, "Discarded.")
				return nil
			}
			_, msg, err := preview.Confirm(ctx, e.api)
			if err != nil {
				return reportFieldErrors(e.out, err)
			}
			fmt.Fprintln(e.out, msg)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field=value; an empty value clears the field")
	cmd.Flags().StringVar(&location, "location", "", "latitude,longitude")
	cmd.Flags().BoolVar(&clearLocation, "clear-location", false, "remove the location")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "apply without asking")
	cmd.MarkFlagsMutuallyExclusive("location", "clear-location")
	return cmd
}

func applyEdits(form *console.Form, sets []string, location string, clearLocation bool) error {
	for _, s := range sets {
		field, value, ok := strings.Cut(s, "=")
		if !ok {
			return fmt.Errorf("--set %q: expected field=value", s)
		}
		if err := form.Set(strings.TrimSpace(field), value); err != nil {
			if errors.Is(err, console.ErrLocationViaMap) {
				return errors.New("use --location lat,lng or --clear-location to change the location")
			}
			return fmt.Errorf("--set %s: %w", field, err)
		}
	}
	switch {
	case clearLocation:
		form.ClearLocation()
	case location != "":
		latText, lngText, ok := strings.Cut(location, ",")
		if !ok {
			return errors.New("--location: expected latitude,longitude")
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(latText), 64)
		if err != nil {
			return fmt.Errorf("--location: bad latitude %q", latText)
		}
		lng, err := strconv.ParseFloat(strings.TrimSpace(lngText), 64)
		if err != nil {
			return fmt.Errorf("--location: bad longitude %q", lngText)
		}
		if err := form.SetLocation(lat, lng); err != nil {
			return err
		}
	}
	return nil
}

func reportFieldErrors(w io.Writer, err error) error {
	fields := domain.FieldErrors(err)
	if len(fields) == 0 {
		return err
	}
	fmt.Fprintln(w, "Please fix the following:")
	printFieldErrors(w, fields)
	return errors.New("validation failed")
}

func newClientsDeleteCommand(e *env) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a client after confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseClientID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			list := console.NewListQuery(e.api, console.WithListLogger(e.log.Logger))
			defer list.Close()

			prompt, err := list.RequestDelete(ctx, id)
			if err != nil {
				return err
			}
			ok, err := e.confirm(prompt.Text, yes)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(e.out, "Cancelled.")
				return nil
			}
			if err := list.ConfirmDelete(ctx, prompt); err != nil {
				return err
			}
			fmt.Fprintf(e.out, "Deleted %s.\n", prompt.Name)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "delete without asking")
	return cmd
}
