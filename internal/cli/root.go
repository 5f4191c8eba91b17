// Package cli implements bankctl, the command-line console for the
// back-office API.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/simp-lee/logger"
	"github.com/spf13/cobra"

	"github.com/simp-lee/bankoffice/internal/apiclient"
	"github.com/simp-lee/bankoffice/internal/config"
	"github.com/simp-lee/bankoffice/internal/console"
)

// DefaultServer is used when neither --server nor BANKCTL_SERVER is set.
const DefaultServer = "http://localhost:8080"

// env is the state shared by every command of one invocation.
type env struct {
	server    string
	tokenFile string
	logLevel  string
	jsonOut   bool

	log     *logger.Logger
	session *console.Session
	api     *apiclient.Client
	now     func() time.Time

	in  *bufio.Reader
	out *lockedWriter
}

// lockedWriter serialises writes from the command and from list callbacks
// that run on the debounce timer.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// NewRootCommand builds the bankctl command tree.
func NewRootCommand() *cobra.Command {
	e := &env{now: time.Now}

	root := &cobra.Command{
		Use:           "bankctl",
		Short:         "Command-line console for the bank back office",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			e.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&e.server, "server", envOr("BANKCTL_SERVER", DefaultServer), "API base URL")
	flags.StringVar(&e.tokenFile, "token-file", envOr("BANKCTL_TOKEN_FILE", defaultTokenFile()), "where the session token is kept")
	flags.StringVar(&e.logLevel, "log-level", "warn", "log level written to stderr (debug, info, warn, error)")
	flags.BoolVar(&e.jsonOut, "json", false, "print JSON instead of tables")

	root.AddCommand(
		newLoginCommand(e),
		newLogoutCommand(e),
		newWhoamiCommand(e),
		newClientsCommand(e),
		newAccountsCommand(e),
		newDashboardCommand(e),
	)
	return root
}

// Execute runs bankctl with args. Errors are written to stderr.
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(stderr, "bankctl:", err)
		if errors.Is(err, apiclient.ErrNotSignedIn) || errors.Is(err, apiclient.ErrUnauthorized) {
			fmt.Fprintln(stderr, "run 'bankctl login' to sign in")
		}
	}
	return err
}

func (e *env) setup(cmd *cobra.Command) error {
	log, err := config.NewCLILogger(e.logLevel, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("set up logger: %w", err)
	}
	e.log = log

	e.session = console.NewSession(console.FileTokenStore{Path: e.tokenFile})
	if err := e.session.Restore(); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	e.session.OnClear(func() {
		e.log.Debug("session cleared", "token_file", e.tokenFile)
	})

	e.api, err = apiclient.New(e.server, e.session, apiclient.WithLogger(e.log.Logger))
	if err != nil {
		return err
	}
	e.in = bufio.NewReader(cmd.InOrStdin())
	e.out = &lockedWriter{w: cmd.OutOrStdout()}
	return nil
}

func (e *env) close() {
	if e.log != nil {
		_ = e.log.Close()
	}
}

// readLine reads one line of input without its line ending.
func (e *env) readLine() (string, error) {
	line, err := e.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// confirm asks a yes/no question; anything but y or yes is a no.
func (e *env) confirm(question string, assumeYes bool) (bool, error) {
	if assumeYes {
		return true, nil
	}
	fmt.Fprintf(e.out, "%s [y/N]: ", question)
	answer, err := e.readLine()
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "bankctl", "token")
}
