package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/keydesk/keydesk/internal/service"
)

func (a *app) newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin users",
		Long:  "Create and list the administrators who can sign in to the dashboard.",
	}

	cmd.AddCommand(a.newAdminCreateCmd())
	cmd.AddCommand(a.newAdminListCmd())

	return cmd
}

// ---------- admin create ----------

func (a *app) newAdminCreateCmd() *cobra.Command {
	var (
		email    string
		password string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new admin user",
		Example: `  keydesk admin create --email admin@example.com --password secret
  keydesk admin create --email admin@example.com  # prompts for password`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAdminCreate(cmd, email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "Admin password (prompted if omitted)")
	cmd.MarkFlagRequired("email")

	return cmd
}

func (a *app) runAdminCreate(cmd *cobra.Command, email, password string) error {
	email = strings.TrimSpace(email)
	if !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email address: %q", email)
	}

	if password == "" {
		var err error
		password, err = promptPassword(cmd)
		if err != nil {
			return err
		}
	}
	if password == "" {
		return errors.New("password must not be empty")
	}

	s, err := a.settings()
	if err != nil {
		return err
	}
	st, err := openStore(cmd.Context(), s)
	if err != nil {
		return err
	}
	defer st.Close()

	authSvc := service.NewAuthService(st, service.NewCredentials(s.Auth.BcryptCost))
	admin, err := authSvc.Register(cmd.Context(), email, password)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			return fmt.Errorf("admin %q already exists", email)
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created admin user %q (id %d)\n", admin.Email, admin.ID)
	return nil
}

// promptPassword reads a password twice from a terminal without echo. When
// stdin is not a terminal a single line is read instead, so scripts can pipe
// the password in.
func promptPassword(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()
	out := cmd.ErrOrStderr()

	f, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return readLine(in)
	}

	fmt.Fprint(out, "Password: ")
	pw, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	fmt.Fprint(out, "Confirm password: ")
	confirm, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read confirmation: %w", err)
	}

	if string(pw) != string(confirm) {
		return "", errors.New("passwords do not match")
	}
	return string(pw), nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ---------- admin list ----------

func (a *app) newAdminListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all admin users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAdminList(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func (a *app) runAdminList(cmd *cobra.Command, jsonOutput bool) error {
	s, err := a.settings()
	if err != nil {
		return err
	}
	st, err := openStore(cmd.Context(), s)
	if err != nil {
		return err
	}
	defer st.Close()

	admins, err := st.ListAdmins(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(admins)
	}

	if len(admins) == 0 {
		fmt.Fprintln(out, "No admin users. Use 'keydesk admin create' to create one.")
		return nil
	}

	fmt.Fprintf(out, "%-6s %-40s\n", "ID", "EMAIL")
	fmt.Fprintf(out, "%-6s %-40s\n", "--", "-----")
	for _, ad := range admins {
		fmt.Fprintf(out, "%-6d %-40s\n", ad.ID, ad.Email)
	}
	return nil
}
