package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/keydesk/keydesk/internal/server"
	"github.com/keydesk/keydesk/internal/service"
	"github.com/keydesk/keydesk/internal/session"
)

const banner = `
 _  _________   _____  ___ ___ _  __
| |/ / __\ \ / /   \ \/ __| __| |/ /
| ' <| _| \ V /| |) |  \__ \ _|| ' <
|_|\_\___| |_| |___/|_|___/___|_|\_\
`

func (a *app) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the keydesk HTTP server",
		Long: `Start the HTTP server that serves the admin dashboard, the user and API key
endpoints, and the health and OpenAPI endpoints. The database schema is
migrated before the server starts listening.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServe(cmd)
		},
	}

	cmd.Flags().IntP("port", "p", 3000, "HTTP listen port")
	cmd.Flags().String("host", "0.0.0.0", "HTTP listen host")
	a.v.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	a.v.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func (a *app) runServe(cmd *cobra.Command) error {
	s, err := a.settings()
	if err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	ctx := cmd.Context()
	logger := newLogger(cmd.ErrOrStderr(), s.Log)

	st, err := openStore(ctx, s)
	if err != nil {
		return err
	}
	logger.Info("database ready", "driver", st.Driver())

	sessStore, err := newSessionStore(ctx, s.Session)
	if err != nil {
		st.Close()
		return err
	}
	sessions, err := session.NewManager(sessStore, s.SessionConfig(), logger)
	if err != nil {
		if c, ok := sessStore.(io.Closer); ok {
			c.Close()
		}
		st.Close()
		return err
	}
	logger.Info("session store ready", "store", s.Session.Store, "ttl", s.Session.TTL)
	if !s.Session.CookieSecure {
		logger.Warn("session cookies are not marked Secure; use only behind plain HTTP in development")
	}

	authSvc := service.NewAuthService(st, service.NewCredentials(s.Auth.BcryptCost))

	admins, err := st.ListAdmins(ctx)
	if err != nil {
		logger.Warn("failed to check for admin", "error", err)
	} else if len(admins) == 0 {
		logger.Warn("no admin account found - register one at /api/register or run: keydesk admin create")
	}

	srvCfg := s.ServerConfig(a.version)
	srv := server.New(srvCfg, st, sessions, authSvc, logger)

	out := cmd.OutOrStdout()
	fmt.Fprint(out, banner)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "→ keydesk %s\n", a.version)
	fmt.Fprintf(out, "→ Listening on http://%s\n", srvCfg.Addr())
	fmt.Fprintf(out, "→ Dashboard:  http://%s/dashboard\n", srvCfg.Addr())
	fmt.Fprintf(out, "→ OpenAPI:    http://%s/openapi.json\n", srvCfg.Addr())
	fmt.Fprintf(out, "→ Health:     http://%s/healthz\n", srvCfg.Addr())
	fmt.Fprintln(out)

	return srv.ListenAndServe()
}
