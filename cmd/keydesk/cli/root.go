package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/keydesk/keydesk/internal/config"
)

// app carries state shared by every subcommand.
type app struct {
	v       *viper.Viper
	cfgFile string
	version string
	commit  string
	date    string
}

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	return newRootCmd(version, commit, date).Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	a := &app{v: viper.New(), version: version, commit: commit, date: date}

	cmd := &cobra.Command{
		Use:   "keydesk",
		Short: "Issue API keys and register users against them",
		Long: `keydesk issues API keys, registers users against those keys, and serves a
session-protected admin dashboard for reviewing both.

Configuration is read from keydesk.yaml (see 'keydesk config init'),
KEYDESK_* environment variables and flags, in increasing precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./keydesk.yaml)")
	cmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	a.v.BindPFlag("log.level", cmd.PersistentFlags().Lookup("log-level"))

	cmd.AddCommand(a.newServeCmd())
	cmd.AddCommand(a.newMigrateCmd())
	cmd.AddCommand(a.newAdminCmd())
	cmd.AddCommand(a.newKeyCmd())
	cmd.AddCommand(a.newConfigCmd())
	cmd.AddCommand(a.newOpenAPICmd())
	cmd.AddCommand(a.newVersionCmd())

	return cmd
}

func (a *app) initConfig() error {
	config.Configure(a.v, a.cfgFile)
	return config.ReadFile(a.v)
}

func (a *app) settings() (*config.Settings, error) {
	return config.Load(a.v)
}
