package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/keydesk/keydesk/internal/config"
)

func (a *app) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage keydesk configuration",
		Long:  "Initialize a default configuration file or display the current effective configuration.",
	}

	cmd.AddCommand(a.newConfigInitCmd())
	cmd.AddCommand(a.newConfigShowCmd())

	return cmd
}

// ---------- config init ----------

func (a *app) newConfigInitCmd() *cobra.Command {
	var (
		force bool
		path  string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default keydesk.yaml configuration file",
		Long: `Write the default configuration with a freshly generated session secret.
The file is created with mode 0600 since it holds the secret.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteDefault(path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config file")
	cmd.Flags().StringVarP(&path, "output", "o", "keydesk.yaml", "Path of the file to write")

	return cmd
}

// ---------- config show ----------

func (a *app) newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		Long:  "Print the merged file, environment and default settings. Secrets are masked.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.settings()
			if err != nil {
				return err
			}
			data, err := s.Masked().Marshal()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if used := a.v.ConfigFileUsed(); used != "" {
				fmt.Fprintf(out, "# config file: %s\n", used)
			} else {
				fmt.Fprintln(out, "# config file: none (defaults and environment)")
			}
			_, err = out.Write(data)
			return err
		},
	}
}
