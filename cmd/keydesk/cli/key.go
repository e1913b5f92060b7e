package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/keydesk/keydesk/internal/service"
)

func (a *app) newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "key",
		Aliases: []string{"apikey"},
		Short:   "Manage API keys",
		Long:    "Generate and list the API keys users are registered against.",
	}

	cmd.AddCommand(a.newKeyGenerateCmd())
	cmd.AddCommand(a.newKeyListCmd())

	return cmd
}

// ---------- key generate ----------

func (a *app) newKeyGenerateCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "generate",
		Aliases: []string{"create"},
		Short:   "Generate a new API key",
		Long:    "Generate a random API key that stays active for 30 days.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runKeyGenerate(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func (a *app) runKeyGenerate(cmd *cobra.Command, jsonOutput bool) error {
	s, err := a.settings()
	if err != nil {
		return err
	}
	st, err := openStore(cmd.Context(), s)
	if err != nil {
		return err
	}
	defer st.Close()

	key, err := service.NewAPIKey(time.Now())
	if err != nil {
		return err
	}
	if err := st.CreateAPIKey(cmd.Context(), key); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(key)
	}

	fmt.Fprintln(out, "API key generated:")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  ID:      %d\n", key.ID)
	fmt.Fprintf(out, "  Key:     %s\n", key.KeyValue)
	fmt.Fprintf(out, "  Expires: %s\n", key.ExpiresAt.Format(time.RFC3339))
	return nil
}

// ---------- key list ----------

func (a *app) newKeyListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all API keys, newest first",
		Long:    "List all API keys. Keys past their expiry are marked inactive first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runKeyList(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func (a *app) runKeyList(cmd *cobra.Command, jsonOutput bool) error {
	s, err := a.settings()
	if err != nil {
		return err
	}
	st, err := openStore(cmd.Context(), s)
	if err != nil {
		return err
	}
	defer st.Close()

	if _, err := st.ExpireAPIKeys(cmd.Context(), time.Now().UTC()); err != nil {
		return err
	}
	keys, err := st.ListAPIKeys(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(keys)
	}

	if len(keys) == 0 {
		fmt.Fprintln(out, "No API keys. Use 'keydesk key generate' to create one.")
		return nil
	}

	fmt.Fprintf(out, "%-6s %-64s %-20s %-20s %-8s\n", "ID", "KEY", "CREATED", "EXPIRES", "STATUS")
	fmt.Fprintf(out, "%-6s %-64s %-20s %-20s %-8s\n", "--", "---", "-------", "-------", "------")
	for _, k := range keys {
		fmt.Fprintf(out, "%-6d %-64s %-20s %-20s %-8s\n",
			k.ID, k.KeyValue,
			k.CreatedAt.Format(time.DateTime), k.ExpiresAt.Format(time.DateTime),
			k.Status)
	}
	return nil
}
