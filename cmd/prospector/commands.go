package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"github.com/scoutly/prospector/internal/config"
	"github.com/scoutly/prospector/internal/pipeline"
	"github.com/scoutly/prospector/internal/quota"
)

var ctx = context.Background()

// --- acquire ---

var acquireCmd = &cobra.Command{
	Use:   "acquire <profile-url>",
	Short: "Fetch a LinkedIn profile and print the structured record",
	Long: `Fetch a LinkedIn profile via the running server.

Examples:
  prospector acquire https://www.linkedin.com/in/janedoe
  prospector acquire linkedin.com/in/janedoe --tier paid --identifier team-42`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		identifier, _ := cmd.Flags().GetString("identifier")
		tier, _ := cmd.Flags().GetString("tier")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := map[string]any{"url": args[0]}
		if identifier != "" {
			req["identifier"] = identifier
		}
		if tier != "" {
			req["tier"] = tier
		}

		resp, err := client.post(ctx, "/v1/acquisitions", req)
		if err != nil {
			return err
		}

		var out pipeline.Outcome
		if err := decodeJSON(resp, &out); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out.Result.Profile); err != nil {
			return err
		}
		if out.Decision != nil {
			printSuccess("Acquired %s via %s (%d requests remaining)", out.Username, out.Result.Strategy, out.Decision.Remaining)
		} else {
			printSuccess("Acquired %s via %s", out.Username, out.Result.Strategy)
		}
		return nil
	},
}

func init() {
	acquireCmd.Flags().String("identifier", "", "quota identifier (defaults to caller IP)")
	acquireCmd.Flags().String("tier", "", "account tier: free or paid")
}

// --- quota ---

var quotaCmd = &cobra.Command{
	Use:   "quota <identifier>",
	Short: "Show remaining quota for an identifier",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tier, _ := cmd.Flags().GetString("tier")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := "/v1/quota/" + url.PathEscape(args[0])
		if tier != "" {
			path += "?tier=" + url.QueryEscape(tier)
		}

		resp, err := client.get(ctx, path)
		if err != nil {
			return err
		}

		var st quota.Status
		if err := decodeJSON(resp, &st); err != nil {
			return err
		}

		printStatus("Identifier", "%s", st.Identifier)
		printStatus("Tier", "%s", st.Tier)
		printStatus("Used", "%d of %d", st.Used, st.Limit)
		printStatus("Remaining", "%d", st.Remaining)
		printStatus("Resets", "%s", st.ResetAt.Local().Format("2006-01-02 15:04:05"))
		return nil
	},
}

func init() {
	quotaCmd.Flags().String("tier", "", "account tier: free or paid")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		for _, info := range config.ShowAll(cfg) {
			fmt.Fprintf(os.Stdout, "%-24s %v\t(%s)\n", info.Key, info.Value, info.EnvVar)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
