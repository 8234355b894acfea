package commands

import (
	"log/slog"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(logoutCmd)
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Ends the configured session on the portal.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !config.HasSession() {
			slog.Info("no session configured, nothing to log out of")
			return nil
		}
		client, err := authenticatedClient(cmd.Context())
		if err != nil {
			return err
		}
		err = client.Logout(cmd.Context()).Err()
		if err != nil {
			return err
		}
		slog.Info("logged out", "base_url", config.BaseUrl)
		return nil
	},
}
