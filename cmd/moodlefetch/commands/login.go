package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(loginCmd)
}

type loginOutput struct {
	BaseUrl string        `json:"base_url"`
	Session SessionConfig `json:"session"`
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Logs in with the configured credentials and prints the session, it can be pasted into the config to skip logging in.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if config.Username == "" || config.Password == "" {
			return fmt.Errorf("username and password must be configured to login")
		}
		client, err := newClient()
		if err != nil {
			return err
		}
		err = client.Login(cmd.Context(), "", config.Username, config.Password).Err()
		if err != nil {
			return err
		}

		session := client.Session()
		sesskey, _ := session.Sesskey()
		cookie, _ := session.SessionCookie()

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(loginOutput{
			BaseUrl: session.BaseUrl(),
			Session: SessionConfig{
				Sesskey:       sesskey,
				MoodleSession: cookie,
			},
		})
	},
}
