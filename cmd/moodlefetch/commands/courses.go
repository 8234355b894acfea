package commands

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(coursesCmd)
}

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "Lists the courses shown on the portal's front page.",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := authenticatedClient(cmd.Context())
		if err != nil {
			return err
		}
		courses, err := client.Courses(cmd.Context()).Unwrap()
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Id", "Name", "Url"})
		for _, course := range courses {
			t.AppendRow(table.Row{course.Id, course.Name, course.Url})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}
