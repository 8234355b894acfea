package commands

import (
	"encoding/json"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var gradesJson *bool

func init() {
	gradesJson = gradesCmd.Flags().Bool("json", false, "Prints the grades as a json object instead of a table.")
	rootCmd.AddCommand(gradesCmd)
}

var gradesCmd = &cobra.Command{
	Use:   "grades [--json]",
	Short: "Prints the grade overview of every course.",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := authenticatedClient(cmd.Context())
		if err != nil {
			return err
		}
		grades, err := client.Grades(cmd.Context()).Unwrap()
		if err != nil {
			return err
		}

		if *gradesJson {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(grades)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Course", "Grade"})
		for _, entry := range grades.Entries() {
			t.AppendRow(table.Row{entry.Course, entry.Grade})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}
