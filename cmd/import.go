package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"viki/vikigraph/internal/db"
)

var (
	importDB   string
	importJSON bool
)

var importCmd = &cobra.Command{
	Use:   "import <fixture.yaml>",
	Short: "Load a YAML wiki fixture into an offline SQLite snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fx, err := db.LoadFixture(args[0])
		if err != nil {
			return err
		}
		d, err := db.OpenDB(importDB)
		if err != nil {
			return err
		}
		defer d.Close()

		added, err := d.Import(cmd.Context(), fx)
		if err != nil {
			return err
		}
		total, err := d.Stats(cmd.Context())
		if err != nil {
			return err
		}

		if importJSON {
			return json.NewEncoder(os.Stdout).Encode(map[string]db.Stats{"imported": added, "total": total})
		}
		fmt.Printf("Imported %d pages, %d links, %d external links, %d categories into %s\n",
			added.Pages, added.Links, added.ExternalLinks, added.Categories, importDB)
		fmt.Printf("Snapshot now holds %d pages, %d links, %d external links, %d categories\n",
			total.Pages, total.Links, total.ExternalLinks, total.Categories)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importDB, "db", "viki.db", "Path to the SQLite snapshot")
	importCmd.Flags().BoolVar(&importJSON, "json", false, "Output counts as JSON")
	rootCmd.AddCommand(importCmd)
}
