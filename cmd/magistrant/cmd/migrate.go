package cmd

import (
	"fmt"

	"magistrant/internal/store"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Applies pending schema migrations of the sqlite, libsql and postgres stores.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		// opening a SQL store already migrates it
		sqlStore, ok := a.store.(*store.SQLStore)
		if !ok {
			fmt.Printf("store driver %q has no schema\n", a.config.Store.Driver)
			return nil
		}
		version, err := sqlStore.Version()
		if err != nil {
			return err
		}
		fmt.Printf("%s store is at schema version %d\n", a.config.Store.Driver, version)
		return nil
	},
}
