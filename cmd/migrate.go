package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tieubaoca/research-assistant/config"
	"github.com/tieubaoca/research-assistant/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the credential store schema",
	Long: `Applies the embedded SQL migrations for postgres or sqlite. For mongo it
creates the unique username and email indexes instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.ValidateDatabase(); err != nil {
			return err
		}
		ctx := cmd.Context()

		if cfg.Database.Driver == config.DriverMongo {
			client, err := database.NewMongoClient(ctx, cfg.Database.DSN, 0)
			if err != nil {
				return err
			}
			defer client.Disconnect(ctx)
			coll := client.Database(cfg.Database.Name).Collection(database.UsersCollection)
			if err := database.EnsureUserIndexes(ctx, coll); err != nil {
				return err
			}
		} else {
			// Open migrates before returning.
			db, err := database.Open(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()
		}
		log.Info(ctx, "credential store is up to date", "driver", cfg.Database.Driver)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
