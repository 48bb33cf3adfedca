package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/emrgen/mediahub/internal/config"
	"github.com/emrgen/mediahub/internal/model"
	"github.com/emrgen/mediahub/internal/store"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "db commands",
}

func init() {
	dbCmd.AddCommand(Migrate())
	dbCmd.AddCommand(Prune())
}

func Migrate() *cobra.Command {
	command := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the database",
		Run: func(cmd *cobra.Command, args []string) {
			db := config.GetDb(config.LoadConfig())
			err := model.Migrate(db)
			if err != nil {
				logrus.Fatalf("migrate: %v", err)
			}
			logrus.Info("database migrated")
		},
	}

	return command
}

func Prune() *cobra.Command {
	command := &cobra.Command{
		Use:   "prune",
		Short: "Remove references to deleted resources",
		Run: func(cmd *cobra.Command, args []string) {
			db := config.GetDb(config.LoadConfig())
			pruned, err := store.NewGormStore(db).PruneDanglingReferences(cmd.Context())
			if err != nil {
				logrus.Fatalf("prune: %v", err)
			}
			logrus.Infof("removed %d dangling references from %d resources", pruned.Rows, len(pruned.Parents))
		},
	}

	return command
}
