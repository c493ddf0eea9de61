package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"smorty/internal/config"
	"smorty/internal/irstore"
	"smorty/internal/schema"
)

func genMigrationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gen-migration",
		Short: "Plan the schema migration for the current event IRs without applying it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := config.OpenDB(cfg)
			if err != nil {
				return err
			}
			return runMigration(db, log, true)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the schema migration for the current event IRs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := config.OpenDB(cfg)
			if err != nil {
				return err
			}
			return runMigration(db, log, false)
		},
	}
}

// runMigration loads every persisted event IR, unions their table
// schemas into the migration target, and plans/applies it through the
// same Planner.Apply(dryRun) gen-migration and migrate both drive —
// gen-migration is exactly migrate with dryRun forced true.
func runMigration(db *gorm.DB, log *zap.SugaredLogger, dryRun bool) error {
	store := irstore.New(baseDir())
	events, err := store.ListEvents()
	if err != nil {
		return err
	}
	target := schema.TargetFromEvents(events)

	planner := schema.NewPlanner(db, baseDir(), log)
	result, err := planner.Apply(target, dryRun)
	if err != nil {
		return err
	}

	for _, stmt := range result.Plan.StatementsInOrder() {
		fmt.Println(stmt)
	}
	if dryRun {
		log.Infow("dry run: migration not applied", "statements", len(result.Plan.Statements))
		return nil
	}
	log.Infow("migration applied", "statements", len(result.Plan.Statements), "archived_file", result.ArchivedFile)
	return nil
}
