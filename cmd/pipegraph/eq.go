package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/pepperpepperpepper/pipegraph/migrations"

	"github.com/pepperpepperpepper/pipegraph/internal/eqpreset"
	"github.com/pepperpepperpepper/pipegraph/internal/infrastructure/database"
)

var eqCmd = &cobra.Command{
	Use:   "eq",
	Short: "Manage stored equaliser presets",
}

// withPresetStore opens the configured database and runs fn against the
// preset store.
func withPresetStore(ctx context.Context, fn func(context.Context, eqpreset.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close() //nolint:errcheck // one-shot teardown

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return fn(ctx, eqpreset.NewSQLiteStore(db.DB))
}

var eqListCmd = &cobra.Command{
	Use:   "list",
	Short: "List targets with a stored preset",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPresetStore(cmd.Context(), func(ctx context.Context, store eqpreset.Store) error {
			targets, err := store.List(ctx)
			if err != nil {
				return err
			}
			if len(targets) == 0 {
				fmt.Println("no presets stored")
				return nil
			}
			for _, target := range targets {
				fmt.Println(target)
			}
			return nil
		})
	},
}

var eqShowCmd = &cobra.Command{
	Use:   "show <target>",
	Short: "Print a stored preset as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPresetStore(cmd.Context(), func(ctx context.Context, store eqpreset.Store) error {
			preset, err := store.Get(ctx, args[0])
			if err != nil {
				return err
			}
			body, err := json.MarshalIndent(preset, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(body))
			return nil
		})
	},
}

var eqPutCmd = &cobra.Command{
	Use:   "put <target> <preset.json>",
	Short: "Validate and store a preset from a JSON file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("reading preset file: %w", err)
		}
		var preset eqpreset.Preset
		if err := json.Unmarshal(body, &preset); err != nil {
			return fmt.Errorf("parsing preset file: %w", err)
		}

		return withPresetStore(cmd.Context(), func(ctx context.Context, store eqpreset.Store) error {
			if err := store.Put(ctx, args[0], &preset); err != nil {
				return err
			}
			fmt.Printf("stored preset for %s (%d bands)\n", args[0], len(preset.Bands))
			return nil
		})
	},
}

var eqDeleteCmd = &cobra.Command{
	Use:   "delete <target>",
	Short: "Remove a stored preset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPresetStore(cmd.Context(), func(ctx context.Context, store eqpreset.Store) error {
			if err := store.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted preset for %s\n", args[0])
			return nil
		})
	},
}

func init() {
	eqCmd.AddCommand(eqListCmd)
	eqCmd.AddCommand(eqShowCmd)
	eqCmd.AddCommand(eqPutCmd)
	eqCmd.AddCommand(eqDeleteCmd)
	rootCmd.AddCommand(eqCmd)
}
