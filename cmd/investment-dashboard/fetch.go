package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hushenglang/investment-dashboard/internal/common"
	"github.com/hushenglang/investment-dashboard/internal/logger"
	"github.com/hushenglang/investment-dashboard/internal/macro"
	"github.com/hushenglang/investment-dashboard/internal/store"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch indicators from the providers and store them once",
	Long: "Fetch one indicator family, or all of them, over a date window and store the results.\n" +
		"Families: " + strings.Join(macro.FamilyNames(), ", "),
	RunE: func(cmd *cobra.Command, args []string) error {
		family, _ := cmd.Flags().GetString("family")
		startStr, _ := cmd.Flags().GetString("start")
		endStr, _ := cmd.Flags().GetString("end")

		ctx := logger.WithTraceID(cmd.Context(), uuid.NewString())

		deps, err := buildApplication(ctx, cfg)
		if err != nil {
			return err
		}
		defer deps.Close()

		start, end := deps.service.DefaultWindow()
		if startStr != "" {
			if start, err = time.Parse(time.DateOnly, startStr); err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
		}
		if endStr != "" {
			if end, err = time.Parse(time.DateOnly, endStr); err != nil {
				return fmt.Errorf("invalid --end: %w", err)
			}
			end = common.EndOfDay(end)
		}
		if end.Before(start) {
			return fmt.Errorf("--end %s is before --start %s", endStr, startStr)
		}

		if family != "" {
			if err := deps.service.FetchAndStore(ctx, family, start, end); err != nil {
				return err
			}
			slog.InfoContext(ctx, "fetch completed", "family", family)
			return nil
		}

		results, err := deps.service.FetchAndStoreAll(ctx, start, end)
		for _, name := range macro.FamilyNames() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-22s %v\n", name, results[name])
		}
		return err
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the macro_indicator table",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Database.Driver == "memory" {
			return fmt.Errorf("nothing to migrate for the memory driver")
		}

		db, err := store.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer store.Close(db)

		if err := store.Migrate(db); err != nil {
			return err
		}
		slog.Info("database migrated", "driver", cfg.Database.Driver)
		return nil
	},
}

func init() {
	fetchCmd.Flags().String("family", "", "indicator family to fetch (default: all)")
	fetchCmd.Flags().String("start", "", "window start, YYYY-MM-DD (default: lookback window)")
	fetchCmd.Flags().String("end", "", "window end, YYYY-MM-DD (default: today)")
}
