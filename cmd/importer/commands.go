package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"pokerstats/internal/model"
	"pokerstats/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type runner func(run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error

func newImportCommand(withApp runner) *cobra.Command {
	var (
		userID   int64
		timezone string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Import one or more PokerCraft HTML exports for a user",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, files []string) error {
			if err := ensureUser(cmd, a, userID); err != nil {
				return err
			}

			var failed []error
			for _, file := range files {
				summary, err := importFile(cmd, a, userID, timezone, file)
				if summary != nil {
					if err := printSummary(cmd.OutOrStdout(), summary, asJSON); err != nil {
						return err
					}
				}
				if err != nil {
					a.log.Error("Import failed", zap.String("file", file), zap.Error(err))
					failed = append(failed, fmt.Errorf("%s: %w", file, err))
				}
			}
			return errors.Join(failed...)
		}),
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "Telegram user id that owns the tournaments")
	cmd.Flags().StringVar(&timezone, "tz", "", "IANA timezone of the export (default: user setting)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print summaries as JSON")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// ensureUser заводит пользователя, если он еще не писал боту, не трогая имя существующего
func ensureUser(cmd *cobra.Command, a *app, userID int64) error {
	_, err := a.services.Settings.Get(cmd.Context(), userID)
	if errors.Is(err, model.ErrUserNotFound) {
		_, err = a.services.Settings.Register(cmd.Context(), userID, "", "")
	}
	return err
}

func importFile(cmd *cobra.Command, a *app, userID int64, timezone, file string) (*service.ImportSummary, error) {
	info, err := os.Stat(file)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.Size() > a.cfg.ImportConfig.MaxDocumentSize {
		return nil, fmt.Errorf("file is larger than %d bytes", a.cfg.ImportConfig.MaxDocumentSize)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return a.services.Import.Import(cmd.Context(), service.ImportRequest{
		UserID:   userID,
		FileName: filepath.Base(file),
		Document: data,
		Timezone: timezone,
	})
}

func printSummary(w io.Writer, summary *service.ImportSummary, asJSON bool) error {
	if asJSON {
		return writeJSON(w, summary)
	}
	_, err := fmt.Fprintf(w, "%s: rows %d, imported %d, duplicates %d, failed %d, diagnostics %d (batch %s, %s)\n",
		summary.FileName, summary.Parse.Total, summary.Imported, summary.Duplicates, summary.Failed,
		summary.DiagnosticCount, summary.BatchID, summary.Timezone)
	return err
}

func newStatsCommand(withApp runner) *cobra.Command {
	var (
		userID   int64
		rakeback bool
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "stats [key=value...]",
		Short: "Show tournament stats for a user",
		Long:  "Filters: buyin, place, from, to, day, time, rakeback (same keys as the /stats bot command).",
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			ctx := cmd.Context()
			loc, err := time.LoadLocation(a.services.Settings.Timezone(ctx, userID))
			if err != nil {
				loc = time.UTC
			}

			query, err := service.ParseQuery(userID, args, loc)
			if err != nil {
				return err
			}
			if rakeback {
				query.Options.IncludeRakeback = true
			}

			stats, err := a.services.Stats.Stats(ctx, query.Filter, query.Options)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), stats)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(),
				"tournaments %d, buy-ins %s, prizes %s, result %s, ROI %s%%, rakeback %s (%s%%), knockouts %d, ITM %d\n",
				stats.Tournaments, stats.Buyins.StringFixed(2), stats.Prizes.StringFixed(2),
				stats.Result().StringFixed(2), stats.ROI().StringFixed(2),
				stats.RakebackReceived.StringFixed(2), stats.RakebackPercent.String(),
				stats.Knockouts, stats.ITM)
			return err
		}),
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "Telegram user id")
	cmd.Flags().BoolVar(&rakeback, "rakeback", false, "include rakeback in result and ROI")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print stats as JSON")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newUsersCommand(withApp runner) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List users with tournament counts",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			users, err := a.services.Settings.Users(cmd.Context())
			if err != nil {
				return err
			}
			for _, u := range users {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%d\t%s\n",
					u.ID, u.DisplayName(), u.TournamentsCount, u.TotalNetProfit.StringFixed(2)); err != nil {
					return err
				}
			}
			return nil
		}),
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
