package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lowaak/smart-trainer/coach-app/internal/clock"
	"github.com/lowaak/smart-trainer/coach-app/internal/content"
	"github.com/lowaak/smart-trainer/coach-app/internal/session"
	"github.com/lowaak/smart-trainer/coach-app/internal/storage"
)

func newStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show this week's full days and whether a session is running",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, *configPath, func(ctx context.Context, a *app) error {
				snap, err := a.snapshots.Read(ctx)
				if err != nil {
					return err
				}
				now := a.clock.Now()
				stale := snap != nil && snap.Running && session.Stale(*snap, now, a.cfg.Session.MaxResumeAge)
				running := snap != nil && snap.Running && !stale
				gate := a.policy.Gate(ctx, running)

				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintln(out, gate.ChipText)
				if stale {
					_, _ = fmt.Fprintf(out, "Session started %s is too old to resume and will be discarded.\n",
						snap.StartedAt.Local().Format("Mon 02 Jan 15:04"))
				}
				if running {
					elapsed := clock.Elapsed(snap.StartedAt, now)
					_, _ = fmt.Fprintf(out, "Running: %s since %s (%s)\n",
						session.Capitalize(snap.Sport), snap.StartedAt.Local().Format("15:04"), session.FormatMMSS(elapsed))
				} else if !gate.CanTrain {
					_, _ = fmt.Fprintln(out, session.MsgWeeklyLimit)
				} else {
					_, _ = fmt.Fprintln(out, "Ready to train.")
				}
				return nil
			})
		},
	}
}

func newHistoryCmd(configPath *string) *cobra.Command {
	var week bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List logged sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, *configPath, func(ctx context.Context, a *app) error {
				var records []storage.HistoryRecord
				if week {
					records = a.policy.WeekHistory(ctx)
				} else {
					var err error
					if records, err = a.history.List(ctx); err != nil {
						return err
					}
				}

				out := cmd.OutOrStdout()
				if len(records) == 0 {
					_, _ = fmt.Fprintln(out, "no sessions")
					return nil
				}
				for _, r := range records {
					badge := "Partial"
					if r.FullDay {
						badge = "Full day"
					}
					_, _ = fmt.Fprintf(out, "%s  %-10s %s  %s\n",
						r.Date.Local().Format("2006-01-02 15:04"), session.Capitalize(r.Sport), session.FormatMMSS(r.Duration), badge)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&week, "week", false, "only sessions of the current week")
	return cmd
}

type profileView struct {
	Gender   string  `yaml:"gender"`
	WeightKg float64 `yaml:"weight_kg"`
	HeightCm float64 `yaml:"height_cm"`
	Complete bool    `yaml:"complete"`
}

func newProfileCmd(configPath *string) *cobra.Command {
	profile := &cobra.Command{Use: "profile", Short: "Show or edit the user profile"}

	profile.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the profile as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, *configPath, func(ctx context.Context, a *app) error {
				p, err := a.profiles.Get(ctx)
				if err != nil {
					return err
				}
				if p == nil {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), session.MsgFillProfile)
					return nil
				}
				raw, err := yaml.Marshal(profileView{
					Gender:   p.Gender,
					WeightKg: p.WeightKg,
					HeightCm: p.HeightCm,
					Complete: p.Validate() == nil,
				})
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(raw)
				return err
			})
		},
	})

	var gender string
	var weight, height float64
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Update profile fields; unset flags keep their value",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, *configPath, func(ctx context.Context, a *app) error {
				current, err := a.profiles.Get(ctx)
				if err != nil {
					return err
				}
				var p storage.Profile
				if current != nil {
					p = *current
				}
				if cmd.Flags().Changed("gender") {
					p.Gender = gender
				}
				if cmd.Flags().Changed("weight") {
					p.WeightKg = weight
				}
				if cmd.Flags().Changed("height") {
					p.HeightCm = height
				}
				if err := a.profiles.Put(ctx, p); err != nil {
					if errors.Is(err, storage.ErrIncompleteProfile) {
						return fmt.Errorf("%s (%w)", session.MsgFillProfile, err)
					}
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "profile saved")
				return nil
			})
		},
	}
	setCmd.Flags().StringVar(&gender, "gender", "", "gender")
	setCmd.Flags().Float64Var(&weight, "weight", 0, "weight in kg")
	setCmd.Flags().Float64Var(&height, "height", 0, "height in cm")
	profile.AddCommand(setCmd)

	return profile
}

func newSnapshotCmd(configPath *string) *cobra.Command {
	snapshot := &cobra.Command{Use: "snapshot", Short: "Inspect or discard the running-session marker"}

	snapshot.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the running-session marker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, *configPath, func(ctx context.Context, a *app) error {
				snap, err := a.snapshots.Read(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if snap == nil {
					_, _ = fmt.Fprintln(out, "no running session")
					return nil
				}
				_, _ = fmt.Fprintf(out, "running=%t sport=%s lang=%s started=%s\n",
					snap.Running, snap.Sport, snap.LangPref, snap.StartedAt.Format(time.RFC3339))
				return nil
			})
		},
	})

	snapshot.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Forget a running session without logging it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, *configPath, func(ctx context.Context, a *app) error {
				if err := a.snapshots.Clear(ctx); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "snapshot cleared")
				return nil
			})
		},
	})

	return snapshot
}

func newSportsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sports",
		Short: "List the sports and exercises of the training catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, *configPath, func(ctx context.Context, a *app) error {
				catalog, err := content.NewLoader(a.cfg.LoaderConfig(), a.logger).LoadCatalog(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, key := range catalog.SportKeys() {
					_, _ = fmt.Fprintf(out, "%s\n", session.Capitalize(key))
					for _, e := range catalog.Exercises(key) {
						_, _ = fmt.Fprintf(out, "  %-28s %s\n", e.Name, e.StatusLine())
					}
				}
				return nil
			})
		},
	}
}
