package main

import (
	"fmt"
	"io"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"github.com/spf13/cobra"

	"giveaway/internal/allocation"
	"giveaway/internal/config"
	"giveaway/internal/handlers"
	"giveaway/internal/services"
	"giveaway/internal/store"
)

func main() {
	lg := logger.Init("giveaway", true, false, io.Discard)
	defer lg.Close()

	root := &cobra.Command{
		Use:           "giveaway",
		Short:         "Time-boxed giveaway service with paced prize distribution",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), exportCmd(), purgeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the giveaway HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer st.Close()

			var verifier services.EngagementVerifier = services.AllowAllVerifier{}
			if cfg.VerifierURL != "" {
				verifier = &services.HTTPVerifier{
					Endpoint: cfg.VerifierURL,
					Timeout:  cfg.VerifierTimeout,
					FailOpen: cfg.VerifierFailOpen,
				}
			}

			workflow := services.NewWorkflowService(
				st,
				buildEngine(cfg),
				cfg,
				verifier,
				&services.FileArtifactStore{Dir: cfg.PhotosDir},
				&services.WebhookNotifier{URL: cfg.NotifyURL},
				nil,
			)

			router := gin.Default()
			handlers.NewHTTPHandler(workflow, st, cfg).RegisterRoutes(router)

			logger.Infof("serving on %s (db=%s)", cfg.ListenAddr, cfg.DatabasePath)
			return router.Run(cfg.ListenAddr)
		},
	}
}

func exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all participants as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer st.Close()

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return services.ExportParticipantsCSV(cmd.Context(), st, w)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write CSV to file instead of stdout")
	return cmd
}

func purgeCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete all participants and counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to purge without --yes")
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Purge(cmd.Context()); err != nil {
				return err
			}
			logger.Infof("purged database %s", cfg.DatabasePath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the purge")
	return cmd
}

func buildEngine(cfg *config.Config) *allocation.Engine {
	return allocation.NewEngine(
		allocation.Tier{
			Capacity: cfg.BigPrizeCapacity,
			Prizes:   cfg.BigPrizeList,
			Params: allocation.TierParams{
				BaseRate:      cfg.BigBaseRate,
				DeficitWeight: cfg.BigDeficitWeight,
				UrgencyFactor: cfg.BigUrgencyFactor,
				MinRate:       cfg.BigMinRate,
				MaxRate:       cfg.BigMaxRate,
			},
		},
		allocation.Tier{
			Capacity: cfg.SmallPrizeCapacity,
			Prizes:   cfg.SmallPrizeList,
			Params: allocation.TierParams{
				BaseRate:      cfg.SmallBaseRate,
				DeficitWeight: cfg.SmallDeficitWeight,
				UrgencyFactor: cfg.SmallUrgencyFactor,
				MinRate:       cfg.SmallMinRate,
				MaxRate:       cfg.SmallMaxRate,
			},
		},
	)
}
