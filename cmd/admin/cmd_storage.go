package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/GTDGit/gtd_backoffice/internal/repository"
	"github.com/GTDGit/gtd_backoffice/internal/service"
	"github.com/GTDGit/gtd_backoffice/internal/storage"
)

var sweepMinAge time.Duration

// backoffice-admin sweep-orphans [--min-age 1h]
var sweepOrphansCmd = &cobra.Command{
	Use:   "sweep-orphans",
	Short: "Delete stored image files no image row references",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := bootDB(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		disk, err := storage.New(cmd.Context(), &cfg.Storage)
		if err != nil {
			return err
		}

		repos := repository.NewRepos(db)
		imageSvc := service.NewProductImageService(repos, repository.NewTxRunner(db), disk, nil, cfg.Upload)
		n, err := imageSvc.SweepOrphans(cmd.Context(), sweepMinAge)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d orphaned file(s)\n", n)
		return nil
	},
}

func init() {
	sweepOrphansCmd.Flags().DurationVar(&sweepMinAge, "min-age", time.Hour, "only remove files older than this")
}
