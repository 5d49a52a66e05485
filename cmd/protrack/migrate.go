package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/triumph135/protrack-sub000/pkg/config"
	"github.com/triumph135/protrack-sub000/pkg/database"
	"github.com/triumph135/protrack-sub000/pkg/logger"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			logger.InitLogger(cfg)
			log := logger.GetLogger()

			if err := database.InitDB(cfg); err != nil {
				log.Error("Migration failed", zap.Error(err))
				return err
			}

			log.Info("Database schema is up to date")
			return nil
		},
	}
}
