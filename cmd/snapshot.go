package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/VytasKer/Fintegrate/internal/analytics"
	"github.com/VytasKer/Fintegrate/internal/config"
	"github.com/VytasKer/Fintegrate/internal/db"
	"github.com/VytasKer/Fintegrate/internal/logger"
	"github.com/VytasKer/Fintegrate/internal/repository"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Run one analytics snapshot pass (MySQL -> ClickHouse)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger.Init(cfg.Log.Level)

		mysqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer mysqlDB.Close()

		chDB, err := db.NewClickHouseConnection(db.ClickHouseOpts{
			DSN:             cfg.ClickHouse.DSN,
			MaxOpenConns:    cfg.ClickHouse.MaxOpenConns,
			MaxIdleConns:    cfg.ClickHouse.MaxIdleConns,
			ConnMaxLifetime: cfg.ClickHouse.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.ClickHouse.ConnMaxIdleTime,
			PingTimeout:     cfg.ClickHouse.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("clickhouse connect: %w", err)
		}
		defer func() { _ = chDB.Close() }()

		job := analytics.NewJob(mysqlDB, repository.NewSnapshotsRepository(chDB), zap.L())
		n, err := job.Run(context.Background())
		if err != nil {
			return fmt.Errorf("snapshot run: %w", err)
		}

		log.Printf(">> Snapshot complete: %d rows", n)
		return nil
	},
}
