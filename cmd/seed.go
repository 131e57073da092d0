package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/VytasKer/Fintegrate/internal/config"
	"github.com/VytasKer/Fintegrate/internal/db"
	"github.com/VytasKer/Fintegrate/internal/model"
	"github.com/VytasKer/Fintegrate/internal/util"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo tenants and customers",
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1) load config
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		// 2) connect MySQL
		sqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		log.Println(">> Seeding demo tenants...")

		if err := seedTenants(sqlDB); err != nil {
			return err
		}
		if err := seedDemoCustomers(sqlDB); err != nil {
			return err
		}

		log.Println(">> Seed completed ✅")
		return nil
	},
}

// seedTenants inserts deterministic demo tenants (idempotent).
func seedTenants(dbx *sqlx.DB) error {
	tenants := []model.Tenant{
		{
			ID:           "T-ACME",
			Name:         "Acme Corp",
			APIKey:       "11111111111111111111111111111111",
			Status:       "active",
			RateLimitRPS: intptr(20),
		},
		{
			ID:           "T-FOOBAR",
			Name:         "Foobar LLC",
			APIKey:       "22222222222222222222222222222222",
			Status:       "active",
			RateLimitRPS: intptr(50),
		},
		{
			ID:           "T-BETA",
			Name:         "Beta Testers",
			APIKey:       "33333333333333333333333333333333",
			Status:       "active",
			RateLimitRPS: intptr(5),
		},
		{
			ID:           "T-SUSPENDED",
			Name:         "Suspended Inc",
			APIKey:       "44444444444444444444444444444444",
			Status:       "suspended",
			RateLimitRPS: nil,
		},
		{
			ID:           "T-EXPRESS",
			Name:         "Express Partner",
			APIKey:       "55555555555555555555555555555555",
			Status:       "active",
			RateLimitRPS: intptr(100),
		},
	}

	// idempotent upsert based on id (PK) and api_key (UNIQUE)
	const q = `
INSERT INTO tenants
    (id, name, api_key, status, rate_limit_rps, created_at, updated_at)
VALUES
    (?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    name        = VALUES(name),
    status      = VALUES(status),
    rate_limit_rps = VALUES(rate_limit_rps),
    updated_at  = VALUES(updated_at)
`
	tx, err := dbx.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	for _, t := range tenants {
		if _, err := tx.Exec(q, t.ID, t.Name, t.APIKey, t.Status, t.RateLimitRPS, now, now); err != nil {
			return fmt.Errorf("insert tenant %q: %w", t.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tenants: %w", err)
	}
	return nil
}

// seedDemoCustomers gives each active tenant a starter customer, skipping
// tenants that already have one.
func seedDemoCustomers(dbx *sqlx.DB) error {
	const countQ = `SELECT COUNT(*) FROM customers WHERE tenant_id = ?`
	const insertQ = `
INSERT INTO customers (id, tenant_id, name, status, created_at, updated_at)
VALUES (?, ?, ?, 'ACTIVE', NOW(), NOW())
`
	var tenantIDs []string
	if err := dbx.Select(&tenantIDs, `SELECT id FROM tenants WHERE status = 'active'`); err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}

	for _, tid := range tenantIDs {
		var n int
		if err := dbx.Get(&n, countQ, tid); err != nil {
			return fmt.Errorf("count customers for %s: %w", tid, err)
		}
		if n > 0 {
			continue
		}
		if _, err := dbx.Exec(insertQ, util.New(), tid, "Demo Customer"); err != nil {
			return fmt.Errorf("insert demo customer for %s: %w", tid, err)
		}
	}
	return nil
}

func intptr(i int) *int { return &i }
