// backend-go/cmd/seed/main.go
package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

type ctxKey string

const dbKey ctxKey = "db"

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func initDB(c *cli.Context) error {
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	c.Context = context.WithValue(c.Context, dbKey, db)
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.Context.Value(dbKey).(*sql.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func dbFrom(c *cli.Context) *sql.DB {
	return c.Context.Value(dbKey).(*sql.DB)
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "seed",
		Usage: "Seed the database with catalog and reorder data",
		Flags: []cli.Flag{
			newDBURLFlag(),
		},
		Commands: []*cli.Command{
			{
				Name:  "catalog",
				Usage: "Seed categories, suppliers, and products from CSV files",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:    "data-dir",
						Usage:   "Directory containing catalog seed CSVs",
						Value:   "./data/seeds/catalog",
						EnvVars: []string{"SEED_DATA_DIR"},
					},
				},
				Before: initDB,
				After:  closeDB,
				Action: seedCatalog,
			},
			{
				Name:  "orders",
				Usage: "Seed completed order history from a CSV file",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:    "file",
						Usage:   "CSV file with completed order lines",
						Value:   "./data/seeds/orders.csv",
						EnvVars: []string{"SEED_ORDERS_FILE"},
					},
				},
				Before: initDB,
				After:  closeDB,
				Action: seedOrders,
			},
			{
				Name:   "defaults",
				Usage:  "Insert the global reorder policy and default settings",
				Flags:  []cli.Flag{newDBURLFlag()},
				Before: initDB,
				After:  closeDB,
				Action: seedDefaults,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func seedCatalog(c *cli.Context) error {
	db := dbFrom(c)
	dataDir := c.String("data-dir")

	if err := seedCategories(c.Context, db, filepath.Join(dataDir, "categories.csv")); err != nil {
		return err
	}
	if err := seedSuppliers(c.Context, db, filepath.Join(dataDir, "suppliers.csv")); err != nil {
		return err
	}
	return seedProducts(c.Context, db, filepath.Join(dataDir, "products.csv"))
}

// seedCategories ingests id,name rows.
func seedCategories(ctx context.Context, db *sql.DB, path string) error {
	return forEachRow(path, 2, func(row []string) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO categories (id, name)
			VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
		`, row[0], row[1])
		return err
	})
}

// seedSuppliers ingests id,name,lead_time_days,reliability_score,active_promotion rows.
func seedSuppliers(ctx context.Context, db *sql.DB, path string) error {
	return forEachRow(path, 5, func(row []string) error {
		leadTime, err := strconv.Atoi(row[2])
		if err != nil {
			return fmt.Errorf("bad lead_time_days %q: %w", row[2], err)
		}
		reliability, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			return fmt.Errorf("bad reliability_score %q: %w", row[3], err)
		}
		promotion := row[4] == "true" || row[4] == "1"

		_, err = db.ExecContext(ctx, `
			INSERT INTO suppliers (id, name, lead_time_days, reliability_score, active_promotion)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				lead_time_days = EXCLUDED.lead_time_days,
				reliability_score = EXCLUDED.reliability_score,
				active_promotion = EXCLUDED.active_promotion
		`, row[0], row[1], leadTime, reliability, promotion)
		return err
	})
}

// seedProducts ingests id,sku,name,category_id,supplier_id,current_stock,low_stock_threshold,unit_price rows.
func seedProducts(ctx context.Context, db *sql.DB, path string) error {
	return forEachRow(path, 8, func(row []string) error {
		stock, err := strconv.Atoi(row[5])
		if err != nil {
			return fmt.Errorf("bad current_stock %q: %w", row[5], err)
		}
		threshold, err := strconv.Atoi(row[6])
		if err != nil {
			return fmt.Errorf("bad low_stock_threshold %q: %w", row[6], err)
		}
		price, err := strconv.ParseFloat(row[7], 64)
		if err != nil {
			return fmt.Errorf("bad unit_price %q: %w", row[7], err)
		}

		_, err = db.ExecContext(ctx, `
			INSERT INTO products (
				id, sku, name, category_id, supplier_id,
				current_stock, low_stock_threshold, unit_price, updated_at
			) VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, NOW())
			ON CONFLICT (id) DO UPDATE SET
				sku = EXCLUDED.sku,
				name = EXCLUDED.name,
				category_id = EXCLUDED.category_id,
				supplier_id = EXCLUDED.supplier_id,
				current_stock = EXCLUDED.current_stock,
				low_stock_threshold = EXCLUDED.low_stock_threshold,
				unit_price = EXCLUDED.unit_price,
				updated_at = NOW()
		`, row[0], row[1], row[2], row[3], row[4], stock, threshold, price)
		return err
	})
}

// seedOrders ingests order_id,product_id,quantity,completed_at rows into a
// completed order plus one order item each.
func seedOrders(c *cli.Context) error {
	db := dbFrom(c)
	return forEachRow(c.String("file"), 4, func(row []string) error {
		quantity, err := strconv.Atoi(row[2])
		if err != nil {
			return fmt.Errorf("bad quantity %q: %w", row[2], err)
		}

		if _, err := db.ExecContext(c.Context, `
			INSERT INTO orders (id, status, completed_at)
			VALUES ($1, 'completed', $2::timestamptz)
			ON CONFLICT (id) DO NOTHING
		`, row[0], row[3]); err != nil {
			return err
		}

		_, err = db.ExecContext(c.Context, `
			INSERT INTO order_items (order_id, product_id, quantity)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING
		`, row[0], row[1], quantity)
		return err
	})
}

func seedDefaults(c *cli.Context) error {
	db := dbFrom(c)

	if _, err := db.ExecContext(c.Context, `
		INSERT INTO reorder_policies (
			id, scope, min_stock_multiplier, max_order_quantity,
			preferred_order_quantity, safety_stock_days, review_frequency_days,
			auto_approve_threshold, is_active, created_at, updated_at
		) VALUES (gen_random_uuid(), 'global', 1.5, 0, 0, 7, 7, 0, true, NOW(), NOW())
		ON CONFLICT DO NOTHING
	`); err != nil {
		return fmt.Errorf("failed to insert global policy: %w", err)
	}

	if _, err := db.ExecContext(c.Context, `
		INSERT INTO reorder_settings (
			id, auto_reorder_enabled, analysis_frequency_hours,
			default_confidence_threshold, max_auto_approve_amount, updated_at
		) VALUES (1, false, 24, 70, 0, NOW())
		ON CONFLICT (id) DO NOTHING
	`); err != nil {
		return fmt.Errorf("failed to insert default settings: %w", err)
	}

	log.Println("default policy and settings seeded")
	return nil
}

// forEachRow streams a headered CSV, applying fn to each data row.
func forEachRow(path string, minColumns int, fn func(row []string) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	// Skip header
	if _, err := reader.Read(); err != nil {
		return fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read %s line %d: %w", path, line, err)
		}
		line++
		if len(row) < minColumns {
			return fmt.Errorf("%s line %d: expected %d columns, got %d", path, line, minColumns, len(row))
		}
		if err := fn(row); err != nil {
			return fmt.Errorf("%s line %d: %w", path, line, err)
		}
	}
}
