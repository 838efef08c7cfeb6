package postgres

import (
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// testSchema mirrors the production tables closely enough for the queries in
// this package. Engine owned decimals are TEXT so they round-trip exactly.
const testSchema = `
CREATE TABLE parts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	ipn TEXT UNIQUE,
	description TEXT
);
CREATE TABLE stock_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	part_id INTEGER NOT NULL,
	quantity NUMERIC NOT NULL
);
CREATE TABLE stock_allocations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	part_id INTEGER NOT NULL,
	quantity NUMERIC NOT NULL
);
CREATE TABLE suppliers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	active BOOLEAN NOT NULL DEFAULT 1,
	is_supplier BOOLEAN NOT NULL DEFAULT 1
);
CREATE TABLE supplier_parts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	part_id INTEGER NOT NULL,
	supplier_id INTEGER NOT NULL,
	lead_time_days INTEGER,
	UNIQUE (part_id, supplier_id)
);
CREATE TABLE purchase_orders (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	reference TEXT NOT NULL,
	supplier_id INTEGER NOT NULL,
	description TEXT,
	status INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE purchase_order_lines (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id INTEGER NOT NULL,
	part_id INTEGER NOT NULL,
	quantity NUMERIC NOT NULL,
	received NUMERIC,
	reference TEXT
);
CREATE TABLE stock_movements (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	part_id INTEGER NOT NULL,
	quantity NUMERIC NOT NULL,
	movement_type TEXT NOT NULL,
	occurred_at TIMESTAMP NOT NULL
);

CREATE TABLE rop_policies (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	part_id INTEGER NOT NULL UNIQUE,
	enabled BOOLEAN NOT NULL,
	safety_stock TEXT NOT NULL,
	use_calculated_safety_stock BOOLEAN NOT NULL,
	service_level INTEGER NOT NULL,
	custom_lookback_days INTEGER,
	target_stock_multiplier TEXT NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	last_calculated_rop TEXT,
	last_calculated_demand_rate TEXT,
	last_calculation_date TIMESTAMP,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE rop_demand_statistics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	policy_id INTEGER NOT NULL,
	calculation_date TIMESTAMP NOT NULL,
	mean_daily_demand TEXT NOT NULL,
	std_dev_daily_demand TEXT NOT NULL,
	total_removals INTEGER NOT NULL,
	analysis_period_days INTEGER NOT NULL,
	calculated_safety_stock TEXT
);
CREATE TABLE rop_suggestions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	policy_id INTEGER NOT NULL,
	part_id INTEGER NOT NULL,
	suggested_order_qty TEXT NOT NULL,
	current_stock TEXT NOT NULL,
	projected_stock TEXT NOT NULL,
	calculated_rop TEXT NOT NULL,
	stockout_date TIMESTAMP,
	days_until_stockout INTEGER,
	urgency_score REAL NOT NULL,
	supplier_id INTEGER,
	supplier_name TEXT,
	lead_time_days INTEGER,
	status TEXT NOT NULL,
	created_date TIMESTAMP NOT NULL,
	actioned_date TIMESTAMP,
	purchase_order_id INTEGER,
	purchase_order_reference TEXT,
	notes TEXT NOT NULL DEFAULT ''
);
CREATE UNIQUE INDEX rop_suggestions_one_pending ON rop_suggestions (policy_id) WHERE status = 'PENDING';
CREATE TABLE rop_calculation_runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	status TEXT NOT NULL,
	total_parts INTEGER NOT NULL DEFAULT 0,
	parts_analyzed INTEGER NOT NULL DEFAULT 0,
	suggestion_count INTEGER NOT NULL DEFAULT 0,
	started_at TIMESTAMP NOT NULL,
	completed_at TIMESTAMP,
	error_message TEXT
);
CREATE TABLE rop_calculation_run_errors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id INTEGER NOT NULL,
	part_id INTEGER NOT NULL,
	error TEXT NOT NULL
);
`

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	return Wrap(db)
}
