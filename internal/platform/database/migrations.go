package database

import (
	"context"
	"database/sql"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS reservations (
	id TEXT PRIMARY KEY,
	date TEXT NOT NULL,
	partition_key TEXT NOT NULL,
	start_time TEXT NOT NULL,
	end_time TEXT NOT NULL,
	duration INT NOT NULL,
	status TEXT NOT NULL,
	lock_expires_at TIMESTAMPTZ NOT NULL,
	sub_service_id TEXT NOT NULL DEFAULT '',
	service_name TEXT NOT NULL DEFAULT '',
	sub_services JSONB NOT NULL DEFAULT '[]',
	notes TEXT NOT NULL DEFAULT '',
	change_published BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_reservations_date ON reservations(date);
CREATE INDEX IF NOT EXISTS idx_reservations_stale ON reservations(status, lock_expires_at);
CREATE INDEX IF NOT EXISTS idx_reservations_unpublished ON reservations(updated_at) WHERE NOT change_published;

CREATE TABLE IF NOT EXISTS timeslot_days (
	date TEXT PRIMARY KEY,
	partition_key TEXT NOT NULL,
	time_slots JSONB NOT NULL DEFAULT '[]',
	is_available BOOLEAN NOT NULL DEFAULT TRUE,
	special_notes TEXT NOT NULL DEFAULT '',
	version INT NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_timeslot_days_partition ON timeslot_days(partition_key);

CREATE TABLE IF NOT EXISTS bookings (
	id TEXT PRIMARY KEY,
	customer_id TEXT NOT NULL,
	sub_service_id TEXT NOT NULL DEFAULT '',
	date TEXT NOT NULL,
	start_time TEXT NOT NULL,
	end_time TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS customers (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS sub_services (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	duration INT NOT NULL,
	service_id TEXT NOT NULL DEFAULT '',
	service_name TEXT NOT NULL DEFAULT ''
);
`

func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schemaSQL)
	return err
}
