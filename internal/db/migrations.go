package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "pgcrypto";`,
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name VARCHAR(100) NOT NULL,
		email VARCHAR(255) NOT NULL,
		password_hash TEXT NOT NULL,
		phone VARCHAR(20) NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		pin_code VARCHAR(12) NOT NULL DEFAULT '',
		lon DOUBLE PRECISION,
		lat DOUBLE PRECISION,
		profile_pic_url TEXT NOT NULL DEFAULT '',
		profile_pic_key TEXT NOT NULL DEFAULT '',
		points BIGINT NOT NULL DEFAULT 0 CHECK (points >= 0),
		monthly_points BIGINT NOT NULL DEFAULT 0,
		community_points BIGINT NOT NULL DEFAULT 0,
		completed_requests BIGINT NOT NULL DEFAULT 0,
		redeemed_points BIGINT NOT NULL DEFAULT 0,
		last_monthly_rank INT,
		last_reset_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_users_email ON users (email);`,
	`CREATE INDEX IF NOT EXISTS idx_users_monthly_points ON users (monthly_points DESC, id) WHERE monthly_points > 0;`,
	`CREATE TABLE IF NOT EXISTS agencies (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name VARCHAR(200) NOT NULL,
		email VARCHAR(255) NOT NULL,
		password_hash TEXT NOT NULL,
		agency_types JSONB NOT NULL DEFAULT '[]',
		address TEXT NOT NULL,
		region VARCHAR(100) NOT NULL DEFAULT '',
		phone VARCHAR(20) NOT NULL DEFAULT '',
		contact_person VARCHAR(100) NOT NULL DEFAULT '',
		lon DOUBLE PRECISION NOT NULL DEFAULT 0,
		lat DOUBLE PRECISION NOT NULL DEFAULT 0,
		working_hours VARCHAR(100) NOT NULL DEFAULT '',
		certification_status VARCHAR(20) NOT NULL DEFAULT 'Uncertified',
		waste_types_handled JSONB NOT NULL DEFAULT '[]',
		inventory_setup BOOLEAN NOT NULL DEFAULT FALSE,
		logo_url TEXT NOT NULL DEFAULT '',
		logo_storage_key TEXT NOT NULL DEFAULT '',
		trade_license_url TEXT NOT NULL DEFAULT '',
		trade_license_storage_key TEXT NOT NULL DEFAULT '',
		pcb_auth_url TEXT NOT NULL DEFAULT '',
		pcb_auth_storage_key TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_agencies_email ON agencies (email);`,
	`CREATE TABLE IF NOT EXISTS volunteers (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		agency_id UUID NOT NULL REFERENCES agencies(id) ON DELETE CASCADE,
		name VARCHAR(100) NOT NULL,
		email VARCHAR(255) NOT NULL,
		password_hash TEXT NOT NULL,
		phone VARCHAR(20) NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		pickup_area JSONB NOT NULL DEFAULT '{}',
		status VARCHAR(20) NOT NULL DEFAULT 'Active',
		push_token TEXT NOT NULL DEFAULT '',
		profile_pic_url TEXT NOT NULL DEFAULT '',
		profile_pic_key TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_volunteers_email ON volunteers (email);`,
	`CREATE INDEX IF NOT EXISTS idx_volunteers_agency_id ON volunteers (agency_id);`,
	`CREATE TABLE IF NOT EXISTS admins (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		email VARCHAR(255) NOT NULL,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_admins_email ON admins (email);`,
	`CREATE TABLE IF NOT EXISTS inventories (
		agency_id UUID PRIMARY KEY REFERENCES agencies(id) ON DELETE CASCADE,
		total_capacity NUMERIC(14,3) NOT NULL CHECK (total_capacity > 0),
		current_capacity NUMERIC(14,3) NOT NULL DEFAULT 0 CHECK (current_capacity >= 0),
		location_address TEXT NOT NULL DEFAULT '',
		location_city VARCHAR(100) NOT NULL DEFAULT '',
		location_state VARCHAR(100) NOT NULL DEFAULT '',
		location_postal_code VARCHAR(12) NOT NULL DEFAULT '',
		last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (current_capacity <= total_capacity)
	);`,
	`CREATE TABLE IF NOT EXISTS inventory_breakdown (
		agency_id UUID NOT NULL REFERENCES inventories(agency_id) ON DELETE CASCADE,
		waste_type VARCHAR(64) NOT NULL,
		count INT NOT NULL DEFAULT 0 CHECK (count >= 0),
		PRIMARY KEY (agency_id, waste_type)
	);`,
	`CREATE TABLE IF NOT EXISTS requests (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		agency_id UUID NOT NULL REFERENCES agencies(id),
		volunteer_id UUID REFERENCES volunteers(id) ON DELETE SET NULL,
		weight NUMERIC(12,3) NOT NULL CHECK (weight >= 0),
		pickup_address TEXT NOT NULL,
		pickup_lon DOUBLE PRECISION NOT NULL,
		pickup_lat DOUBLE PRECISION NOT NULL,
		pickup_date TIMESTAMPTZ NOT NULL,
		contact_number VARCHAR(10) NOT NULL,
		special_instructions VARCHAR(500) NOT NULL DEFAULT '',
		status VARCHAR(20) NOT NULL DEFAULT 'Pending',
		stage VARCHAR(32) NOT NULL DEFAULT 'requestReceived',
		pickup_code VARCHAR(6) NOT NULL DEFAULT '',
		detected_category VARCHAR(64) NOT NULL DEFAULT '',
		rejected_at TIMESTAMPTZ,
		rejection_reason TEXT,
		version BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_requests_user_id ON requests (user_id, created_at DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_requests_agency_id ON requests (agency_id, created_at DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_requests_volunteer_id ON requests (volunteer_id) WHERE volunteer_id IS NOT NULL;`,
	`CREATE INDEX IF NOT EXISTS idx_requests_status ON requests (status);`,
	`CREATE TABLE IF NOT EXISTS request_items (
		position BIGSERIAL PRIMARY KEY,
		request_id UUID NOT NULL REFERENCES requests(id) ON DELETE CASCADE,
		waste_type VARCHAR(64) NOT NULL,
		quantity INT NOT NULL CHECK (quantity >= 0)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_request_items_request_id ON request_items (request_id);`,
	`CREATE TABLE IF NOT EXISTS request_images (
		position BIGSERIAL PRIMARY KEY,
		request_id UUID NOT NULL REFERENCES requests(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		storage_key TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_request_images_request_id ON request_images (request_id);`,
	`CREATE TABLE IF NOT EXISTS request_milestones (
		seq BIGSERIAL PRIMARY KEY,
		id UUID NOT NULL UNIQUE,
		request_id UUID NOT NULL REFERENCES requests(id) ON DELETE CASCADE,
		milestone VARCHAR(32) NOT NULL,
		actor_id UUID,
		actor_role VARCHAR(20) NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		lon DOUBLE PRECISION,
		lat DOUBLE PRECISION,
		address TEXT NOT NULL DEFAULT '',
		details JSONB,
		completed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_request_milestones_once ON request_milestones (request_id, milestone);`,
	`CREATE TABLE IF NOT EXISTS products (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		agency_id UUID NOT NULL REFERENCES agencies(id) ON DELETE CASCADE,
		name VARCHAR(200) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		image_key TEXT NOT NULL DEFAULT '',
		points_required BIGINT NOT NULL CHECK (points_required > 0),
		stock INT NOT NULL DEFAULT 0 CHECK (stock >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		number VARCHAR(32) NOT NULL,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		product_id UUID NOT NULL REFERENCES products(id),
		agency_id UUID NOT NULL REFERENCES agencies(id),
		points_spent BIGINT NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'Pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_orders_number ON orders (number);`,
	`CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders (user_id);`,
	`CREATE INDEX IF NOT EXISTS idx_orders_agency_id ON orders (agency_id);`,
	`CREATE TABLE IF NOT EXISTS community_events (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		title VARCHAR(200) NOT NULL,
		description TEXT NOT NULL,
		organizer_user_id UUID REFERENCES users(id) ON DELETE SET NULL,
		organizer_agency_id UUID REFERENCES agencies(id) ON DELETE SET NULL,
		event_type VARCHAR(32) NOT NULL,
		start_date TIMESTAMPTZ NOT NULL,
		end_date TIMESTAMPTZ NOT NULL,
		event_time VARCHAR(32) NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		registration_link TEXT NOT NULL DEFAULT '',
		contact_name VARCHAR(100) NOT NULL DEFAULT '',
		contact_email VARCHAR(255) NOT NULL DEFAULT '',
		contact_phone VARCHAR(20) NOT NULL DEFAULT '',
		moderation_label VARCHAR(16) NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (end_date >= start_date)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_community_events_end_date ON community_events (end_date);`,
	`CREATE TABLE IF NOT EXISTS job_runs (
		name VARCHAR(64) NOT NULL,
		period VARCHAR(16) NOT NULL,
		ran_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (name, period)
	);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
