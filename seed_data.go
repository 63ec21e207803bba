package main

import (
	"database/sql"
	"log"
	"os"

	_ "github.com/lib/pq"

	"conference-booking-server/utils"
)

// runSeed inserts demo departments, an admin user and a sample resource
// account so a fresh deployment has something to book against. It runs
// before GORM migrations, so it creates the tables it needs if missing.
func runSeed() {
	connStr := os.Getenv("DB_URL")
	if connStr == "" {
		log.Fatal("DB_URL is required to seed")
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database:", err)
	}
	log.Println("✅ Successfully connected to database")

	statements := []string{
		`CREATE TABLE IF NOT EXISTS departments (
			id bigserial PRIMARY KEY,
			name varchar(255) NOT NULL UNIQUE,
			weekly_limit bigint NOT NULL DEFAULT 5,
			is_active boolean DEFAULT true,
			created_at timestamptz,
			updated_at timestamptz
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id bigserial PRIMARY KEY,
			full_name varchar(255) NOT NULL,
			email varchar(255) NOT NULL UNIQUE,
			password_hash varchar(255) NOT NULL,
			role varchar(20) DEFAULT 'user',
			department_id bigint,
			is_active boolean DEFAULT true,
			created_at timestamptz,
			updated_at timestamptz
		)`,
		`CREATE TABLE IF NOT EXISTS resource_accounts (
			id bigserial PRIMARY KEY,
			label varchar(255) NOT NULL,
			email varchar(255) NOT NULL UNIQUE,
			zoom_account_id varchar(128) NOT NULL,
			zoom_client_id varchar(128) NOT NULL,
			zoom_client_secret varchar(128) NOT NULL,
			max_concurrent_meetings bigint NOT NULL DEFAULT 1,
			status varchar(20) DEFAULT 'active',
			last_verified_at timestamptz,
			created_at timestamptz,
			updated_at timestamptz
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			log.Fatal("Failed to create tables:", err)
		}
	}

	departments := []struct {
		name  string
		limit int
	}{
		{"Engineering", 10},
		{"Sales", 5},
		{"Human Resources", 5},
	}
	for _, dept := range departments {
		_, err := db.Exec(
			`INSERT INTO departments (name, weekly_limit, is_active, created_at, updated_at)
			 VALUES ($1, $2, true, now(), now())
			 ON CONFLICT (name) DO NOTHING`,
			dept.name, dept.limit,
		)
		if err != nil {
			log.Printf("❌ Failed to seed department %s: %v", dept.name, err)
			continue
		}
		log.Printf("✅ Seeded department %s (weekly limit %d)", dept.name, dept.limit)
	}

	adminPassword := os.Getenv("SEED_ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "admin-change-me"
	}
	hash, err := utils.HashPassword(adminPassword)
	if err != nil {
		log.Fatal("Failed to hash admin password:", err)
	}
	_, err = db.Exec(
		`INSERT INTO users (full_name, email, password_hash, role, is_active, created_at, updated_at)
		 VALUES ('Administrator', 'admin@example.com', $1, 'admin', true, now(), now())
		 ON CONFLICT (email) DO NOTHING`,
		hash,
	)
	if err != nil {
		log.Fatal("Failed to seed admin user:", err)
	}
	log.Println("✅ Seeded admin user admin@example.com")

	_, err = db.Exec(
		`INSERT INTO resource_accounts (label, email, zoom_account_id, zoom_client_id, zoom_client_secret, max_concurrent_meetings, status, created_at, updated_at)
		 VALUES ('Primary', 'meetings@example.com', $1, $2, $3, 1, 'active', now(), now())
		 ON CONFLICT (email) DO NOTHING`,
		os.Getenv("SEED_ZOOM_ACCOUNT_ID"),
		os.Getenv("SEED_ZOOM_CLIENT_ID"),
		os.Getenv("SEED_ZOOM_CLIENT_SECRET"),
	)
	if err != nil {
		log.Fatal("Failed to seed resource account:", err)
	}
	log.Println("✅ Seeded resource account meetings@example.com")
}
