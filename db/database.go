package db

import (
	"database/sql"
	"fmt"
	"log"

	"stemroom/config"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

var DB *sql.DB

// ConnectDB establishes a connection to the database.
func ConnectDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var err error
	DB, err = sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = DB.Ping(); err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to the database.")
	return nil
}

// InitDB initializes the database schema, creating tables if they don't exist.
// Tables are created parent-first so the foreign keys resolve.
func InitDB() error {
	ddl := []struct {
		name  string
		query string
	}{
		{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id INT AUTO_INCREMENT PRIMARY KEY,
			username VARCHAR(100) NOT NULL UNIQUE,
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		);`},
		{"bands", `
		CREATE TABLE IF NOT EXISTS bands (
			id INT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			created_by INT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			CONSTRAINT fk_band_creator FOREIGN KEY (created_by) REFERENCES users(id)
		);`},
		{"band_members", `
		CREATE TABLE IF NOT EXISTS band_members (
			band_id INT NOT NULL,
			user_id INT NOT NULL,
			role VARCHAR(20) NOT NULL DEFAULT 'member',
			joined_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (band_id, user_id),
			CONSTRAINT fk_member_band FOREIGN KEY (band_id) REFERENCES bands(id) ON DELETE CASCADE,
			CONSTRAINT fk_member_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		);`},
		{"songs", `
		CREATE TABLE IF NOT EXISTS songs (
			id INT AUTO_INCREMENT PRIMARY KEY,
			band_id INT NOT NULL,
			title VARCHAR(255) NOT NULL,
			description TEXT,
			created_by INT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			CONSTRAINT fk_song_band FOREIGN KEY (band_id) REFERENCES bands(id) ON DELETE CASCADE
		);`},
		{"tracks", `
		CREATE TABLE IF NOT EXISTS tracks (
			id INT AUTO_INCREMENT PRIMARY KEY,
			song_id INT NOT NULL,
			name VARCHAR(255) NOT NULL,
			position INT NOT NULL DEFAULT 0,
			active_revision_id BIGINT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			CONSTRAINT fk_track_song FOREIGN KEY (song_id) REFERENCES songs(id) ON DELETE CASCADE
		);`},
		{"revisions", `
		CREATE TABLE IF NOT EXISTS revisions (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			track_id INT NOT NULL,
			revision_number INT NOT NULL,
			title VARCHAR(255),
			memo TEXT,
			idempotency_key VARCHAR(100) NULL,
			created_by INT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT uq_track_revision UNIQUE (track_id, revision_number),
			CONSTRAINT uq_track_idem_key UNIQUE (track_id, idempotency_key),
			CONSTRAINT fk_revision_track FOREIGN KEY (track_id) REFERENCES tracks(id) ON DELETE CASCADE
		);`},
		{"revision_counters", `
		CREATE TABLE IF NOT EXISTS revision_counters (
			track_id INT PRIMARY KEY,
			last_number INT NOT NULL DEFAULT 0,
			CONSTRAINT fk_counter_track FOREIGN KEY (track_id) REFERENCES tracks(id) ON DELETE CASCADE
		);`},
		{"assets", `
		CREATE TABLE IF NOT EXISTS assets (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			revision_id BIGINT NOT NULL,
			asset_type VARCHAR(20) NOT NULL,
			format VARCHAR(20),
			content_type VARCHAR(100),
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			object_key VARCHAR(512) NOT NULL,
			byte_size BIGINT NOT NULL DEFAULT 0,
			duration_sec FLOAT NOT NULL DEFAULT 0,
			sample_rate INT NOT NULL DEFAULT 0,
			channels INT NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			CONSTRAINT uq_revision_asset_type UNIQUE (revision_id, asset_type),
			CONSTRAINT fk_asset_revision FOREIGN KEY (revision_id) REFERENCES revisions(id) ON DELETE CASCADE
		);`},
		{"mix_sessions", `
		CREATE TABLE IF NOT EXISTS mix_sessions (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			song_id INT NOT NULL,
			name VARCHAR(255) NOT NULL,
			created_by INT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT fk_session_song FOREIGN KEY (song_id) REFERENCES songs(id) ON DELETE CASCADE
		);`},
		{"mix_session_tracks", `
		CREATE TABLE IF NOT EXISTS mix_session_tracks (
			session_id BIGINT NOT NULL,
			track_id INT NOT NULL,
			track_revision_id BIGINT NULL,
			mute TINYINT(1) NOT NULL DEFAULT 0,
			gain_db DECIMAL(6,2) NOT NULL DEFAULT 0,
			pan DECIMAL(4,3) NOT NULL DEFAULT 0,
			start_offset_ms INT NOT NULL DEFAULT 0,
			PRIMARY KEY (session_id, track_id),
			CONSTRAINT fk_st_session FOREIGN KEY (session_id) REFERENCES mix_sessions(id) ON DELETE CASCADE,
			CONSTRAINT fk_st_track FOREIGN KEY (track_id) REFERENCES tracks(id) ON DELETE CASCADE
		);`},
	}

	for _, t := range ddl {
		if _, err := DB.Exec(t.query); err != nil {
			return fmt.Errorf("failed to create %s table: %w", t.name, err)
		}
	}

	log.Println("Database schema initialized.")
	return nil
}
