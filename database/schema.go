package database

import (
	"database/sql"
	"fmt"
	"log"
)

// Schema contains the database schema for the inspection service
const Schema = `
CREATE TABLE IF NOT EXISTS users (
    id VARCHAR(64) PRIMARY KEY,
    email VARCHAR(256) NOT NULL UNIQUE,
    name VARCHAR(256) NOT NULL,
    pin_hash VARCHAR(72) NOT NULL,
    is_admin BOOLEAN NOT NULL DEFAULT FALSE,
    agency VARCHAR(128) NOT NULL DEFAULT '',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    INDEX idx_users_email (email)
);

CREATE TABLE IF NOT EXISTS auth_tokens (
    id INT AUTO_INCREMENT PRIMARY KEY,
    user_id VARCHAR(64) NOT NULL,
    token_hash VARCHAR(64) NOT NULL,
    token_type ENUM('access', 'refresh') DEFAULT 'access',
    expires_at TIMESTAMP NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
    INDEX idx_user_token_type (user_id, token_type)
);

CREATE TABLE IF NOT EXISTS agencies (
    id INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
    name VARCHAR(128) NOT NULL,
    abbreviation VARCHAR(5) NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS inspections (
    id VARCHAR(64) PRIMARY KEY,
    seq INT NOT NULL UNIQUE,
    plate VARCHAR(6) NOT NULL,
    notes TEXT,
    extinguisher_expiry DATE NULL,
    inspector_id VARCHAR(64) NOT NULL,
    inspector_name VARCHAR(256) NOT NULL,
    inspector_email VARCHAR(256) NOT NULL,
    agency VARCHAR(128) NOT NULL DEFAULT '',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    INDEX idx_inspections_plate (plate),
    INDEX idx_inspections_created (created_at)
);

CREATE TABLE IF NOT EXISTS inspection_photos (
    id INT AUTO_INCREMENT PRIMARY KEY,
    inspection_id VARCHAR(64) NOT NULL,
    photo_type VARCHAR(32) NOT NULL,
    storage_url TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (inspection_id) REFERENCES inspections(id) ON DELETE CASCADE,
    UNIQUE KEY unique_inspection_photo (inspection_id, photo_type)
);

CREATE TABLE IF NOT EXISTS inspection_seq (
    id TINYINT PRIMARY KEY,
    value INT NOT NULL
);

INSERT IGNORE INTO inspection_seq (id, value) VALUES (1, 0);
`

// InitializeSchema creates all tables and seeds the sequence counter row
func InitializeSchema(db *sql.DB) error {
	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	log.Println("Database schema initialized")
	return nil
}
