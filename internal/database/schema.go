package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates the booking tables.  idx_bookings_user_status_cancelled
// serves the retention query of the cancel transaction and
// idx_bookings_user_date serves the listing queries.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS booking_users (
		id           CHAR(36)     NOT NULL,
		external_id  VARCHAR(128) NOT NULL,
		email        VARCHAR(255) NOT NULL DEFAULT '',
		display_name VARCHAR(255) NOT NULL DEFAULT '',
		created_at   DATETIME(3)  NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		updated_at   DATETIME(3)  NOT NULL DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3),
		PRIMARY KEY (id),
		UNIQUE KEY uq_booking_users_external_id (external_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id           CHAR(36)     NOT NULL,
		user_id      CHAR(36)     NOT NULL,
		booked_for   DATETIME(3)  NOT NULL,
		service_name VARCHAR(255) NOT NULL,
		status       ENUM('ACTIVE','CANCELLED') NOT NULL DEFAULT 'ACTIVE',
		cancelled_at DATETIME(6)  NULL,
		created_at   DATETIME(3)  NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		updated_at   DATETIME(3)  NOT NULL DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3),
		PRIMARY KEY (id),
		KEY idx_bookings_user_date (user_id, booked_for),
		KEY idx_bookings_user_status_cancelled (user_id, status, cancelled_at),
		CONSTRAINT fk_bookings_user FOREIGN KEY (user_id) REFERENCES booking_users (id),
		CONSTRAINT chk_bookings_cancelled CHECK ((status = 'CANCELLED') = (cancelled_at IS NOT NULL))
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates missing tables.  Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
