package database

import (
    "context"
    "database/sql"
    "fmt"
)

// schema lists the DDL applied by Migrate, in dependency order.  Every
// statement is idempotent.
var schema = []string{
    `CREATE TABLE IF NOT EXISTS users (
        id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
        email         VARCHAR(255) NOT NULL,
        name          VARCHAR(255) NOT NULL DEFAULT '',
        phone         VARCHAR(32)  NOT NULL DEFAULT '',
        password_hash VARCHAR(255) NOT NULL,
        role          ENUM('ADMIN','CUSTOMER') NOT NULL DEFAULT 'CUSTOMER',
        company_id    BIGINT UNSIGNED NOT NULL DEFAULT 1,
        is_active     BOOLEAN NOT NULL DEFAULT TRUE,
        created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
        UNIQUE KEY uq_users_email (email)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

    `CREATE TABLE IF NOT EXISTS refresh_tokens (
        id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
        user_id    BIGINT UNSIGNED NOT NULL,
        token_hash CHAR(64) NOT NULL,
        expires_at DATETIME NOT NULL,
        revoked_at DATETIME NULL,
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        UNIQUE KEY uq_refresh_tokens_hash (token_hash),
        KEY ix_refresh_tokens_user (user_id),
        CONSTRAINT fk_refresh_tokens_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

    `CREATE TABLE IF NOT EXISTS categories (
        id          BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
        name        VARCHAR(255) NOT NULL,
        code        VARCHAR(64) NULL,
        description TEXT NOT NULL,
        parent_id   BIGINT UNSIGNED NULL,
        active      BOOLEAN NOT NULL DEFAULT TRUE,
        created_at  DATETIME NOT NULL,
        updated_at  DATETIME NOT NULL,
        created_by  BIGINT UNSIGNED NULL,
        updated_by  BIGINT UNSIGNED NULL,
        UNIQUE KEY uq_categories_code (code),
        CONSTRAINT fk_categories_parent FOREIGN KEY (parent_id) REFERENCES categories (id) ON DELETE RESTRICT
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

    `CREATE TABLE IF NOT EXISTS tags (
        id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
        name       VARCHAR(128) NOT NULL,
        color      TINYINT UNSIGNED NOT NULL DEFAULT 0,
        active     BOOLEAN NOT NULL DEFAULT TRUE,
        created_at DATETIME NOT NULL,
        updated_at DATETIME NOT NULL,
        created_by BIGINT UNSIGNED NULL,
        updated_by BIGINT UNSIGNED NULL,
        UNIQUE KEY uq_tags_name (name)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

    `CREATE TABLE IF NOT EXISTS catalog_items (
        id                  BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
        name                VARCHAR(255) NOT NULL,
        description         TEXT NOT NULL,
        price               DECIMAL(12,2) NOT NULL DEFAULT 0,
        currency            CHAR(3) NOT NULL DEFAULT 'USD',
        active              BOOLEAN NOT NULL DEFAULT TRUE,
        published           BOOLEAN NOT NULL DEFAULT FALSE,
        category_id         BIGINT UNSIGNED NULL,
        capacity            INT UNSIGNED NOT NULL DEFAULT 0,
        company_id          BIGINT UNSIGNED NOT NULL DEFAULT 1,
        start_at            DATETIME NULL,
        end_at              DATETIME NULL,
        early_bird_price    DECIMAL(12,2) NULL,
        early_bird_deadline DATETIME NULL,
        discount_percentage DECIMAL(5,2) NOT NULL DEFAULT 0,
        created_at          DATETIME NOT NULL,
        updated_at          DATETIME NOT NULL,
        created_by          BIGINT UNSIGNED NULL,
        updated_by          BIGINT UNSIGNED NULL,
        KEY ix_catalog_items_listing (active, published, start_at),
        CONSTRAINT fk_catalog_items_category FOREIGN KEY (category_id) REFERENCES categories (id) ON DELETE RESTRICT,
        CONSTRAINT ck_catalog_items_discount CHECK (discount_percentage BETWEEN 0 AND 100)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

    `CREATE TABLE IF NOT EXISTS item_tags (
        item_id BIGINT UNSIGNED NOT NULL,
        tag_id  BIGINT UNSIGNED NOT NULL,
        PRIMARY KEY (item_id, tag_id),
        CONSTRAINT fk_item_tags_item FOREIGN KEY (item_id) REFERENCES catalog_items (id) ON DELETE CASCADE,
        CONSTRAINT fk_item_tags_tag  FOREIGN KEY (tag_id)  REFERENCES tags (id) ON DELETE CASCADE
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

    `CREATE TABLE IF NOT EXISTS bookings (
        id             BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
        reference      VARCHAR(64) NOT NULL,
        customer_id    BIGINT UNSIGNED NOT NULL,
        item_id        BIGINT UNSIGNED NOT NULL,
        quantity       INT UNSIGNED NOT NULL,
        booking_date   DATETIME NOT NULL,
        unit_price     DECIMAL(12,2) NOT NULL,
        amount         DECIMAL(12,2) NOT NULL,
        currency       CHAR(3) NOT NULL DEFAULT 'USD',
        state          ENUM('draft','waitlisted','confirmed','done','cancelled') NOT NULL DEFAULT 'draft',
        notes          TEXT NOT NULL,
        review_rating  TINYINT UNSIGNED NULL,
        review_comment TEXT NOT NULL,
        company_id     BIGINT UNSIGNED NOT NULL DEFAULT 1,
        created_at     DATETIME(6) NOT NULL,
        updated_at     DATETIME(6) NOT NULL,
        created_by     BIGINT UNSIGNED NULL,
        updated_by     BIGINT UNSIGNED NULL,
        UNIQUE KEY uq_bookings_reference (reference),
        KEY ix_bookings_item_state (item_id, state, created_at),
        KEY ix_bookings_customer (customer_id, item_id),
        CONSTRAINT fk_bookings_customer FOREIGN KEY (customer_id) REFERENCES users (id) ON DELETE RESTRICT,
        CONSTRAINT fk_bookings_item     FOREIGN KEY (item_id) REFERENCES catalog_items (id) ON DELETE RESTRICT,
        CONSTRAINT ck_bookings_quantity CHECK (quantity > 0),
        CONSTRAINT ck_bookings_rating   CHECK (review_rating IS NULL OR review_rating BETWEEN 1 AND 5)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

    `CREATE TABLE IF NOT EXISTS sequences (
        name  VARCHAR(128) NOT NULL PRIMARY KEY,
        value BIGINT UNSIGNED NOT NULL
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate applies the schema.  The MySQL driver runs one statement per
// call unless multiStatements is enabled, so statements are executed one
// at a time.
func Migrate(ctx context.Context, db *sql.DB) error {
    for i, stmt := range schema {
        if _, err := db.ExecContext(ctx, stmt); err != nil {
            return fmt.Errorf("migrate statement %d: %w", i+1, err)
        }
    }
    return nil
}
