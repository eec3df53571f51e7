package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

func Initialize(dbPath string) (*sql.DB, error) {
	if dbPath != ":memory:" {
		// Create data directory if it doesn't exist
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}

		// Refuse to open a pre-existing database without its encryption key.
		if _, err := os.Stat(dbPath); err == nil {
			if os.Getenv("DB_ENCRYPTION_KEY") == "" {
				return nil, fmt.Errorf("existing database detected at %s: DB_ENCRYPTION_KEY must be set to open it", dbPath)
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Apply the SQLCipher key right after opening, if one is configured.
	if key := os.Getenv("DB_ENCRYPTION_KEY"); key != "" {
		esc := strings.ReplaceAll(key, "'", "''")
		if _, err := db.Exec(fmt.Sprintf("PRAGMA key = '%s';", esc)); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set database encryption key: %w", err)
		}
		_, _ = db.Exec("PRAGMA cipher_compatibility = 4;")
		var count int
		row := db.QueryRow("SELECT count(*) FROM sqlite_master;")
		if err := row.Scan(&count); err != nil {
			db.Close()
			return nil, fmt.Errorf("database inaccessible with provided encryption key: %w", err)
		}
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		email TEXT,
		password_hash TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL DEFAULT '',
		timezone TEXT NOT NULL DEFAULT 'UTC',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS user_settings (
		user_id TEXT PRIMARY KEY,
		long_term_months INTEGER NOT NULL DEFAULT 3,
		cycle_days INTEGER NOT NULL DEFAULT 14,
		highlight_points INTEGER NOT NULL DEFAULT 30,
		habit_min INTEGER NOT NULL DEFAULT 5,
		habit_max INTEGER NOT NULL DEFAULT 10,
		extra_points INTEGER NOT NULL DEFAULT 10,
		difficulty_scaling BOOLEAN NOT NULL DEFAULT 0,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		parent_id TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY (parent_id) REFERENCES categories(id),
		UNIQUE(user_id, parent_id, name)
	);

	CREATE TABLE IF NOT EXISTS goals (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		category_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		type TEXT NOT NULL CHECK (type IN ('progressive', 'habitual')),
		importance INTEGER NOT NULL DEFAULT 3 CHECK (importance BETWEEN 1 AND 5),
		effort_estimate_hours REAL,
		status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'completed')),
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY (category_id) REFERENCES categories(id)
	);

	CREATE TABLE IF NOT EXISTS milestones (
		id TEXT PRIMARY KEY,
		goal_id TEXT NOT NULL,
		title TEXT NOT NULL,
		target_date TEXT,
		order_index INTEGER NOT NULL,
		is_completed BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (goal_id) REFERENCES goals(id) ON DELETE CASCADE
	);

	-- frequency is NULL on legacy rows that only carry period; the
	-- data-access layer and the opt-in migration normalize those.
	CREATE TABLE IF NOT EXISTS habit_plans (
		id TEXT PRIMARY KEY,
		goal_id TEXT NOT NULL UNIQUE,
		frequency TEXT CHECK (frequency IN ('daily', 'weekly', 'times_per_week')),
		times_per_week INTEGER CHECK (times_per_week BETWEEN 1 AND 7),
		period TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (goal_id) REFERENCES goals(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		goal_id TEXT,
		title TEXT NOT NULL,
		due_date TEXT,
		estimated_hours REAL,
		status TEXT NOT NULL DEFAULT 'todo' CHECK (status IN ('todo', 'in_progress', 'done', 'skipped')),
		importance INTEGER NOT NULL DEFAULT 3,
		is_generated BOOLEAN NOT NULL DEFAULT 0,
		completed_at DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY (goal_id) REFERENCES goals(id) ON DELETE SET NULL
	);

	CREATE TABLE IF NOT EXISTS long_terms (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'archived')),
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS cycles (
		id TEXT PRIMARY KEY,
		long_term_id TEXT NOT NULL,
		title TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		order_index INTEGER NOT NULL,
		FOREIGN KEY (long_term_id) REFERENCES long_terms(id) ON DELETE CASCADE,
		UNIQUE(long_term_id, order_index)
	);

	CREATE TABLE IF NOT EXISTS cycle_goals (
		id TEXT PRIMARY KEY,
		cycle_id TEXT NOT NULL,
		goal_id TEXT NOT NULL,
		expected_progress TEXT NOT NULL DEFAULT '',
		expected_hours INTEGER NOT NULL DEFAULT 5,
		FOREIGN KEY (cycle_id) REFERENCES cycles(id) ON DELETE CASCADE,
		FOREIGN KEY (goal_id) REFERENCES goals(id) ON DELETE CASCADE,
		UNIQUE(cycle_id, goal_id)
	);

	CREATE TABLE IF NOT EXISTS missions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		cycle_id TEXT,
		task_id TEXT,
		habit_plan_id TEXT,
		mission_date TEXT NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('highlight', 'habit', 'extra')),
		title TEXT NOT NULL DEFAULT '',
		is_highlight BOOLEAN NOT NULL DEFAULT 0,
		points INTEGER NOT NULL DEFAULT 0,
		is_completed BOOLEAN NOT NULL DEFAULT 0,
		completed_at DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY (cycle_id) REFERENCES cycles(id) ON DELETE SET NULL,
		FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE SET NULL,
		FOREIGN KEY (habit_plan_id) REFERENCES habit_plans(id) ON DELETE SET NULL
	);

	CREATE TABLE IF NOT EXISTS points_ledger (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		mission_id TEXT,
		points INTEGER NOT NULL,
		reason TEXT NOT NULL,
		occurred_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY (mission_id) REFERENCES missions(id) ON DELETE SET NULL
	);

	CREATE TABLE IF NOT EXISTS push_subscriptions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		endpoint TEXT NOT NULL,
		p256dh TEXT NOT NULL,
		auth TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(user_id, endpoint),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	-- Server-side refresh token store for rotating refresh tokens
	CREATE TABLE IF NOT EXISTS refresh_tokens (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		token_hash TEXT NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		ttl_days INTEGER NOT NULL DEFAULT 7,
		revoked BOOLEAN DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	-- At most one highlight per user per day.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_missions_one_highlight
		ON missions(user_id, mission_date) WHERE is_highlight = 1;

	-- The daily generator relies on this to stay idempotent.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_missions_habit_day
		ON missions(habit_plan_id, mission_date) WHERE habit_plan_id IS NOT NULL;

	CREATE INDEX IF NOT EXISTS idx_categories_user_id ON categories(user_id);
	CREATE INDEX IF NOT EXISTS idx_goals_user_id ON goals(user_id);
	CREATE INDEX IF NOT EXISTS idx_goals_category_id ON goals(category_id);
	CREATE INDEX IF NOT EXISTS idx_milestones_goal_id ON milestones(goal_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_user_id ON tasks(user_id);
	CREATE INDEX IF NOT EXISTS idx_missions_user_date ON missions(user_id, mission_date);
	CREATE INDEX IF NOT EXISTS idx_points_ledger_user_id ON points_ledger(user_id);
	CREATE INDEX IF NOT EXISTS idx_cycles_long_term_id ON cycles(long_term_id);
	CREATE INDEX IF NOT EXISTS idx_cycle_goals_cycle_id ON cycle_goals(cycle_id);
	CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user_id ON refresh_tokens(user_id);

	-- Total points are the ledger sum; 100 points per level.
	CREATE VIEW IF NOT EXISTS empire_levels AS
		SELECT user_id,
		       COALESCE(SUM(points), 0) AS total_points,
		       COALESCE(SUM(points), 0) / 100 + 1 AS level
		FROM points_ledger
		GROUP BY user_id;
	`

	_, err := db.Exec(schema)
	return err
}
