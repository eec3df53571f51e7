package api

import (
	"database/sql"
	"fmt"
)

// columnExists checks if a column exists on a given table (SQLite PRAGMA table_info)
func columnExists(db *sql.DB, table string, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	var cid int
	var name string
	var ctype string
	var notnull int
	var dflt sql.NullString
	var pk int

	for rows.Next() {
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, nil
}

// MigrateLegacyHabitPlanPeriods rewrites habit plans that still use the old
// period column ('day'/'week') into the frequency form. It's idempotent:
// rows that already have a frequency are left alone.
func MigrateLegacyHabitPlanPeriods(db *sql.DB) error {
	exists, err := columnExists(db, "habit_plans", "period")
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"UPDATE habit_plans SET frequency = 'daily', period = NULL WHERE frequency IS NULL AND period = 'day'",
	); err != nil {
		return err
	}

	if _, err := tx.Exec(
		"UPDATE habit_plans SET frequency = 'weekly', period = NULL WHERE frequency IS NULL AND period = 'week'",
	); err != nil {
		return err
	}

	// Anything else unrecognized defaults to daily rather than staying unreadable.
	if _, err := tx.Exec(
		"UPDATE habit_plans SET frequency = 'daily', period = NULL WHERE frequency IS NULL AND period IS NOT NULL",
	); err != nil {
		return err
	}

	return tx.Commit()
}
