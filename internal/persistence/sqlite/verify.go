// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Verify runs PRAGMA quick_check (mode "quick") or integrity_check (mode
// "full") on db and returns an error listing every reported problem.
func Verify(ctx context.Context, db *sql.DB, mode string) error {
	pragma := "PRAGMA quick_check"
	if mode == "full" {
		pragma = "PRAGMA integrity_check"
	}

	rows, err := db.QueryContext(ctx, pragma)
	if err != nil {
		return fmt.Errorf("sqlite: integrity pragma failed: %w", err)
	}
	defer rows.Close()

	var problems []string
	for rows.Next() {
		var res string
		if err := rows.Scan(&res); err != nil {
			return fmt.Errorf("sqlite: scan integrity row: %w", err)
		}
		if !strings.EqualFold(res, "ok") {
			problems = append(problems, res)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: integrity rows: %w", err)
	}
	if len(problems) > 0 {
		return fmt.Errorf("sqlite: integrity check failed: %s", strings.Join(problems, "; "))
	}
	return nil
}
