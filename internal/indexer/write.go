package indexer

import (
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"smorty/internal/apperr"
)

// insertRow writes one decoded log row with
// INSERT ... ON CONFLICT (transaction_hash, log_index) DO NOTHING
// (spec.md §4.5 step 3d), making reruns over an already-ingested range
// safe. Columns are sorted for deterministic, reviewable SQL text.
func insertRow(tx *gorm.DB, table string, row map[string]interface{}) error {
	cols := make([]string, 0, len(row))
	for c := range row {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	placeholders := make([]string, len(cols))
	args := make([]interface{}, len(cols))
	for i, c := range cols {
		placeholders[i] = "?"
		args[i] = row[c]
	}

	sql := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (transaction_hash, log_index) DO NOTHING",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "),
	)
	if err := tx.Exec(sql, args...).Error; err != nil {
		return apperr.Wrap(apperr.KindDb, "insert row into "+table, err)
	}
	return nil
}
