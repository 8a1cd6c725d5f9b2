package mssql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ekaya-inc/plantsync/pkg/apperrors"
)

// maxParams stays under SQL Server's limit of 2100 parameters per request.
const maxParams = 2000

// Unique constraint and unique index violations.
const (
	errUniqueConstraint = 2627
	errUniqueIndex      = 2601
)

// quoteName quotes an identifier the way QUOTENAME does: [name] with ] doubled.
func quoteName(identifier string) string {
	escaped := strings.ReplaceAll(identifier, "]", "]]")
	return fmt.Sprintf("[%s]", escaped)
}

// buildFullyQualifiedName builds a fully qualified table name: [schema].[table]
func buildFullyQualifiedName(schema, table string) string {
	return fmt.Sprintf("%s.%s", quoteName(schema), quoteName(table))
}

// rowsPerChunk is how many rows of width cols fit in one statement.
func rowsPerChunk(cols int) int {
	if cols <= 0 {
		return 0
	}
	return maxParams / cols
}

// chunks calls fn with consecutive [start, end) ranges covering n rows.
func chunks(n, size int, fn func(start, end int) error) error {
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		if err := fn(start, end); err != nil {
			return err
		}
	}
	return nil
}

// valuesList returns "(@p1, @p2), (@p3, @p4)" for rows x cols parameters.
// Each column may carry a cast, e.g. "CAST(%s AS DATETIME2)".
func valuesList(rows int, casts []string) string {
	var b strings.Builder
	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c, cast := range casts {
			if c > 0 {
				b.WriteString(", ")
			}
			param := fmt.Sprintf("@p%d", n)
			if cast != "" {
				param = fmt.Sprintf(cast, param)
			}
			b.WriteString(param)
			n++
		}
		b.WriteByte(')')
	}
	return b.String()
}

// buildInsert builds a multi-row INSERT for rows rows. When output is non-empty
// the inserted values of those columns are returned as a result set.
func buildInsert(table string, cols, output []string, rows int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s)", table, strings.Join(cols, ", "))
	if len(output) > 0 {
		prefixed := make([]string, len(output))
		for i, col := range output {
			prefixed[i] = "inserted." + col
		}
		fmt.Fprintf(&b, " OUTPUT %s", strings.Join(prefixed, ", "))
	}
	b.WriteString(" VALUES ")
	b.WriteString(valuesList(rows, make([]string, len(cols))))
	return b.String()
}

// buildWateringUpdate builds the set-based last_watering update for rows rows.
// A row is only touched when the new value is later than the stored one.
func buildWateringUpdate(table string, rows int) string {
	return fmt.Sprintf(`UPDATE p SET p.last_watering = v.last_watering
FROM %s AS p
JOIN (VALUES %s) AS v (plant_id, last_watering) ON p.plant_id = v.plant_id
WHERE p.last_watering IS NULL OR p.last_watering < v.last_watering`,
		table, valuesList(rows, []string{"", "CAST(%s AS DATETIME2)"}))
}

type sqlNumberError interface {
	SQLErrorNumber() int32
}

// wrapWriteError marks unique violations as conflicts: a concurrent run
// created the same natural key after this run's snapshot was read.
func wrapWriteError(op string, err error) error {
	var numbered sqlNumberError
	if errors.As(err, &numbered) {
		switch numbered.SQLErrorNumber() {
		case errUniqueConstraint, errUniqueIndex:
			return fmt.Errorf("%s: %w: %w", op, apperrors.ErrConflict, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
