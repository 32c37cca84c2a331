package utils

import "database/sql"

// MapScan scans the current row of rows into dest keyed by column name,
// converting []byte values to string.
func MapScan(rows *sql.Rows, dest map[string]any) error {
	columns, err := rows.Columns()
	if err != nil {
		return err
	}

	scanValues := make([]any, len(columns))
	for i := range scanValues {
		scanValues[i] = new(any)
	}

	if err := rows.Scan(scanValues...); err != nil {
		return err
	}

	for i, col := range columns {
		val := *(scanValues[i].(*any))
		if b, ok := val.([]byte); ok {
			dest[col] = string(b)
		} else {
			dest[col] = val
		}
	}

	return nil
}
