package database

import (
	"database/sql"
	"time"
)

const selectColumns = `
	SELECT id, timestamp, action, path, file_name, object_type,
	       model_set, model, dump_index, size, error_message
	FROM deletions
`

// GetRecentDeletions returns the N most recent deletion events
func (d *DeletionDB) GetRecentDeletions(limit int) ([]DeletionRecord, error) {
	query := selectColumns + `
	ORDER BY timestamp DESC, id DESC
	LIMIT ?
	`

	return d.queryDeletions(query, limit)
}

// GetDeletionsByModelSet returns the N most recent events for one model set
func (d *DeletionDB) GetDeletionsByModelSet(modelSet string, limit int) ([]DeletionRecord, error) {
	query := selectColumns + `
	WHERE model_set = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT ?
	`

	return d.queryDeletions(query, modelSet, limit)
}

// GetDeletionsByAction returns the N most recent events with the given action
func (d *DeletionDB) GetDeletionsByAction(action string, limit int) ([]DeletionRecord, error) {
	query := selectColumns + `
	WHERE action = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT ?
	`

	return d.queryDeletions(query, action, limit)
}

// GetDeletionsByKind returns the N most recent events for one object type
func (d *DeletionDB) GetDeletionsByKind(kind string, limit int) ([]DeletionRecord, error) {
	query := selectColumns + `
	WHERE object_type = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT ?
	`

	return d.queryDeletions(query, kind, limit)
}

// GetTotalSpaceFreed returns total bytes freed in a time range
func (d *DeletionDB) GetTotalSpaceFreed(start, end time.Time) (int64, error) {
	query := `
	SELECT COALESCE(SUM(size), 0)
	FROM deletions
	WHERE action = 'DELETE' AND timestamp BETWEEN ? AND ?
	`

	var total int64
	err := d.db.QueryRow(query, start.UTC(), end.UTC()).Scan(&total)
	return total, err
}

// GetDeletionCountByKind returns count of deletions grouped by object type
func (d *DeletionDB) GetDeletionCountByKind() (map[string]int, error) {
	return d.countBy(`
	SELECT object_type, COUNT(*)
	FROM deletions
	WHERE action = 'DELETE'
	GROUP BY object_type
	`)
}

// GetDeletionCountByAction returns count of operations grouped by action
func (d *DeletionDB) GetDeletionCountByAction() (map[string]int, error) {
	return d.countBy(`
	SELECT action, COUNT(*)
	FROM deletions
	GROUP BY action
	`)
}

// GetDeletionCountByModelSet returns count of deletions grouped by model set
func (d *DeletionDB) GetDeletionCountByModelSet() (map[string]int, error) {
	return d.countBy(`
	SELECT model_set, COUNT(*)
	FROM deletions
	WHERE action = 'DELETE'
	GROUP BY model_set
	`)
}

func (d *DeletionDB) countBy(query string) (map[string]int, error) {
	rows, err := d.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		counts[key] = count
	}

	return counts, rows.Err()
}

// DeletionStats holds aggregated statistics
type DeletionStats struct {
	TotalDeletions  int
	TotalErrors     int
	TotalSpaceFreed int64
	ByKind          map[string]int
	ByAction        map[string]int
	ByModelSet      map[string]int
	StartDate       time.Time
	EndDate         time.Time
}

// GetDeletionStats returns comprehensive statistics for a time period
func (d *DeletionDB) GetDeletionStats(days int) (*DeletionStats, error) {
	now := time.Now().UTC()
	since := now.AddDate(0, 0, -days)

	stats := &DeletionStats{
		StartDate: since,
		EndDate:   now,
	}

	err := d.db.QueryRow(`
		SELECT
			COUNT(CASE WHEN action = 'DELETE' THEN 1 END),
			COUNT(CASE WHEN action = 'ERROR' THEN 1 END)
		FROM deletions
		WHERE timestamp >= ?
	`, since).Scan(&stats.TotalDeletions, &stats.TotalErrors)
	if err != nil {
		return nil, err
	}

	stats.TotalSpaceFreed, err = d.GetTotalSpaceFreed(since, now)
	if err != nil {
		return nil, err
	}

	stats.ByKind, err = d.GetDeletionCountByKind()
	if err != nil {
		return nil, err
	}

	stats.ByAction, err = d.GetDeletionCountByAction()
	if err != nil {
		return nil, err
	}

	stats.ByModelSet, err = d.GetDeletionCountByModelSet()
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// DeleteOldRecords removes records older than specified days
func (d *DeletionDB) DeleteOldRecords(olderThanDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays)

	result, err := d.db.Exec(`
		DELETE FROM deletions WHERE timestamp < ?
	`, cutoff)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// queryDeletions is a helper function to execute queries and scan results
func (d *DeletionDB) queryDeletions(query string, args ...interface{}) ([]DeletionRecord, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []DeletionRecord
	for rows.Next() {
		var r DeletionRecord
		var fileName, model, errMsg sql.NullString
		var dumpIndex sql.NullInt64

		err := rows.Scan(
			&r.ID, &r.Timestamp, &r.Action, &r.Path, &fileName,
			&r.ObjectType, &r.ModelSet, &model, &dumpIndex,
			&r.Size, &errMsg,
		)
		if err != nil {
			return nil, err
		}

		r.FileName = fileName.String
		r.Model = model.String
		r.ErrorMessage = errMsg.String
		if dumpIndex.Valid {
			v := int(dumpIndex.Int64)
			r.DumpIndex = &v
		}

		records = append(records, r)
	}

	return records, rows.Err()
}
