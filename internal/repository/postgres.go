package repository

import (
	"context"
	"fmt"
)

// FetchBranches reads every branch row in the flat record shape used by remote payloads
// (id, name, address, city, workingHours, lat, lon). NULL columns are left out of the record,
// so rows without coordinates are later dropped by the normalizer like any other incomplete item.
func (r *Repository) FetchBranches(ctx context.Context) ([]map[string]any, error) {
	query, args, err := r.builder.
		Select("id", "name", "address", "city", "working_hours", "lat", "lon").
		From("branches").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build branches query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query branches: %w", err)
	}
	defer rows.Close()

	var branches []map[string]any
	for rows.Next() {
		var (
			id, name             string
			address, city, hours *string
			lat, lon             *float64
		)
		if errScan := rows.Scan(&id, &name, &address, &city, &hours, &lat, &lon); errScan != nil {
			return nil, fmt.Errorf("failed to scan branch: %w", errScan)
		}

		record := map[string]any{"id": id, "name": name}
		setIfPresent(record, "address", address)
		setIfPresent(record, "city", city)
		setIfPresent(record, "workingHours", hours)
		setIfPresent(record, "lat", lat)
		setIfPresent(record, "lon", lon)
		branches = append(branches, record)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read row: %w", err)
	}

	r.log.DebugContext(ctx, "Branches loaded from database", "rows", len(branches))

	return branches, nil
}

// FetchATMs reads every ATM row in the flat record shape (id, label, lat, lon).
func (r *Repository) FetchATMs(ctx context.Context) ([]map[string]any, error) {
	query, args, err := r.builder.
		Select("id", "label", "lat", "lon").
		From("atms").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build atms query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query atms: %w", err)
	}
	defer rows.Close()

	var atms []map[string]any
	for rows.Next() {
		var (
			id       string
			label    *string
			lat, lon *float64
		)
		if errScan := rows.Scan(&id, &label, &lat, &lon); errScan != nil {
			return nil, fmt.Errorf("failed to scan atm: %w", errScan)
		}

		record := map[string]any{"id": id}
		setIfPresent(record, "label", label)
		setIfPresent(record, "lat", lat)
		setIfPresent(record, "lon", lon)
		atms = append(atms, record)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read row: %w", err)
	}

	r.log.DebugContext(ctx, "ATMs loaded from database", "rows", len(atms))

	return atms, nil
}

func setIfPresent[T any](record map[string]any, key string, value *T) {
	if value != nil {
		record[key] = *value
	}
}
