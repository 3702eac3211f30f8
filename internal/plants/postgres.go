package plants

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"
)

const selectPlants = `SELECT id, name, personality, scientific_name, actual_sensor, ideal_min_sensor, ideal_max_sensor
FROM plants ORDER BY id`

// PostgresSource reads plants from the plants table.
type PostgresSource struct {
	DB *sql.DB
}

// OpenPostgres connects to dsn and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresSource, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &PostgresSource{DB: db}, nil
}

// Load selects every plant ordered by id.
func (s *PostgresSource) Load(ctx context.Context) ([]Plant, error) {
	rows, err := s.DB.QueryContext(ctx, selectPlants)
	if err != nil {
		return nil, fmt.Errorf("query plants: %w", err)
	}
	defer rows.Close()

	var list []Plant
	for rows.Next() {
		var (
			p              Plant
			actual, lo, hi []byte
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Personality, &p.ScientificName, &actual, &lo, &hi); err != nil {
			return nil, fmt.Errorf("scan plant: %w", err)
		}
		for _, col := range []struct {
			raw []byte
			dst *Sensor
		}{{actual, &p.Actual}, {lo, &p.IdealMin}, {hi, &p.IdealMax}} {
			if err := json.Unmarshal(col.raw, col.dst); err != nil {
				return nil, fmt.Errorf("decode sensors of %s: %w", p.Name, err)
			}
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Insert upserts a plant by name.
func (s *PostgresSource) Insert(ctx context.Context, p Plant) error {
	var cols [3][]byte
	for i, sensor := range []Sensor{p.Actual, p.IdealMin, p.IdealMax} {
		raw, err := json.Marshal(sensor)
		if err != nil {
			return fmt.Errorf("encode sensors of %s: %w", p.Name, err)
		}
		cols[i] = raw
	}
	actual, lo, hi := cols[0], cols[1], cols[2]
	_, err := s.DB.ExecContext(ctx, `INSERT INTO plants (name, personality, scientific_name, actual_sensor, ideal_min_sensor, ideal_max_sensor)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (name) DO UPDATE SET personality = EXCLUDED.personality, scientific_name = EXCLUDED.scientific_name,
  actual_sensor = EXCLUDED.actual_sensor, ideal_min_sensor = EXCLUDED.ideal_min_sensor, ideal_max_sensor = EXCLUDED.ideal_max_sensor`,
		p.Name, p.Personality, p.ScientificName, actual, lo, hi)
	if err != nil {
		return fmt.Errorf("insert plant %s: %w", p.Name, err)
	}
	return nil
}

// Close closes the database.
func (s *PostgresSource) Close() error { return s.DB.Close() }
