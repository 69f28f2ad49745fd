package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
)

// Object types a point may carry. Readings are batched and persisted by
// this type.
const (
	ObjectTypeAnalog  = "ANALOG_VALUE"
	ObjectTypeEnergy  = "ENERGY_VALUE"
	ObjectTypeDigital = "DIGITAL_VALUE"
)

// ErrNoPoints reports a data source with an empty point list
var ErrNoPoints = errors.New("catalog: point not found")

// Point is one measurement definition from the system database. The
// address blob stays raw here; it is decoded and validated per cycle.
type Point struct {
	ID         int64
	Name       string
	ObjectType string
	IsTrend    bool
	Ratio      sql.NullFloat64
	Address    string
}

// DataSource is one MODBUS/TCP endpoint row. Connection is the raw JSON
// blob carrying host and port.
type DataSource struct {
	ID         int64
	Name       string
	Connection string
}

// Store reads the system database. Every load opens and closes its own
// session, so an outer-loop restart always sees fresh rows.
type Store struct {
	open func() (*sql.DB, error)
}

// NewStore creates a store over the given MySQL DSN
func NewStore(dsn string) *Store {
	return &Store{
		open: func() (*sql.DB, error) {
			return sql.Open("mysql", dsn)
		},
	}
}

// Points returns the point list for one data source, ordered by id
func (s *Store) Points(ctx context.Context, dataSourceID int64) ([]Point, error) {
	db, err := s.open()
	if err != nil {
		return nil, fmt.Errorf("connect system database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("connect system database: %w", err)
	}

	rows, err := db.QueryContext(ctx,
		" SELECT id, name, object_type, is_trend, ratio, address "+
			" FROM tbl_points "+
			" WHERE data_source_id = ? "+
			" ORDER BY id ",
		dataSourceID)
	if err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}
	defer rows.Close()

	var points []Point
	for rows.Next() {
		var p Point
		var ratio interface{}
		if err := rows.Scan(&p.ID, &p.Name, &p.ObjectType, &p.IsTrend, &ratio, &p.Address); err != nil {
			return nil, fmt.Errorf("scan point row: %w", err)
		}
		p.Ratio = ratioOf(ratio)
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}
	if len(points) == 0 {
		return nil, ErrNoPoints
	}
	return points, nil
}

// ratioOf keeps the column's kind: a ratio is valid only when it really
// carries a real. NULL and integral-typed ratios leave the reading
// unscaled.
func ratioOf(raw interface{}) sql.NullFloat64 {
	switch r := raw.(type) {
	case float64:
		return sql.NullFloat64{Float64: r, Valid: true}
	case float32:
		return sql.NullFloat64{Float64: float64(r), Valid: true}
	case []byte:
		// DECIMAL columns arrive as text; a fraction or exponent marks
		// a real, a bare integer does not
		s := string(r)
		if !strings.ContainsAny(s, ".eE") {
			return sql.NullFloat64{}
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return sql.NullFloat64{Float64: f, Valid: true}
		}
	}
	return sql.NullFloat64{}
}

// DataSources returns every MODBUS/TCP data source row
func (s *Store) DataSources(ctx context.Context) ([]DataSource, error) {
	db, err := s.open()
	if err != nil {
		return nil, fmt.Errorf("connect system database: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx,
		" SELECT id, name, connection "+
			" FROM tbl_data_sources "+
			" WHERE protocol = 'modbus-tcp' "+
			" ORDER BY id ")
	if err != nil {
		return nil, fmt.Errorf("query data sources: %w", err)
	}
	defer rows.Close()

	var sources []DataSource
	for rows.Next() {
		var ds DataSource
		if err := rows.Scan(&ds.ID, &ds.Name, &ds.Connection); err != nil {
			return nil, fmt.Errorf("scan data source row: %w", err)
		}
		sources = append(sources, ds)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query data sources: %w", err)
	}
	return sources, nil
}
