package historian

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	_ "github.com/go-sql-driver/mysql"

	"modbus-acquisition/internal/catalog"
	"modbus-acquisition/internal/modbus"
)

// timeLayout is the UTC instant format written to utc_date_time
const timeLayout = "2006-01-02T15:04:05"

// Row is one reading offered for persistence. Whether it is actually
// written depends on the trend flag and the kind's type gate.
type Row struct {
	PointID    int64
	ObjectType string
	IsTrend    bool
	Value      modbus.Value
}

// kindSpec describes one historical table and which values it accepts
type kindSpec struct {
	table      string
	objectType string
	accepts    func(modbus.Value) bool
}

// The analog and energy tables take reals, the digital table takes
// integrals. Readings failing the gate are dropped from persistence
// even though they were published.
var kinds = []kindSpec{
	{table: "tbl_analog_value", objectType: catalog.ObjectTypeAnalog,
		accepts: func(v modbus.Value) bool { return !v.IsIntegral() }},
	{table: "tbl_energy_value", objectType: catalog.ObjectTypeEnergy,
		accepts: func(v modbus.Value) bool { return !v.IsIntegral() }},
	{table: "tbl_digital_value", objectType: catalog.ObjectTypeDigital,
		accepts: func(v modbus.Value) bool { return v.IsIntegral() }},
}

// Writer holds one connection to the historical database for the life
// of a sampling loop
type Writer struct {
	open func() (*sql.DB, error)
	db   *sql.DB
	log  *logrus.Entry
}

// NewWriter creates a writer over the given MySQL DSN
func NewWriter(dsn string, log *logrus.Entry) *Writer {
	return &Writer{
		open: func() (*sql.DB, error) {
			return sql.Open("mysql", dsn)
		},
		log: log,
	}
}

// Connect establishes the connection
func (w *Writer) Connect() error {
	db, err := w.open()
	if err != nil {
		return fmt.Errorf("connect historical database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("connect historical database: %w", err)
	}
	w.db = db
	return nil
}

// EnsureAlive probes connection liveness before a flush and reconnects
// once if the connection died between cycles
func (w *Writer) EnsureAlive(ctx context.Context) error {
	if w.db != nil {
		if err := w.db.PingContext(ctx); err == nil {
			return nil
		}
		w.db.Close()
		w.db = nil
	}
	return w.Connect()
}

// Flush bulk-inserts the cycle's trend readings, one statement per
// kind, all sharing the instant captured by the caller. Each insert
// commits independently; a failed kind is logged and the others still
// attempt.
func (w *Writer) Flush(ctx context.Context, at time.Time, rows []Row) {
	stamp := at.UTC().Format(timeLayout)

	for _, kind := range kinds {
		var args []interface{}
		count := 0
		for _, r := range rows {
			if r.ObjectType != kind.objectType {
				continue
			}
			if !r.IsTrend || !kind.accepts(r.Value) {
				continue
			}
			args = append(args, r.PointID, stamp, r.Value.Native())
			count++
		}
		if count == 0 {
			continue
		}

		stmt := fmt.Sprintf("INSERT INTO %s (point_id, utc_date_time, actual_value) VALUES %s",
			kind.table, strings.TrimSuffix(strings.Repeat("(?, ?, ?), ", count), ", "))
		if _, err := w.db.ExecContext(ctx, stmt, args...); err != nil {
			w.log.WithError(err).WithField("table", kind.table).Error("bulk insert failed")
		}
	}
}

// Close releases the connection
func (w *Writer) Close() error {
	if w.db == nil {
		return nil
	}
	err := w.db.Close()
	w.db = nil
	return err
}
