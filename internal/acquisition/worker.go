package acquisition

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"modbus-acquisition/internal/catalog"
	"modbus-acquisition/internal/config"
	"modbus-acquisition/internal/historian"
	"modbus-acquisition/internal/modbus"
	"modbus-acquisition/internal/mqtt"
)

// Default recovery timing. The long cooldown follows an unreachable
// endpoint; the short one follows every other recoverable fault.
const (
	defaultProbeTimeout     = 10 * time.Second
	defaultUnreachableDelay = 300 * time.Second
	defaultRecoverDelay     = 60 * time.Second
)

// PointSession issues one request per valid point against the slave
type PointSession interface {
	Read(addr modbus.Address) (modbus.Value, error)
	Close() error
}

// Publisher pushes readings to real-time consumers
type Publisher interface {
	Connect()
	Connected() bool
	Publish(pointID int64, value modbus.Value)
	Close()
}

// TrendWriter persists trend readings to the historical database
type TrendWriter interface {
	Connect() error
	EnsureAlive(ctx context.Context) error
	Flush(ctx context.Context, at time.Time, rows []historian.Row)
	Close() error
}

// PointLister loads the point catalog for a data source
type PointLister interface {
	Points(ctx context.Context, dataSourceID int64) ([]catalog.Point, error)
}

// Worker is the acquisition state machine for one data source. It runs
// forever; every fault is either recovered in place or answered with a
// scoped restart of the sampling or outer loop.
type Worker struct {
	log          *logrus.Entry
	dataSourceID int64
	host         string
	port         int

	catalog      PointLister
	probe        ProbeFunc
	newSession   func() PointSession
	newPublisher func() Publisher
	newWriter    func() TrendWriter

	cyclePeriod      time.Duration
	probeTimeout     time.Duration
	unreachableDelay time.Duration
	recoverDelay     time.Duration
}

// New creates a worker pinned to one MODBUS/TCP endpoint
func New(cfg *config.Config, logger *logrus.Logger, dataSourceID int64, host string, port int) *Worker {
	log := logger.WithFields(logrus.Fields{
		"data_source_id": dataSourceID,
		"host":           host,
		"port":           port,
	})

	return &Worker{
		log:          log,
		dataSourceID: dataSourceID,
		host:         host,
		port:         port,

		catalog: catalog.NewStore(cfg.SystemDB.DSN()),
		probe:   Probe,
		newSession: func() PointSession {
			return modbus.NewSession(host, port)
		},
		newPublisher: func() Publisher {
			return mqtt.NewPublisher(&cfg.MQTTBroker, dataSourceID, log)
		},
		newWriter: func() TrendWriter {
			return historian.NewWriter(cfg.HistoricalDB.DSN(), log)
		},

		cyclePeriod:      time.Duration(cfg.Periods.SaveToDatabase) * time.Second,
		probeTimeout:     defaultProbeTimeout,
		unreachableDelay: defaultUnreachableDelay,
		recoverDelay:     defaultRecoverDelay,
	}
}

// Run executes the outer supervision loop until the context is
// cancelled. Errors never propagate out.
func (w *Worker) Run(ctx context.Context) {
	for ctx.Err() == nil {
		// Step 1: probe endpoint reachability
		if err := w.probe(w.host, w.port, w.probeTimeout); err != nil {
			w.log.WithError(err).Error("data source unreachable")
			if !w.wait(ctx, w.unreachableDelay) {
				return
			}
			continue
		}

		// Step 2: load the point catalog. The list is frozen until the
		// next outer restart.
		points, err := w.catalog.Points(ctx, w.dataSourceID)
		if err != nil {
			if errors.Is(err, catalog.ErrNoPoints) {
				w.log.Error("Point Not Found")
			} else {
				w.log.WithError(err).Error("load point catalog")
			}
			if !w.wait(ctx, w.recoverDelay) {
				return
			}
			continue
		}

		// Step 3: build the sampling-loop transports. The historical
		// connection comes first; without it there is no reason to
		// open the others.
		writer := w.newWriter()
		if err := writer.Connect(); err != nil {
			w.log.WithError(err).Error("connect historical database")
			writer.Close()
			if !w.wait(ctx, w.recoverDelay) {
				return
			}
			continue
		}

		publisher := w.newPublisher()
		publisher.Connect()

		session := w.newSession()

		w.sample(ctx, points, session, publisher, writer)
	}
}

// sample is the inner loop: one iteration covers every point once, then
// publishes and persists the cycle's readings. It returns when a MODBUS
// timeout demands a transport rebuild or the context ends; the
// transports are released on every exit path.
func (w *Worker) sample(ctx context.Context, points []catalog.Point, session PointSession, publisher Publisher, writer TrendWriter) {
	var once sync.Once
	teardown := func() {
		once.Do(func() {
			session.Close()
			publisher.Close()
			writer.Close()
		})
	}
	defer teardown()

	for ctx.Err() == nil {
		batches, timedOut := w.collect(points, session)

		if timedOut {
			// The slave stopped answering: rebuild everything from the
			// reachability probe after a cooldown.
			teardown()
			w.wait(ctx, w.recoverDelay)
			return
		}

		if publisher.Connected() {
			for _, r := range batches.all() {
				publisher.Publish(r.PointID, r.Value)
			}
		}

		if err := writer.EnsureAlive(ctx); err != nil {
			w.log.WithError(err).Error("reconnect historical database")
			if !w.wait(ctx, w.recoverDelay) {
				return
			}
			continue
		}
		writer.Flush(ctx, time.Now().UTC(), batches.rows())

		if !w.wait(ctx, w.cyclePeriod) {
			return
		}
	}
}

// collect runs one pass over the frozen point list. The second return
// is true when a request timed out, which aborts the pass.
func (w *Worker) collect(points []catalog.Point, session PointSession) (cycleBatches, bool) {
	var batches cycleBatches

	for _, point := range points {
		plog := w.log.WithField("point_id", point.ID)

		addr, err := modbus.ParseAddress(point.Address)
		if err != nil {
			plog.WithError(err).Error("invalid point address")
			continue
		}

		value, err := session.Read(addr)
		if err != nil {
			plog.WithError(err).WithFields(logrus.Fields{
				"slave_id":         addr.SlaveID,
				"function_code":    addr.FunctionCode,
				"starting_address": addr.Offset,
				"quantity_of_x":    addr.NumberOfRegisters,
				"data_format":      addr.Format,
			}).Error("read point value")
			if errors.Is(err, modbus.ErrTimeout) {
				return batches, true
			}
			continue
		}

		if !value.Finite() {
			plog.Error("read point value: not a number")
			continue
		}

		if point.Ratio.Valid {
			value = value.Scale(point.Ratio.Float64)
		}

		batches.add(Reading{
			DataSourceID: w.dataSourceID,
			PointID:      point.ID,
			IsTrend:      point.IsTrend,
			ObjectType:   point.ObjectType,
			Value:        value,
		})
	}

	return batches, false
}

// wait sleeps for d or until the context ends; false means cancelled
func (w *Worker) wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
