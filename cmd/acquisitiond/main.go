package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"modbus-acquisition/internal/acquisition"
	"modbus-acquisition/internal/catalog"
	"modbus-acquisition/internal/config"
)

// connection is the JSON blob stored in tbl_data_sources.connection
type connection struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Configuration path from command arguments or default locations
	configPath := ""
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.WithError(err).Fatal("load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := catalog.NewStore(cfg.SystemDB.DSN())
	sources, err := store.DataSources(ctx)
	if err != nil {
		logger.WithError(err).Fatal("list data sources")
	}
	if len(sources) == 0 {
		logger.Fatal("no modbus-tcp data sources configured")
	}

	// One acquisition worker per data source; workers share nothing and
	// run until the process is signalled.
	g, ctx := errgroup.WithContext(ctx)
	started := 0
	for _, source := range sources {
		var conn connection
		if err := json.Unmarshal([]byte(source.Connection), &conn); err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"data_source_id": source.ID,
				"name":           source.Name,
			}).Error("invalid connection blob, skipping data source")
			continue
		}

		worker := acquisition.New(cfg, logger, source.ID, conn.Host, conn.Port)
		g.Go(func() error {
			worker.Run(ctx)
			return nil
		})
		started++

		logger.WithFields(logrus.Fields{
			"data_source_id": source.ID,
			"name":           source.Name,
			"host":           conn.Host,
			"port":           conn.Port,
		}).Info("acquisition worker started")
	}

	if started == 0 {
		logger.Fatal("no usable data sources")
	}

	logger.Infof("✅ acquisition service started with %d workers", started)
	g.Wait()
	logger.Info("acquisition service stopped")
}
