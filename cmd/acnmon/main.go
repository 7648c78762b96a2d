// acnmon receives, logs, and sends ACN root layer traffic as configured in a JSON file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/database64128/acn-go/internal/acnprot"
	"github.com/database64128/acn-go/jsonhelper"
	"github.com/database64128/acn-go/service"
	"github.com/database64128/acn-go/tslog"
)

var (
	testConf   bool
	confPath   string
	genConf    string
	logNoColor bool
	logNoTime  bool
	logText    bool
	logJSON    bool
	logLevel   slog.Level
)

func init() {
	flag.BoolVar(&testConf, "testConf", false, "Test the configuration file without starting the services")
	flag.StringVar(&confPath, "confPath", "", "Path to JSON configuration file")
	flag.StringVar(&genConf, "genConf", "", "Write an example configuration to the given path and exit")
	flag.BoolVar(&logNoColor, "logNoColor", false, "Disable colors in log output")
	flag.BoolVar(&logNoTime, "logNoTime", false, "Disable timestamps in log output")
	flag.BoolVar(&logText, "logText", false, "Use slog's text handler for log output")
	flag.BoolVar(&logJSON, "logJSON", false, "Use slog's JSON handler for log output")
	flag.TextVar(&logLevel, "logLevel", slog.LevelInfo, "Log level, one of: DEBUG, INFO, WARN, ERROR")
}

func main() {
	flag.Parse()

	logCfg := tslog.Config{
		Level:          logLevel,
		NoColor:        logNoColor,
		NoTime:         logNoTime,
		UseTextHandler: logText,
		UseJSONHandler: logJSON,
	}
	logger := logCfg.NewLogger(os.Stderr)

	if genConf != "" {
		if err := jsonhelper.CreateAndEncode(genConf, exampleConfig()); err != nil {
			logger.Error("Failed to write example config", slog.String("path", genConf), tslog.Err(err))
			os.Exit(1)
		}
		logger.Info("Wrote example config", slog.String("path", genConf))
		return
	}

	if confPath == "" {
		fmt.Println("Missing -confPath <path>.")
		flag.Usage()
		os.Exit(1)
	}

	var sc service.Config
	if err := jsonhelper.OpenAndDecodeDisallowUnknownFields(confPath, &sc); err != nil {
		logger.Error("Failed to load config", slog.String("confPath", confPath), tslog.Err(err))
		os.Exit(1)
	}

	m, err := sc.Manager(logger, nil)
	if err != nil {
		logger.Error("Failed to create service manager", slog.String("confPath", confPath), tslog.Err(err))
		os.Exit(1)
	}

	if testConf {
		logger.Info("Config test OK", slog.String("confPath", confPath))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = m.Start(ctx); err != nil {
		logger.Error("Failed to start services", slog.String("confPath", confPath), tslog.Err(err))
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Received exit signal")
	m.Stop()
}

func exampleConfig() *service.Config {
	return &service.Config{
		Receivers: []service.ReceiverConfig{
			{
				Name:      "sacn",
				Universes: []uint16{1, 2},
			},
			{
				Name:          "unicast",
				ListenAddress: "127.0.0.1:15568",
			},
		},
		Streams: []service.StreamConfig{
			{
				Name: "rdmnet",
			},
		},
		Senders: []service.SenderConfig{
			{
				Name:     "heartbeat",
				Universe: 1,
				PDUs: []service.SenderPDUConfig{
					{Vector: acnprot.ProtocolE131Data, Data: []byte{0x00}},
				},
			},
		},
	}
}
