// acndump decodes captured ACN root layer traffic and prints the PDUs as a table.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/database64128/acn-go/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	inPath   string
	mode     string
	hexInput bool
	zapConf  string
	logLevel zapcore.Level
)

func init() {
	flag.StringVar(&inPath, "in", "-", "Path to the captured input, or - for stdin")
	flag.StringVar(&mode, "mode", "udp", "Input framing.\nAvailable modes: udp (one datagram payload), tcp (stream of preamble-framed blocks), block (bare root layer block)")
	flag.BoolVar(&hexInput, "hex", false, "Decode the input as hex text")
	flag.StringVar(&zapConf, "zapConf", "console", "Preset name or path to JSON configuration file for building the zap logger.\nAvailable presets: console (default), console-nocolor, console-notime, systemd, production, development")
	flag.TextVar(&logLevel, "logLevel", zapcore.InfoLevel, "Log level for the console presets.\nAvailable levels: debug, info, warn, error, dpanic, panic, fatal")
}

func main() {
	flag.Parse()

	logger, err := logging.NewZapLogger(zapConf, logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	b, err := readInput(inPath)
	if err != nil {
		logger.Fatal("Failed to read input", zap.String("path", inPath), zap.Error(err))
	}

	if hexInput {
		if b, err = decodeHex(b); err != nil {
			logger.Fatal("Failed to decode hex input", zap.String("path", inPath), zap.Error(err))
		}
	}

	var rows []row
	switch mode {
	case "udp":
		rows, err = dumpUDP(b)
	case "tcp":
		rows, err = dumpTCP(b)
	case "block":
		rows, err = dumpBlock(nil, 0, 0, b)
	default:
		logger.Fatal("Unknown mode", zap.String("mode", mode))
	}

	for i := range rows {
		logger.Debug("Decoded root layer PDU",
			zap.Int("block", rows[i].block),
			zap.Int("offset", rows[i].offset),
			logging.Vector("vector", rows[i].p.Vector),
			logging.CID("senderCID", rows[i].p.SenderCID),
			zap.String("flags", flagString(rows[i].flags)),
		)
	}

	if len(rows) > 0 {
		renderTable(os.Stdout, rows)
	}

	if err != nil {
		logger.Error("Failed to decode input",
			zap.String("mode", mode),
			zap.Int("decodedPDUs", len(rows)),
			zap.Error(err),
		)
		logger.Sync()
		os.Exit(1)
	}

	logger.Info("Decoded input",
		zap.String("mode", mode),
		zap.Int("inputLength", len(b)),
		zap.Int("decodedPDUs", len(rows)),
	)
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
