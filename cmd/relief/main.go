// Command relief turns one image into printable relief layers without an MCP
// client.
//
//	relief -in art.png -width-mm 80 -height-mm 60 -format stl -out prints
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/ironsheep/relief-tools-mcp/internal/config"
	"github.com/ironsheep/relief-tools-mcp/internal/logger"
	"github.com/ironsheep/relief-tools-mcp/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

func run() error {
	flags := config.RegisterFlags(flag.CommandLine)
	in := flag.String("in", "", "Source image (PNG, JPEG or GIF)")
	saveConfig := flag.String("save-config", "", "Write the effective configuration to this file and exit")
	flag.Parse()

	cfg, err := config.Load(flags)
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if *saveConfig != "" {
		if err := cfg.SaveTo(*saveConfig); err != nil {
			return err
		}
		logger.Info("saved configuration", zap.String("path", *saveConfig))
		return nil
	}
	if *in == "" {
		flag.Usage()
		return errors.New("-in is required")
	}

	log := logger.Named("relief")
	opts := pipeline.OptionsFromConfig(cfg)
	opts.Logger = log
	opts.Observer = func(stage pipeline.Stage) {
		log.Debug("stage", zap.String("stage", string(stage)))
	}

	img, err := pipeline.Load(*in)
	if err != nil {
		return err
	}
	src, err := pipeline.Prepare(img, opts)
	if err != nil {
		return err
	}
	counts := src.Counts()
	log.Info("quantized",
		zap.Strings("palette", src.Palette.Hex()),
		zap.Ints("counts", counts[:]),
		zap.Int("cleanup_changed", src.CleanupChanged))

	settings := cfg.Settings()
	switch cfg.Export.Format {
	case config.FormatSTL:
		paths, err := src.WriteSTL(cfg.Export.OutputDir, settings)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Println(p)
		}
	case config.Format3MF:
		path := pipeline.ProjectPath(cfg.Export.OutputDir, *in)
		if err := src.Write3MF(path, settings); err != nil {
			return err
		}
		fmt.Println(path)
	}
	return nil
}
