/*
 *  Copyright 2021 qitoi
 *
 *  Licensed under the Apache License, Version 2.0 (the "License");
 *  you may not use this file except in compliance with the License.
 *  You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 *  Unless required by applicable law or agreed to in writing, software
 *  distributed under the License is distributed on an "AS IS" BASIS,
 *  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *  See the License for the specific language governing permissions and
 *  limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/qitoi/archive-extractor/logger"
)

func fail(logger *zap.SugaredLogger, err error) {
	logger.Errorw(err.Error(), "error", err)
	logger.Sync()
	os.Exit(1)
}

type flags struct {
	configPath    string
	archive       string
	outputDir     string
	analyzeImages bool
	noExpand      bool
	sqlite        string
	metricsFile   string
	logLevel      string
	help          bool
}

func parseFlags(flagSet *pflag.FlagSet, args []string) (*flags, error) {
	f := &flags{}
	defaults := DefaultConfig()
	flagSet.StringVarP(&f.configPath, "config", "c", "./config.yaml", "config file")
	flagSet.StringVarP(&f.archive, "archive", "a", defaults.Input.Archive, "archive zip path")
	flagSet.StringVarP(&f.outputDir, "output-dir", "o", defaults.Output.Dir, "output directory")
	flagSet.BoolVarP(&f.analyzeImages, "analyze-images", "", false, "classify attached images")
	flagSet.BoolVarP(&f.noExpand, "no-expand", "", false, "keep shortened urls as found")
	flagSet.StringVarP(&f.sqlite, "sqlite", "", "", "also write rows to this SQLite database")
	flagSet.StringVarP(&f.metricsFile, "metrics-file", "", "", "write run counters in Prometheus textfile format")
	flagSet.StringVarP(&f.logLevel, "log-level", "", "", "log level (debug, info, warn, error)")
	flagSet.BoolVarP(&f.help, "help", "h", false, "help")
	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

// apply overrides config with the flags given on the command line.
func (f *flags) apply(flagSet *pflag.FlagSet, config *Config) error {
	if flagSet.Changed("archive") {
		config.Input.Archive = f.archive
	}
	if flagSet.Changed("output-dir") {
		config.Output.Dir = f.outputDir
	}
	if f.analyzeImages {
		config.Images.Enabled = true
	}
	if f.noExpand {
		config.Expand.Enabled = false
	}
	if flagSet.Changed("sqlite") {
		config.Output.SQLite = f.sqlite
	}
	if flagSet.Changed("metrics-file") {
		config.Output.MetricsFile = f.metricsFile
	}
	if flagSet.Changed("log-level") {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(f.logLevel)); err != nil {
			return err
		}
		l := LogLevel(level)
		config.Logger.Level = &l
	}
	return nil
}

func main() {
	flagSet := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	f, _ := parseFlags(flagSet, os.Args[1:])

	if f.help {
		flagSet.Usage()
		os.Exit(0)
	}

	bootstrap := logger.New(os.Stdout, os.Stderr, zapcore.InfoLevel).Sugar()

	if err := loadDotEnv(); err != nil {
		fail(bootstrap, err)
	}

	config, err := LoadConfig(f.configPath, flagSet.Changed("config"))
	if err != nil {
		bootstrap.Errorw("load config error", "error", err)
		os.Exit(1)
	}
	if err := f.apply(flagSet, config); err != nil {
		fail(bootstrap, err)
	}
	if err := CheckValidConfig(config); err != nil {
		fail(bootstrap, err)
	}

	log, err := getLogger(config)
	if err != nil {
		fail(bootstrap, err)
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Run(ctx, config, log.Sugar()); err != nil {
		fail(log.Sugar(), err)
	}
}

func loadDotEnv() error {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func getLogger(config *Config) (*logger.Logger, error) {
	var infoPath, errorPath string
	if config.Logger.Info != nil {
		infoPath = *config.Logger.Info
	}
	if config.Logger.Error != nil {
		errorPath = *config.Logger.Error
	}
	return logger.Open(infoPath, errorPath, config.Logger.level())
}
