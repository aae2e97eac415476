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
	"path/filepath"

	"go.uber.org/zap"

	"github.com/qitoi/archive-extractor/classify"
	"github.com/qitoi/archive-extractor/expand"
	"github.com/qitoi/archive-extractor/output"
	"github.com/qitoi/archive-extractor/pipeline"
)

// Run processes the configured archive and writes the output files. Nothing
// is written when the archive cannot be processed.
func Run(ctx context.Context, config *Config, log *zap.SugaredLogger) error {
	opts, err := pipelineOptions(config, log)
	if err != nil {
		return err
	}

	log.Infow("processing archive", "archive", config.Input.Archive, "expand", config.Expand.Enabled, "analyze_images", config.Images.Enabled)

	res, err := pipeline.New(opts).RunArchive(ctx, config.Input.Archive)
	if err != nil {
		return err
	}

	for _, file := range outputFiles(config) {
		if err := output.WriteCSV(file.path, res.Rows, file.withImages); err != nil {
			return err
		}
		log.Infow("wrote csv", "path", file.path, "rows", len(res.Rows))
	}

	if config.Output.SQLite != "" {
		if err := output.WriteSQLite(ctx, config.Output.SQLite, res.Rows); err != nil {
			return err
		}
		log.Infow("wrote sqlite", "path", config.Output.SQLite, "rows", len(res.Rows))
	}

	res.Summary.SetRowsWritten(len(res.Rows))
	log.Infow("run summary", res.Summary.Fields()...)

	if config.Output.MetricsFile != "" {
		if err := res.Summary.WriteTextfile(config.Output.MetricsFile); err != nil {
			log.Warnw("write metrics file error", "path", config.Output.MetricsFile, "error", err)
		}
	}

	return nil
}

type outputFile struct {
	path       string
	withImages bool
}

// outputFiles lists the CSV files of a run: the plain file always, and the
// file with image columns when image analysis is enabled.
func outputFiles(config *Config) []outputFile {
	files := []outputFile{
		{path: filepath.Join(config.Output.Dir, output.FileName)},
	}
	if config.Images.Enabled {
		files = append(files, outputFile{
			path:       filepath.Join(config.Output.Dir, output.FileNameWithImages),
			withImages: true,
		})
	}
	return files
}

func pipelineOptions(config *Config, log *zap.SugaredLogger) (pipeline.Options, error) {
	opts := pipeline.Options{
		Concurrency: config.Expand.Concurrency,
		Logger:      log,
	}

	if config.Expand.Enabled {
		opts.Expander = expand.New(expand.Config{
			Timeout:   config.Expand.Timeout,
			Hosts:     config.Expand.Hosts,
			Rate:      config.Expand.Rate,
			Burst:     config.Expand.Burst,
			UserAgent: config.Expand.UserAgent,
		}, expand.NewCache(), log)
	}

	if config.Images.Enabled {
		switch config.Images.Backend {
		case BackendOpenAI:
			classifier, err := classify.NewOpenAI(classify.OpenAIConfig{
				BaseURL:    config.Images.BaseURL,
				APIKey:     config.Images.APIKey,
				Model:      config.Images.Model,
				Categories: config.Images.Categories,
				MaxDim:     config.Images.MaxDim,
				Timeout:    config.Images.Timeout,
			})
			if err != nil {
				return opts, err
			}
			opts.AnalyzeImages = true
			opts.Classifier = classifier
			opts.Fetcher = classify.NewFetcher(config.Images.Timeout, config.Images.MaxImageBytes)
		default:
			log.Warnw("image analysis enabled without a classifier backend, image columns stay empty", "backend", config.Images.Backend)
		}
	}

	return opts, nil
}
