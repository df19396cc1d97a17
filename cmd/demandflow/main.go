// Command demandflow computes product demand from analytics records.
//
// Usage:
//
//	demandflow [--config path/to/config.yml]
//
// Without --config the file is searched for in ./cmd/demandflow/,
// ./config/ and the working directory. Environment variables override file
// values (e.g. PIPELINE_WORKERS=8). Edits to the pipeline section of the
// file take effect while a run is in progress.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/kbukum/demandflow/app"
	"github.com/kbukum/demandflow/config"
	"github.com/kbukum/demandflow/logger"
	"github.com/kbukum/demandflow/version"
)

func main() {
	configFile := pflag.StringP("config", "c", "", "path to the config file")
	showVersion := pflag.BoolP("version", "v", false, "print version and exit")
	pflag.Parse()

	if *showVersion {
		info := version.GetVersionInfo()
		fmt.Println(info.String())
		return
	}

	var opts []config.LoaderOption
	if *configFile != "" {
		opts = append(opts, config.WithConfigFile(*configFile))
	}

	w, err := config.NewWatcher[app.Config](app.ServiceName, opts...)
	if err != nil {
		logger.Fatal("failed to load config", logger.MergeWithError(nil, err))
	}
	w.Start()

	report, err := app.Run(context.Background(), w)
	w.Close()
	if err != nil {
		logger.Error("run failed", logger.MergeWithError(logger.Fields(logger.FieldRunID, report.RunID), err))
	}
	os.Exit(app.ExitCode(report))
}
