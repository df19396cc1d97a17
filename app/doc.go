// Package app runs the demandflow binary: it turns a Config into
// components, builds the configured source and sink once those components
// are up, and drives a single pipeline run through the bootstrap lifecycle.
//
// The pipeline section of the configuration is followed live. Changing
// pipeline.workers or pipeline.progress_interval in the config file while a
// run is in progress resizes the worker pool or retimes the progress log.
//
//	w, err := config.NewWatcher[app.Config](app.ServiceName)
//	w.Start()
//	defer w.Close()
//	report, err := app.Run(ctx, w)
//	os.Exit(app.ExitCode(report))
package app
