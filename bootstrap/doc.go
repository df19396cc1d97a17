// Package bootstrap runs a finite task inside the component lifecycle:
// components start in registration order, the OnStart hooks, configure
// callbacks and OnReady hooks run, the task executes, and everything is
// stopped in reverse on the way out.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(dbComponent)
//	err = app.RunTask(ctx, func(ctx context.Context) error {
//	    return run(ctx)
//	})
//
// SIGINT and SIGTERM cancel the task's context.
package bootstrap
