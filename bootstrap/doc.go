// Package bootstrap runs the lifecycle shared by the relay and the CLI.
//
// NewApp validates a typed config and initializes logging. Run serves until
// SIGINT or SIGTERM; RunTask runs a finite task and cancels it on the same
// signals. Both start registered components in order, run hooks, and stop
// everything in reverse within the graceful timeout.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(r)
//	if err := app.Run(ctx); err != nil {
//	    os.Exit(1)
//	}
package bootstrap
