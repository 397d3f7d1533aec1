// Package httpserver runs an http.Handler for the lifetime of a context.
//
// Run listens on Config.Addr, Serve takes a ready listener. Both block until
// the context is done, then shut the server down gracefully, giving
// in-flight requests Config.ShutdownTimeout to finish:
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//
//	srv := httpserver.New(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//	    return err
//	}
//
// Startup failures wrap ErrStart and shutdown failures wrap ErrShutdown.
// Config is populated from HTTP_* environment variables via caarlos0/env.
package httpserver
