// Package shutdown coordinates process signals for boardmesh-server.
//
// SIGINT and SIGTERM run the registered shutdown hooks, newest first,
// under one shared timeout. SIGHUP runs the reload hooks and keeps the
// process alive. Trigger starts a shutdown from inside the process, for
// example when the listener fails.
//
//	h := shutdown.NewHandler(10*time.Second, logger)
//	h.OnShutdown("storage", store.Close)
//	h.OnShutdown("http", srv.Shutdown)
//	err := h.Wait(ctx)
package shutdown
