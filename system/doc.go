/*
Package system manages the startup, running, metrics and shutdown of the service.

The API server, the admin server and the metrics loop all run in one errgroup.
A termination signal, or any of them failing, stops the rest. On SIGTERM the
system waits for a short delay before shutting down so that in flight and
newly routed requests are not dropped.

See cmd/rfapi for the canonical usage.
*/
package system
