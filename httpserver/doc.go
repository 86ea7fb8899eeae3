/*
Package httpserver runs the HTTP servers of the service with graceful shutdown.

The listener is wrapped so that connection counts are reported as gauges by the
system metrics loop.
*/
package httpserver
