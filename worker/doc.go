/*
Package worker runs a background loop with observability and back-off when there is no work.

rfapi uses it for the system metrics loop, which publishes gauges on a fixed interval.
*/
package worker
