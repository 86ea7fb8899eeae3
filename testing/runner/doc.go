/*
Package runner runs a service binary in an acceptance test. It scans the
service's o11y output for the ports its servers bound, then waits for the
admin API to report ready.

Stop sends the process an interrupt, so the service is expected to shut down
cleanly on SIGINT.
*/
package runner
