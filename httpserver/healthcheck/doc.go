/*
Package healthcheck serves the admin API: liveness and readiness checks for
everything registered with the system, plus the Go runtime's pprof profiles
under /debug/pprof.
*/
package healthcheck
