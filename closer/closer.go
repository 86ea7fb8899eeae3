// Package closer keeps the error from a deferred Close from being lost.
package closer

import "io"

// ErrorHandler closes c, reporting its error through err unless err already
// holds an earlier failure. Use it with a named error return:
//
//	defer closer.ErrorHandler(f, &err)
func ErrorHandler(c io.Closer, err *error) {
	cerr := c.Close()
	if *err == nil {
		*err = cerr
	}
}
