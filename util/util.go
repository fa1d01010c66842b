// Package util has logging switches shared by the evaluation
// packages.
package util

import (
	"log"
	"os"
)

// Logging is a clumsy switch that affects what Logf does.
//
// If Logging is true, then Logf writes to Logger.
var Logging = false

// Logger is where Logf and Warnf write.
var Logger = log.New(os.Stderr, "", log.LstdFlags)

// Logf writes to Logger if Logging is true.  Use it for the chatter
// that comes out of curve and driver evaluation, which can happen
// many times a frame.
func Logf(format string, args ...interface{}) {
	if !Logging {
		return
	}
	Logger.Printf(format, args...)
}

// Warnf always writes to Logger.  Use it for problems a user should
// hear about once, like loading a bad curve.
func Warnf(format string, args ...interface{}) {
	Logger.Printf("warning: "+format, args...)
}
