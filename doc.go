// Package fcurve provides animation curve evaluation machinery.
//
// The core code is in package 'core': keyframes, Bezier and easing
// segments, handle computation, drivers and the expression cache.
// Modifiers, a scene, and a document loader live in their own
// packages.  Some command-line tools are in `cmd`.
package fcurve
