// Package interpreters collects the scripting fallbacks.
package interpreters

import (
	"github.com/Comcast/fcurve/core"
	"github.com/Comcast/fcurve/interpreters/goja"
	"github.com/Comcast/fcurve/interpreters/noop"
)

// Standard returns a fresh map with every scripting fallback we
// have.
func Standard() core.InterpretersMap {
	is := core.NewInterpretersMap()

	js := goja.NewInterpreter()
	is["goja"] = js
	is["ecmascript"] = js
	is["javascript"] = js

	is["noop"] = noop.NewInterpreter()

	return is
}
