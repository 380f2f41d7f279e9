// Package plugins links the built-in module implementations into the binary.
// Each imported package registers its factories in init.
package plugins

import (
	_ "github.com/kilianp07/microclaw/infra/metrics"
	_ "github.com/kilianp07/microclaw/infra/transducer"
)
