package actdist

import (
	"fmt"
	"sync/atomic"
)

var uniqueID uint64

// Unique appends an _ followed by a process-wide counter to name.
//
// Gorgonia hash-conses nodes, so two leaf nodes with the same name,
// type and shape are merged into one. Use Unique to name every leaf
// node and to tag every stateful op so that they stay distinct.
func Unique(name string) string {
	return fmt.Sprintf("%v_%v", name, atomic.AddUint64(&uniqueID, 1))
}

// nextID returns a fresh identifier for stateful ops
func nextID() uint64 {
	return atomic.AddUint64(&uniqueID, 1)
}
