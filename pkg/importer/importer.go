// Package importer resolves symbolic "path:Name" references to values
// registered at init time.
//
// Go cannot import packages at runtime, so resolvable references work the
// way database/sql drivers do: a package registers its exported values from
// an init() function, and anything holding the symbolic string can look the
// value up later. Blank-import the providing package so its init() runs:
//
//	import _ "github.com/shashiranjanraj/vayu/pkg/protocols/httpone"
//
//	impl, err := importer.FromString("vayu/protocols/httpone:Server")
package importer

import (
	"fmt"
	"strings"
	"sync"
)

// Error reports a reference that could not be resolved.
type Error struct {
	Ref    string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("import string %q: %s", e.Ref, e.Reason)
}

var (
	mu       sync.RWMutex
	registry = map[string]any{}
)

// Register binds a symbolic reference to a value. Later registrations for
// the same reference win, which lets tests stub entries out.
func Register(ref string, value any) {
	mu.Lock()
	defer mu.Unlock()
	registry[ref] = value
}

// FromString resolves a symbolic reference to its registered value.
// The reference must be in "<path>:<attribute>" form.
func FromString(ref string) (any, error) {
	if !strings.Contains(ref, ":") {
		return nil, &Error{Ref: ref, Reason: `must be in format "<path>:<attribute>"`}
	}

	mu.RLock()
	value, ok := registry[ref]
	mu.RUnlock()

	if !ok {
		return nil, &Error{Ref: ref, Reason: "no such reference is registered (missing blank import?)"}
	}
	return value, nil
}
