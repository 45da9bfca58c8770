package reducer

import (
	"fmt"
	"strings"
)

// Named is implemented by actions that provide their own log label.
type Named interface {
	ActionName() string
}

// ActionName returns a short label for an action: its ActionName when it
// implements Named, otherwise its type name without the package path.
func ActionName(action any) string {
	if n, ok := action.(Named); ok {
		return n.ActionName()
	}
	name := fmt.Sprintf("%T", action)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimPrefix(name, "*")
}
