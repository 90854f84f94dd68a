package gateway

import "fmt"

// ExternalToolError reports a failed invocation of an external command such
// as gh or git: the binary was missing, it exited non-zero, or it printed
// something unusable. Stderr carries whatever the command said about it,
// which is usually the actionable part.
type ExternalToolError struct {
	Tool   string
	Err    error
	Stderr string
}

func (e *ExternalToolError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %v: %s", e.Tool, e.Err, e.Stderr)
	}
	return fmt.Sprintf("%s: %v", e.Tool, e.Err)
}

func (e *ExternalToolError) Unwrap() error {
	return e.Err
}
