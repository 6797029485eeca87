//go:build !linux

package serial

// FindPortName is not supported on this OS.
func FindPortName(description string) (string, error) {
	return "", NoTracePortFound
}
