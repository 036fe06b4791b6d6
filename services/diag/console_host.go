// services/diag/console_host.go
//go:build !rp2040 && !rp2350

package diag

import (
	"io"
	"os"
)

// Console is where the monitor writes on the host.
func Console() io.Writer { return os.Stdout }
