//go:build cgo

package remote

// The libSQL driver is cgo-based; register it only when cgo is enabled.
import (
	_ "github.com/tursodatabase/go-libsql"
)
