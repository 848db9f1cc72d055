// Package env keeps names of environment variables with special significance.
package env

// Environment variables of the host process with special significance. Note
// that these are distinct from the simulated environment frames inside the
// OS; they only affect the Go process itself.
const (
	HOME                  = "HOME"
	OOPIS_CONFIG          = "OOPIS_CONFIG"
	OOPIS_DATA_DIR        = "OOPIS_DATA_DIR"
	OOPIS_DB              = "OOPIS_DB"
	OOPIS_TEST_TIME_SCALE = "OOPIS_TEST_TIME_SCALE"
	XDG_CONFIG_HOME       = "XDG_CONFIG_HOME"
	XDG_DATA_HOME         = "XDG_DATA_HOME"
)
