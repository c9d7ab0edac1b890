package config

import (
	"log/slog"
	"time"
)

//nolint:gochecknoglobals
var Defaults = Config{
	Debug: Debug{
		Listen: ":9001",
	},
	Log: Log{
		Format: "console",
		Level:  slog.LevelInfo,
	},
	HTTP: HTTP{
		Listen: ":8443",
		TLS:    false,
	},
	Session: Session{
		// A test server needs a working default, not a secret one.
		Secret:     "fake-fortinet-00",
		CookieName: "fake",
		Expires:    8 * time.Hour,
	},
}
