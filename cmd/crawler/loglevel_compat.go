//go:build !go1.22

package main

import "log/slog"

// slog.SetLogLoggerLevel is unavailable before Go 1.22; the log-package
// bridge stays at its default level on older toolchains.
func setLogLoggerLevel(level slog.Level) {
	_ = level
}
