package config

// NewLoggerTo exposes newLogger to the external test package.
var NewLoggerTo = newLogger
