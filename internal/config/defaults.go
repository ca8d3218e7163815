package config

// DefaultGracePeriodMs is the default SIGTERM grace period in milliseconds.
const DefaultGracePeriodMs = 2000

// DefaultPollIntervalMs is the default liveness poll interval in milliseconds.
const DefaultPollIntervalMs = 50

// DefaultStatusAddr is the suggested listen address for the status feed.
const DefaultStatusAddr = "127.0.0.1:7071"
