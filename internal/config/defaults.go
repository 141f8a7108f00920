package config

const (
	defaultRoot            = "~/.local/share/filevault"
	defaultLockWaitSeconds = 10
	defaultMaxUploadBytes  = 100 * 1024 * 1024
	defaultReaperInterval  = 300
	defaultTempTTLSeconds  = 3600
	defaultRotateMaxBytes  = 10 * 1024 * 1024
	defaultRetentionCount  = 5
	defaultRetentionDays   = 60
	defaultAPIBind         = "127.0.0.1:7607"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			Root: defaultRoot,
		},
		Database: Database{
			LockWaitSeconds: defaultLockWaitSeconds,
		},
		Ingest: Ingest{
			MaxUploadBytes: defaultMaxUploadBytes,
		},
		Reaper: Reaper{
			IntervalSeconds: defaultReaperInterval,
			TempTTLSeconds:  defaultTempTTLSeconds,
		},
		Logs: Logs{
			RotateMaxBytes: defaultRotateMaxBytes,
			RetentionCount: defaultRetentionCount,
			RetentionDays:  defaultRetentionDays,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
