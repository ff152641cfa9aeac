package constants

// ConflictType represents the type of validation conflict
type ConflictType string

const (
	AppName            = "w2m"
	DefaultKeyringUser = "database-connection"
	DefaultConfigDir   = "~/.config/w2m"
	DefaultConfigPath  = "~/.config/w2m/w2m.db"
	Version            = "v0.3.0"

	// EnvPrefix is the prefix for environment overrides (W2M_DATABASE, W2M_DEBUG, ...)
	EnvPrefix = "W2M"
	// EnvDBConnection holds a PostgreSQL connection string kept out of config files
	EnvDBConnection = "W2M_DB_CONNECTION"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "w2m-"
	BackupFileSuffix = ".db"

	// LockFileSuffix names the edit lock placed next to the database
	LockFileSuffix = ".lock"

	// Settings keys
	SettingAxisStart = "axis_start"
	SettingAxisEnd   = "axis_end"

	// Conflict Types
	ConflictInvalidDay           ConflictType = "invalid_day"
	ConflictDegenerateInterval   ConflictType = "degenerate_interval"
	ConflictOverlappingIntervals ConflictType = "overlapping_intervals"
	ConflictOutsideAxis          ConflictType = "outside_axis"
	ConflictDuplicateParticipant ConflictType = "duplicate_participant_name"
)
