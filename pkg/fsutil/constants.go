package fsutil

// File and directory permission constants.
const (
	// Default file modes.
	FileModeDefault = 0o644 // -rw-r--r--: genome assets and sidecars
	FileModeSecure  = 0o640 // -rw-r-----: cache database
	FileModeExec    = 0o755 // -rwxr-xr-x

	// Directory modes.
	DirModeDefault = 0o755 // drwxr-xr-x: genome directories
	DirModeSecure  = 0o750 // drwxr-x---: cache and staging
)
