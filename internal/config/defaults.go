package config

const (
	defaultStateDir       = "~/.local/share/tidyup"
	defaultLogDir         = "~/.local/share/tidyup/logs"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultLayout         = LayoutCategory
	defaultOnCollision    = CollisionOverwrite
	defaultScanMaxFiles   = 1000
	defaultLargeFileBytes = 100 * 1024 * 1024
	defaultSMTPPort       = 587
	defaultSMTPTimeout    = 30
)

const (
	LayoutCategory  = "category"
	LayoutExtension = "extension"

	CollisionOverwrite = "overwrite"
	CollisionRename    = "rename"
)

// DefaultCategories returns the category map used when organize_map is
// absent from the configuration file.
func DefaultCategories() CategoryMap {
	return CategoryMap{
		{Name: "Images", Extensions: []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp", ".heic", ".svg"}},
		{Name: "Documents", Extensions: []string{".pdf", ".doc", ".docx", ".txt", ".md", ".odt", ".rtf", ".xls", ".xlsx", ".csv", ".ppt", ".pptx"}},
		{Name: "Videos", Extensions: []string{".mp4", ".mkv", ".mov", ".avi", ".webm", ".wmv"}},
		{Name: "Audio", Extensions: []string{".mp3", ".wav", ".flac", ".aac", ".ogg", ".m4a"}},
		{Name: "Archives", Extensions: []string{".zip", ".rar", ".7z", ".tar", ".gz", ".bz2", ".xz"}},
		{Name: "Programs", Extensions: []string{".exe", ".msi", ".apk", ".dmg", ".deb", ".rpm"}},
	}
}

// DefaultSuspiciousExtensions returns the scanner extension list used when
// suspicious_exts is absent.
func DefaultSuspiciousExtensions() []string {
	return []string{".exe", ".scr", ".bat", ".cmd", ".com", ".pif", ".vbs", ".js", ".jar", ".ps1", ".msi", ".hta"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		DoubleExtSuspicious: true,
		Organize: Organize{
			Recursive:   true,
			Layout:      defaultLayout,
			OnCollision: defaultOnCollision,
		},
		Scan: Scan{
			MaxFiles:       defaultScanMaxFiles,
			LargeFileBytes: defaultLargeFileBytes,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		SMTP: SMTP{
			Port:           defaultSMTPPort,
			TimeoutSeconds: defaultSMTPTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
