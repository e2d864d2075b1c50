package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// DefaultDataDir returns the default data directory for the host. Root on
// Unix gets /var/lib/logbook; everyone else gets a per-user location.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "logbook")
	}
	if runtime.GOOS != "windows" && os.Geteuid() == 0 && isDir("/var/lib") {
		return "/var/lib/logbook"
	}

	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		return "./data"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", "Logbook")
	case "windows":
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, "Logbook")
		}
		return filepath.Join(homeDir, "AppData", "Local", "Logbook")
	}
	return filepath.Join(homeDir, ".local", "share", "logbook")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
