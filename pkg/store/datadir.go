package store

import (
	"os"
	"path/filepath"
	"runtime"
)

// DefaultDataDir returns $TASKCHAIN_DIR if set, otherwise the
// OS-appropriate default data directory for taskchain.
//
//   - macOS:   ~/Library/Application Support/taskchain
//   - Linux:   $XDG_DATA_HOME/taskchain (fallback ~/.local/share/taskchain)
//   - Windows: %LOCALAPPDATA%\taskchain (fallback %APPDATA%\taskchain)
func DefaultDataDir() string {
	if dir := os.Getenv("TASKCHAIN_DIR"); dir != "" {
		return dir
	}
	return defaultDataDirForOS(runtime.GOOS)
}

func defaultDataDirForOS(goos string) string {
	home, _ := os.UserHomeDir()

	switch goos {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "taskchain")
	case "windows":
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return filepath.Join(dir, "taskchain")
		}
		if dir := os.Getenv("APPDATA"); dir != "" {
			return filepath.Join(dir, "taskchain")
		}
		return filepath.Join(home, "taskchain")
	default: // linux, freebsd, etc.
		if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
			return filepath.Join(dir, "taskchain")
		}
		return filepath.Join(home, ".local", "share", "taskchain")
	}
}
