package core

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName is used in data directory paths.
const AppName = "go_enhance"

// GetDataDirectory returns the per-user state directory:
// %APPDATA%\go_enhance on Windows and ~/.go_enhance elsewhere. It does not
// create the directory.
func GetDataDirectory() string {
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, AppName)
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + AppName
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(home, "AppData", "Roaming", AppName)
	}
	return filepath.Join(home, "."+AppName)
}

// GetDataFilePath joins filename onto the data directory.
func GetDataFilePath(filename string) string {
	return filepath.Join(GetDataDirectory(), filename)
}
