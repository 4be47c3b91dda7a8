package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

// PlatformDefaults holds the per-OS default paths and endpoints.
type PlatformDefaults struct {
	LogFile     string
	ConfigPath  string
	ExporterURL string
	TempDirs    []string
}

// GetPlatformDefaults returns the defaults for the current platform.
func GetPlatformDefaults() PlatformDefaults {
	switch runtime.GOOS {
	case "windows":
		return PlatformDefaults{
			LogFile:     `C:\ProgramData\Sysdeck\sysdeck.log`,
			ConfigPath:  `C:\ProgramData\Sysdeck\config.yaml`,
			ExporterURL: "http://localhost:9182/metrics", // windows_exporter
			TempDirs: []string{
				os.TempDir(),
				`C:\Windows\Temp`,
				filepath.Join(os.Getenv("LOCALAPPDATA"), "Temp"),
			},
		}
	default:
		return PlatformDefaults{
			LogFile:     "/var/log/sysdeck/sysdeck.log",
			ConfigPath:  "/etc/sysdeck/config.yaml",
			ExporterURL: "http://localhost:9100/metrics", // node_exporter
			TempDirs:    []string{os.TempDir()},
		}
	}
}

// GetDefaultConfigPath returns the platform-specific default config path.
func GetDefaultConfigPath() string {
	return GetPlatformDefaults().ConfigPath
}

// UpdateConfigDefaults applies platform-specific values on top of the static
// defaults. Called from setDefaults.
func UpdateConfigDefaults(v *viper.Viper) {
	defaults := GetPlatformDefaults()
	v.SetDefault("logging.file", defaults.LogFile)
	v.SetDefault("poller.exporter_url", defaults.ExporterURL)
	v.SetDefault("cleaner.temp_dirs", defaults.TempDirs)
}
