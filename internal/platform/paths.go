package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultAppName is the directory name used when no --app is given.
const DefaultAppName = "projboard"

// Paths are the per-user files projboard reads and writes.
type Paths struct {
	ConfigPath   string
	DataDir      string
	ActivityPath string
}

// Options picks which board instance to resolve for.
type Options struct {
	AppName string
	DevMode bool
}

// envOverride names the variables that replace the config and data bases on one OS.
type envOverride struct {
	config string
	data   string
}

// overrides lists the OSes whose environment can relocate the base directories.
var overrides = map[string]envOverride{
	"linux":   {config: "XDG_CONFIG_HOME", data: "XDG_DATA_HOME"},
	"windows": {config: "APPDATA", data: "LOCALAPPDATA"},
}

// DefaultPaths resolves the board files for DefaultAppName.
func DefaultPaths() (Paths, error) {
	return DefaultPathsWithOptions(Options{AppName: DefaultAppName})
}

// DefaultPathsWithOptions resolves the board files from the running OS and environment.
// Dev mode resolves "<app>-dev" instead.
func DefaultPathsWithOptions(opts Options) (Paths, error) {
	appName := strings.TrimSpace(opts.AppName)
	if appName == "" {
		appName = DefaultAppName
	}
	if opts.DevMode {
		appName += "-dev"
	}

	configBase, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, fmt.Errorf("user config dir: %w", err)
	}
	dataBase, err := userDataDir(runtime.GOOS, configBase)
	if err != nil {
		return Paths{}, err
	}

	env := make(map[string]string, 2*len(overrides))
	for _, o := range overrides {
		env[o.config] = os.Getenv(o.config)
		env[o.data] = os.Getenv(o.data)
	}
	return PathsFor(runtime.GOOS, env, configBase, dataBase, appName)
}

// userDataDir picks the data base before environment overrides: ~/.local/share on
// linux, the config base elsewhere.
func userDataDir(goos, configBase string) (string, error) {
	if goos != "linux" {
		return configBase, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("user home dir: %w", err)
	}
	return filepath.Join(home, ".local", "share"), nil
}

// PathsFor is the pure half of path resolution, so tests can pin goos and env.
func PathsFor(goos string, env map[string]string, userConfigDir, userDataDir, appName string) (Paths, error) {
	if userConfigDir == "" || userDataDir == "" {
		return Paths{}, errors.New("empty base dirs")
	}
	appName = strings.TrimSpace(appName)
	if appName == "" {
		return Paths{}, errors.New("empty app name")
	}

	configBase, dataBase := userConfigDir, userDataDir
	if o, ok := overrides[goos]; ok {
		if v := strings.TrimSpace(env[o.config]); v != "" {
			configBase = v
		}
		if v := strings.TrimSpace(env[o.data]); v != "" {
			dataBase = v
		}
	}

	dataDir := filepath.Join(dataBase, appName)
	return Paths{
		ConfigPath:   filepath.Join(configBase, appName, "config.toml"),
		DataDir:      dataDir,
		ActivityPath: filepath.Join(dataDir, "activity.db"),
	}, nil
}
