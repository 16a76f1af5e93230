package config

import (
	"flag"
)

// Flags are command-line options common to both binaries. Flags set explicitly
// on the command line override values from the config file
type Flags struct {
	ConfigPath string
	Method     string
	Host       string
	Port       int
	Path       string
	LogLevel   string

	fs *flag.FlagSet
}

// RegisterFlags defines common flags on fs
func RegisterFlags(fs *flag.FlagSet) *Flags {
	def := DefaultConfig()
	f := &Flags{fs: fs}
	fs.StringVar(&f.ConfigPath, "config", "", "Path to YAML config file")
	fs.StringVar(&f.Method, "signaling", def.Signaling.Method, "Signaling method: tcp-socket or unix-socket")
	fs.StringVar(&f.Host, "signaling_host", def.Signaling.Host, "Signaling host")
	fs.IntVar(&f.Port, "signaling_port", def.Signaling.Port, "Signaling port")
	fs.StringVar(&f.Path, "signaling_path", def.Signaling.Path, "Signaling unix socket path")
	fs.StringVar(&f.LogLevel, "log-level", def.Log.Level, "Log level: debug, info, warn or error")
	return f
}

// Load builds configuration: defaults, then the config file (if given), then explicitly set flags
func (f *Flags) Load() (*Config, error) {
	cfg := DefaultConfig()
	if f.ConfigPath != "" {
		var err error
		cfg, err = LoadConfig(f.ConfigPath)
		if err != nil {
			return nil, err
		}
	}
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "signaling":
			cfg.Signaling.Method = f.Method
		case "signaling_host":
			cfg.Signaling.Host = f.Host
		case "signaling_port":
			cfg.Signaling.Port = f.Port
		case "signaling_path":
			cfg.Signaling.Path = f.Path
		case "log-level":
			cfg.Log.Level = f.LogLevel
		}
	})
	return cfg, cfg.Validate()
}

// IsSet reports whether flag was given on the command line
func (f *Flags) IsSet(name string) bool {
	set := false
	f.fs.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			set = true
		}
	})
	return set
}
