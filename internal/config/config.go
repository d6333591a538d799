// Package config loads datafetch settings with viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/vbp1/datafetch/internal/dbconn"
	"github.com/vbp1/datafetch/internal/dump"
	"github.com/vbp1/datafetch/internal/failure"
	"github.com/vbp1/datafetch/internal/filesync"
	"github.com/vbp1/datafetch/internal/remote"
)

// EnvPrefix prefixes environment overrides, e.g. DATAFETCH_REMOTE_HOST.
const EnvPrefix = "DATAFETCH"

// Progress display modes.
const (
	ProgressAuto = "auto"
	ProgressBar  = "bar"
	ProgressRows = "rows"
)

// Config holds every setting of one invocation.
type Config struct {
	File string // config file used, "" when none was found

	Remote struct {
		Host    string
		User    string
		Dir     string
		Env     string
		Command []string
	}
	SSH struct {
		Options  []string
		Proxy    *remote.Proxy
		Native   bool
		Key      string
		Insecure bool
	}
	RsyncOptions []string
	DBViaFile    bool
	Folders      []filesync.Mapping
	CacheDir     string
	Database     dbconn.Settings
	Verify       bool
	Progress     string
}

// New returns a viper instance with defaults and environment overrides set,
// reading path if given, otherwise datafetch[.<env>].yaml from the search path.
// A missing config file is not an error.
func New(path, env string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault("remote.command", "datafetch")
	v.SetDefault("cache_dir", filepath.Join("var", "cache"))
	v.SetDefault("progress", ProgressAuto)
	v.SetDefault("rsync.options", []string{"-a"})

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		name := "datafetch"
		if env != "" {
			name += "." + env
		}
		v.SetConfigName(name)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("config")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "datafetch"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, failure.New(failure.KindConfig, "read config", err)
		}
	}
	return v, nil
}

// Load decodes v into a Config. It does not validate.
func Load(v *viper.Viper) (*Config, error) {
	c := &Config{File: v.ConfigFileUsed()}
	c.Remote.Host = v.GetString("remote.host")
	c.Remote.User = v.GetString("remote.user")
	c.Remote.Dir = v.GetString("remote.dir")
	c.Remote.Env = v.GetString("remote.env")
	c.Remote.Command = dbconn.SplitArgs(stringList(v.Get("remote.command"))...)

	c.SSH.Options = dbconn.SplitArgs(stringList(v.Get("ssh.options"))...)
	if host := v.GetString("ssh.proxy.host"); host != "" {
		c.SSH.Proxy = &remote.Proxy{
			Host:    host,
			User:    v.GetString("ssh.proxy.user"),
			Options: dbconn.SplitArgs(stringList(v.Get("ssh.proxy.options"))...),
		}
	}
	c.SSH.Native = v.GetBool("ssh.native")
	c.SSH.Key = v.GetString("ssh.key")
	c.SSH.Insecure = v.GetBool("ssh.insecure")

	c.RsyncOptions = dbconn.SplitArgs(stringList(v.Get("rsync.options"))...)
	c.DBViaFile = v.GetBool("db_via_file")
	c.CacheDir = v.GetString("cache_dir")
	c.Progress = strings.ToLower(v.GetString("progress"))

	folders, err := parseFolders(v.Get("folders"))
	if err != nil {
		return nil, failure.New(failure.KindConfig, "parse folders", err)
	}
	c.Folders = folders

	c.Database = dbconn.Settings{
		DSN:            v.GetString("database.dsn"),
		Host:           v.GetString("database.host"),
		Port:           v.GetInt("database.port"),
		User:           v.GetString("database.user"),
		Password:       v.GetString("database.password"),
		Name:           v.GetString("database.name"),
		ParametersFile: v.GetString("database.parameters_file"),
		ExportArgs:     stringList(v.Get("database.export_arguments")),
		ImportArgs:     stringList(v.Get("database.import_arguments")),
	}
	c.Verify = v.GetBool("database.verify")
	return c, nil
}

// Validate checks what a fetch needs. Export only needs the database settings,
// which are resolved lazily.
func (c *Config) Validate() error {
	var missing []string
	if c.Remote.Host == "" {
		missing = append(missing, "remote.host")
	}
	if c.Remote.User == "" {
		missing = append(missing, "remote.user")
	}
	if c.SSH.Proxy != nil && c.SSH.Proxy.User == "" {
		missing = append(missing, "ssh.proxy.user")
	}
	if len(missing) > 0 {
		return failure.New(failure.KindConfig, "validate config",
			fmt.Errorf("missing %s", strings.Join(missing, ", ")))
	}
	switch c.Progress {
	case ProgressAuto, ProgressBar, ProgressRows:
	default:
		return failure.New(failure.KindConfig, "validate config",
			fmt.Errorf("progress must be auto, bar or rows, got %q", c.Progress))
	}
	return nil
}

// Target returns how to reach the remote host.
func (c *Config) Target() remote.Target {
	return remote.Target{
		Host:         c.Remote.Host,
		User:         c.Remote.User,
		Dir:          c.Remote.Dir,
		Env:          c.Remote.Env,
		ShellOptions: c.SSH.Options,
		Proxy:        c.SSH.Proxy,
	}
}

// Resolver returns the connection descriptor provider.
func (c *Config) Resolver() dbconn.Resolver {
	return dbconn.FromSettings(c.Database)
}

// Mode returns the dump transfer mode.
func (c *Config) Mode() dump.Mode {
	if c.DBViaFile {
		return dump.StagedFile
	}
	return dump.Stream
}

// stringList accepts a scalar string or a list.
func stringList(raw any) []string {
	switch t := raw.(type) {
	case nil:
		return nil
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			out = append(out, fmt.Sprint(e))
		}
		return out
	}
	return []string{fmt.Sprint(raw)}
}

// parseFolders reads an ordered list whose entries are either "src" or
// {src: ..., dst: ...}.
func parseFolders(raw any) ([]filesync.Mapping, error) {
	if raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		if s := stringList(raw); len(s) > 0 {
			list = make([]any, len(s))
			for i := range s {
				list[i] = s[i]
			}
		} else {
			return nil, fmt.Errorf("folders must be a list, got %T", raw)
		}
	}
	out := make([]filesync.Mapping, 0, len(list))
	for i, e := range list {
		switch t := e.(type) {
		case string:
			if t == "" {
				return nil, fmt.Errorf("folders[%d]: empty entry", i)
			}
			out = append(out, filesync.NewMapping(t, ""))
		case map[string]any:
			src, _ := t["src"].(string)
			dst, _ := t["dst"].(string)
			if src == "" {
				return nil, fmt.Errorf("folders[%d]: src is required", i)
			}
			out = append(out, filesync.NewMapping(src, dst))
		default:
			return nil, fmt.Errorf("folders[%d]: unsupported entry %T", i, e)
		}
	}
	return out, nil
}
