// Package dbconn resolves the database connection a dump is taken from or
// imported into. Callers only see Descriptor; where it came from is hidden
// behind Resolver.
package dbconn

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"

	"github.com/vbp1/datafetch/internal/failure"
)

// Descriptor holds connection parameters for one database.
type Descriptor struct {
	Host       string
	Port       int
	Socket     string // unix socket path; replaces Host and Port when set
	User       string
	Password   string
	Database   string
	ExportArgs []string
	ImportArgs []string
}

// PasswordEnv passes the password to mysql client tools without putting it on argv.
func (d Descriptor) PasswordEnv() []string {
	if d.Password == "" {
		return nil
	}
	return []string{"MYSQL_PWD=" + d.Password}
}

// ClientArgs returns the connection flags understood by the mysql client
// tools, the database name first.
func (d Descriptor) ClientArgs() []string {
	args := []string{d.Database, "--user=" + d.User}
	if d.Socket != "" {
		return append(args, "--socket="+d.Socket)
	}
	args = append(args, "--host="+d.Host)
	if d.Port != 0 {
		args = append(args, "--port="+strconv.Itoa(d.Port))
	}
	return args
}

// Addr returns host:port, port defaulting to 3306, or the socket path.
func (d Descriptor) Addr() string {
	if d.Socket != "" {
		return d.Socket
	}
	port := d.Port
	if port == 0 {
		port = 3306
	}
	return net.JoinHostPort(d.Host, strconv.Itoa(port))
}

// Resolver supplies the connection descriptor.
type Resolver interface {
	Resolve(ctx context.Context) (Descriptor, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context) (Descriptor, error)

func (f ResolverFunc) Resolve(ctx context.Context) (Descriptor, error) { return f(ctx) }

// Static always returns d.
func Static(d Descriptor) Resolver {
	return ResolverFunc(func(context.Context) (Descriptor, error) { return d, nil })
}

// Settings are the configuration values a descriptor can be built from.
type Settings struct {
	DSN            string
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	ParametersFile string
	ExportArgs     []string // each entry is split on whitespace
	ImportArgs     []string
}

// FromSettings tries the DSN, then explicit keys, then the parameters file.
func FromSettings(s Settings) Resolver {
	return ResolverFunc(func(ctx context.Context) (Descriptor, error) {
		var (
			d   Descriptor
			err error
		)
		switch {
		case s.DSN != "":
			d, err = parseDSN(s.DSN)
		case s.Host != "" || s.Name != "":
			d = Descriptor{Host: s.Host, Port: s.Port, User: s.User, Password: s.Password, Database: s.Name}
		case s.ParametersFile != "":
			d, err = readParametersFile(s.ParametersFile)
		default:
			return Descriptor{}, failure.New(failure.KindConfig, "resolve database connection",
				errors.New("set database.dsn, database.host/database.name or database.parameters_file"))
		}
		if err != nil {
			return Descriptor{}, failure.New(failure.KindConfig, "resolve database connection", err)
		}
		if d.Database == "" {
			return Descriptor{}, failure.New(failure.KindConfig, "resolve database connection", errors.New("database name is empty"))
		}
		if d.Host == "" {
			d.Host = "localhost"
		}
		d.ExportArgs = SplitArgs(s.ExportArgs...)
		d.ImportArgs = SplitArgs(s.ImportArgs...)
		return d, nil
	})
}

// SplitArgs splits configured extra arguments on whitespace. An argument
// containing a space cannot be expressed this way.
func SplitArgs(values ...string) []string {
	var out []string
	for _, v := range values {
		out = append(out, strings.Fields(v)...)
	}
	return out
}

func parseDSN(dsn string) (Descriptor, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return Descriptor{}, fmt.Errorf("parse dsn: %w", err)
	}
	d := Descriptor{User: cfg.User, Password: cfg.Passwd, Database: cfg.DBName}
	if cfg.Net == "unix" {
		d.Socket = cfg.Addr
		return d, nil
	}
	host, port, err := net.SplitHostPort(cfg.Addr)
	if err != nil {
		d.Host = cfg.Addr
		return d, nil
	}
	d.Host = host
	d.Port, _ = strconv.Atoi(port)
	return d, nil
}

type parameters struct {
	Host     string `yaml:"database_host"`
	Port     any    `yaml:"database_port"`
	Name     string `yaml:"database_name"`
	User     string `yaml:"database_user"`
	Password string `yaml:"database_password"`
}

func readParametersFile(path string) (Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Descriptor{}, err
	}
	var doc struct {
		Parameters *parameters `yaml:"parameters"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Descriptor{}, fmt.Errorf("%s: %w", path, err)
	}
	p := doc.Parameters
	if p == nil {
		p = &parameters{}
		if err := yaml.Unmarshal(data, p); err != nil {
			return Descriptor{}, fmt.Errorf("%s: %w", path, err)
		}
	}
	d := Descriptor{Host: p.Host, User: p.User, Password: p.Password, Database: p.Name}
	switch v := p.Port.(type) {
	case int:
		d.Port = v
	case string:
		d.Port, _ = strconv.Atoi(v)
	}
	return d, nil
}
