package pgasync

import (
	"fmt"
	"regexp"
	"strconv"

	"pgasync/pgerr"
)

// Schema selects the transport a ConnConfig dials.
type Schema string

const (
	SchemaTCP    Schema = "tcp"
	SchemaSocket Schema = "socket"
)

// DefaultPort is the standard PostgreSQL server port, used when a tcp DSN
// omits one.
const DefaultPort = 5432

// DefaultSocketPath is the conventional Unix-domain socket path Postgres
// listens on. ParseDSN's pattern requires a non-empty host, so a socket DSN
// always names its path and ParseDSN never substitutes this default.
const DefaultSocketPath = "/tmp/.s.PGSQL.5432"

// ConnConfig holds everything needed to open and authenticate a
// connection. It is immutable after ParseDSN/NewConnConfig returns.
type ConnConfig struct {
	Alias    string
	Schema   Schema
	User     string
	Password string
	Database string
	// Host holds the server hostname for SchemaTCP, or the socket path
	// for SchemaSocket.
	Host string
	Port int

	// StartupParams are sent verbatim as StartupMessage key/value pairs
	// (e.g. client_encoding, application_name).
	StartupParams map[string]string
}

// dsnPattern matches "<alias>=<schema>://[user[:password]@]host[:port][[database]]".
var dsnPattern = regexp.MustCompile(
	`^(?P<alias>[^=]+)=(?P<schema>tcp|socket)://` +
		`(?:(?P<user>[^:@\[\]]+)(?::(?P<password>[^@\[\]]*))?@)?` +
		`(?P<host>[^:\[\]]+)` +
		`(?::(?P<port>\d+))?` +
		`(?:\[(?P<database>[^\]]*)\])?$`,
)

// ParseDSN parses a connection string of the grammar:
//
//	alias = schema "://" [user [":" password] "@"] host [":" port] ["[" database "]"]
//
// schema is the literal "tcp" or "socket"; for "socket" host is a
// filesystem path. host is required for both schemas: the pattern needs at
// least one host character. Unset port defaults to DefaultPort (tcp) or is
// unused (socket).
func ParseDSN(dsn string) (*ConnConfig, error) {
	match := dsnPattern.FindStringSubmatch(dsn)
	if match == nil {
		return nil, pgerr.Client(fmt.Errorf("invalid connection string: %q", dsn))
	}

	groups := make(map[string]string, len(match))
	for i, name := range dsnPattern.SubexpNames() {
		if name != "" {
			groups[name] = match[i]
		}
	}

	cfg := &ConnConfig{
		Alias:         groups["alias"],
		Schema:        Schema(groups["schema"]),
		User:          groups["user"],
		Password:      groups["password"],
		Database:      groups["database"],
		Host:          groups["host"],
		Port:          DefaultPort,
		StartupParams: map[string]string{},
	}

	if p := groups["port"]; p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, pgerr.Client(fmt.Errorf("invalid port %q: %w", p, err))
		}
		cfg.Port = port
	}

	if cfg.Schema == SchemaSocket && cfg.Host == "" {
		cfg.Host = DefaultSocketPath
	}

	return cfg, nil
}

// Address formats the host/port pair ready for net.Dial.
func (c *ConnConfig) Address() string {
	if c.Schema == SchemaSocket {
		return c.Host
	}

	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
