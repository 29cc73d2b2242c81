package server

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// ServerConfig represents the complete server configuration.
type ServerConfig struct {
	Server  ServerSettings  `hcl:"server,block"`
	Storage StorageSettings `hcl:"storage,block"`
	Auth    AuthSettings    `hcl:"auth,block"`
	Games   GameSettings    `hcl:"games,block"`
}

// ServerSettings contains listener-level configuration.
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// StorageSettings selects and configures the document store backend.
type StorageSettings struct {
	// Backend is "memory" or "redis".
	Backend string `hcl:"backend,optional"`
	// PersistDir enables snapshot persistence for the memory backend.
	PersistDir string `hcl:"persist_dir,optional"`

	RedisAddr     string `hcl:"redis_addr,optional"`
	RedisPassword string `hcl:"redis_password,optional"`
	RedisDB       int    `hcl:"redis_db,optional"`
}

// AuthSettings configures the identity provider.
type AuthSettings struct {
	// JWTSecret enables the JWT provider. Empty selects the dev-mode
	// provider, which trusts the presented id.
	JWTSecret string `hcl:"jwt_secret,optional"`
	// TokenTTLHours bounds token lifetime; 0 means no expiry.
	TokenTTLHours int `hcl:"token_ttl_hours,optional"`
}

// GameSettings bounds the games this server will create.
type GameSettings struct {
	DefaultMaxPlayers int   `hcl:"default_max_players,optional"`
	BoardSizes        []int `hcl:"board_sizes,optional"`
}

// DefaultServerConfig returns default server configuration.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Storage: StorageSettings{
			Backend:   "memory",
			RedisAddr: "localhost:6379",
		},
		Games: GameSettings{
			DefaultMaxPlayers: 10,
			BoardSizes:        []int{3, 4, 5, 6},
		},
	}
}

// LoadServerConfig loads server configuration from an HCL file. A missing
// file yields the defaults.
func LoadServerConfig(filename string) (*ServerConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ServerConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply defaults for missing values
	if config.Server.Address == "" {
		config.Server.Address = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}
	if config.Storage.Backend == "" {
		config.Storage.Backend = "memory"
	}
	if config.Storage.RedisAddr == "" {
		config.Storage.RedisAddr = "localhost:6379"
	}
	if config.Games.DefaultMaxPlayers == 0 {
		config.Games.DefaultMaxPlayers = 10
	}
	if len(config.Games.BoardSizes) == 0 {
		config.Games.BoardSizes = []int{3, 4, 5, 6}
	}

	return &config, nil
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	switch c.Storage.Backend {
	case "memory":
	case "redis":
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("redis backend requires redis_addr")
		}
	default:
		return fmt.Errorf("unknown storage backend: %s", c.Storage.Backend)
	}

	if c.Games.DefaultMaxPlayers < 1 {
		return fmt.Errorf("default_max_players must be positive")
	}
	for _, size := range c.Games.BoardSizes {
		if size < 3 || size > 6 {
			return fmt.Errorf("unsupported board size: %d", size)
		}
	}
	if c.Auth.TokenTTLHours < 0 {
		return fmt.Errorf("token_ttl_hours must not be negative")
	}

	return nil
}

// GetServerAddress returns the full listen address.
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
