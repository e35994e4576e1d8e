package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Etcd    EtcdConfig    `mapstructure:"etcd"`
	MySQL   MySQLConfig   `mapstructure:"mysql"`
	MongoDB MongoDBConfig `mapstructure:"mongodb"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Name            string        `mapstructure:"name"`
	Host            string        `mapstructure:"host"`
	AdvertiseHost   string        `mapstructure:"advertise_host"`
	Port            int           `mapstructure:"port"`
	GRPCPort        int           `mapstructure:"grpc_port"`
	Debug           bool          `mapstructure:"debug"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type EtcdConfig struct {
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Prefix      string        `mapstructure:"prefix"`
	LeaseTTL    int64         `mapstructure:"lease_ttl"`
}

type MySQLConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type MongoDBConfig struct {
	URI                    string        `mapstructure:"uri"`
	Database               string        `mapstructure:"database"`
	Collection             string        `mapstructure:"collection"`
	ServerSelectionTimeout time.Duration `mapstructure:"server_selection_timeout"`
	MaxPoolSize            uint64        `mapstructure:"max_pool_size"`
	EnsureIndexes          bool          `mapstructure:"ensure_indexes"`
}

type LogConfig struct {
	Level       string   `mapstructure:"level"`
	Encoding    string   `mapstructure:"encoding"`
	OutputPaths []string `mapstructure:"output_paths"`
}

// envBindings keeps the variable names the deployment already uses.
var envBindings = map[string]string{
	"server.port":           "PORT",
	"server.advertise_host": "ADVERTISE_HOST",
	"server.grpc_port":      "GRPC_PORT",
	"server.debug":          "DEBUG",
	"etcd.endpoints":        "ETCD_ENDPOINTS",
	"mysql.host":            "MYSQL_HOST",
	"mysql.port":            "MYSQL_PORT",
	"mysql.username":        "MYSQL_USER",
	"mysql.password":        "MYSQL_PASSWORD",
	"mysql.database":        "MYSQL_DB",
	"mongodb.uri":           "MONGODB_URI",
	"mongodb.database":      "MONGODB_DB",
	"log.level":             "LOG_LEVEL",
	"log.encoding":          "LOG_ENCODING",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "shop-api")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.advertise_host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.grpc_port", 0)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("etcd.endpoints", []string{})
	v.SetDefault("etcd.dial_timeout", 5*time.Second)
	v.SetDefault("etcd.prefix", "/services/")
	v.SetDefault("etcd.lease_ttl", 30)

	// MySQL is published on 3307 in the compose setup.
	v.SetDefault("mysql.host", "127.0.0.1")
	v.SetDefault("mysql.port", 3307)
	v.SetDefault("mysql.username", "root")
	v.SetDefault("mysql.password", "secret")
	v.SetDefault("mysql.database", "shop")
	v.SetDefault("mysql.max_idle_conns", 5)
	v.SetDefault("mysql.max_open_conns", 25)
	v.SetDefault("mysql.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("mysql.auto_migrate", true)

	v.SetDefault("mongodb.uri", "mongodb://127.0.0.1:27017/?replicaSet=rs0")
	v.SetDefault("mongodb.database", "shop")
	v.SetDefault("mongodb.collection", "reviews")
	v.SetDefault("mongodb.server_selection_timeout", 5*time.Second)
	v.SetDefault("mongodb.max_pool_size", 100)
	v.SetDefault("mongodb.ensure_indexes", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.output_paths", []string{"stdout"})
}

// Load reads .env (if any), then the YAML file at configPath (if it exists),
// then environment variables. Later sources win.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.Etcd.Endpoints = splitEndpoints(config.Etcd.Endpoints)
	if config.Server.AdvertiseHost == "" {
		config.Server.AdvertiseHost = defaultAdvertiseHost(config.Server.Host)
	}

	return &config, nil
}

// defaultAdvertiseHost is the machine hostname; a wildcard bind address is
// not reachable from other hosts.
func defaultAdvertiseHost(bind string) string {
	if name, err := os.Hostname(); err == nil && name != "" {
		return name
	}
	return bind
}

// splitEndpoints expands comma separated entries coming from ETCD_ENDPOINTS.
func splitEndpoints(in []string) []string {
	var out []string
	for _, e := range in {
		for _, part := range strings.Split(e, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (c *MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.Username, c.Password, c.Host, c.Port, c.Database)
}

func (c *ServerConfig) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
