package config

import (
	"errors"
	"flag"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Addr          string        `ignored:"true"`
	Host          string        `default:"0.0.0.0"`
	Port          uint          `default:"80"`
	DBUrl         string        `envconfig:"DB_URL" default:"registrations.sqlite"`
	MongoDatabase string        `envconfig:"MONGO_DATABASE" default:"registrations"`
	MongoTimeout  time.Duration `envconfig:"MONGO_TIMEOUT" default:"5s"`
	TokenSecret   string        `envconfig:"TOKEN_SECRET"`
	TokenTTL      time.Duration `envconfig:"TOKEN_TTL" default:"2m"`
	AdminUser     string        `envconfig:"ADMIN_USER"`
	AdminPassword string        `envconfig:"ADMIN_PASSWORD"`
	PublicDir     string        `envconfig:"PUBLIC_DIR" default:"public"`
	PrivateDir    string        `envconfig:"PRIVATE_DIR" default:"private"`
	Debug         bool
}

// Prefix of the environment variables read by FromEnv, e.g. REG_DB_URL.
const Prefix = "reg"

// FromEnv loads an optional .env file, then reads REG_* variables over the defaults.
func FromEnv() (cfg Config, err error) {
	err = godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return
	}
	err = envconfig.Process(Prefix, &cfg)
	return
}

// ParseFlags lets command-line flags override the environment.
func ParseFlags() (cfg Config, err error) {
	cfg, err = FromEnv()
	if err != nil {
		return
	}
	return parse(flag.CommandLine, os.Args[1:], cfg)
}

func parse(fs *flag.FlagSet, args []string, cfg Config) (Config, error) {
	fs.StringVar(&cfg.Host, "host", cfg.Host, "listen host name")
	fs.UintVar(&cfg.Port, "port", cfg.Port, "listen port number")
	fs.StringVar(&cfg.DBUrl, "db-url", cfg.DBUrl, "path to SQLite3 DB file, mongodb:// URL, or memory:")
	fs.StringVar(&cfg.MongoDatabase, "mongo-db", cfg.MongoDatabase, "MongoDB database name")
	fs.StringVar(&cfg.TokenSecret, "token-secret", cfg.TokenSecret, "secret key for token encryption and decryption")
	ttl := uint(cfg.TokenTTL / time.Second)
	fs.UintVar(&ttl, "token-ttl", ttl, "token TTL in seconds")
	fs.StringVar(&cfg.AdminUser, "admin-user", cfg.AdminUser, "create or reset this admin account at startup")
	fs.StringVar(&cfg.AdminPassword, "admin-password", cfg.AdminPassword, "password for -admin-user")
	fs.StringVar(&cfg.PublicDir, "public-dir", cfg.PublicDir, "directory of static files")
	fs.StringVar(&cfg.PrivateDir, "private-dir", cfg.PrivateDir, "directory of admin-only static files, served under /admin")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "log at DEBUG level")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	cfg.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(int(cfg.Port)))
	cfg.TokenTTL = time.Duration(ttl) * time.Second

	if cfg.TokenSecret == "" {
		return cfg, errors.New("missing parameter -token-secret")
	}
	if cfg.AdminUser != "" && cfg.AdminPassword == "" {
		return cfg, errors.New("missing parameter -admin-password")
	}
	return cfg, nil
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}

// IsMongo reports whether DBUrl points at a MongoDB deployment.
func (cfg Config) IsMongo() bool {
	return strings.HasPrefix(cfg.DBUrl, "mongodb://") || strings.HasPrefix(cfg.DBUrl, "mongodb+srv://")
}
