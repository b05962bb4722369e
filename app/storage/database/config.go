package database

import (
	"fmt"
	"net/url"

	"github.com/pkg/errors"
)

type Config struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslMode"`
	MigrationsTable string `mapstructure:"migrationsTable"`
	MaxOpenConns    int    `mapstructure:"maxOpenConns"`
}

func (c *Config) Validate() error {
	if c.Host == "" || c.Port == 0 {
		return errors.New("you must provide database host and port in a config")
	}

	if c.User == "" {
		return errors.New("you must provide database user in a config")
	}

	return nil
}

func (c *Config) dbName() string {
	// dbname = user by convention
	if c.Name == "" {
		return c.User
	}
	return c.Name
}

func (c *Config) sslMode() string {
	if c.SSLMode == "" {
		return "disable"
	}
	return c.SSLMode
}

func (c *Config) DBConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.dbName(), c.User, c.Password, c.sslMode(),
	)
}

func (c *Config) DBConnectionStringForMigration() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&x-migrations-table=%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.dbName(),
		c.sslMode(),
		c.MigrationsTable,
	)
}
