package config

import "time"

// DBConfig is the MySQL connection and pool setup. Credentials come from
// the required Config fields; pool sizes are optional.
type DBConfig struct {
	User string
	Pass string
	Host string
	Port string
	Name string

	MaxOpenConns    int           // DB_MAX_OPEN_CONNS
	MaxIdleConns    int           // DB_MAX_IDLE_CONNS, capped at MaxOpenConns
	ConnMaxLifetime time.Duration // DB_CONN_MAX_LIFETIME
	ConnMaxIdleTime time.Duration // DB_CONN_MAX_IDLE_TIME
	PingTimeout     time.Duration // DB_PING_TIMEOUT
}

// LoadDBConfig combines cfg's credentials with the pool variables.
func LoadDBConfig(cfg Config) DBConfig {
	c := DBConfig{
		User:            cfg.DBUser,
		Pass:            cfg.DBPass,
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		Name:            cfg.DBName,
		MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 10),
		ConnMaxLifetime: envDur("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		ConnMaxIdleTime: envDur("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		PingTimeout:     envDur("DB_PING_TIMEOUT", 5*time.Second),
	}
	return c.normalized()
}

func (c DBConfig) normalized() DBConfig {
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 25
	}
	if c.MaxIdleConns < 0 {
		c.MaxIdleConns = 0
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		c.MaxIdleConns = c.MaxOpenConns
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = 5 * time.Second
	}
	return c
}
