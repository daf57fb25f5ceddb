package redis

import "time"

// Config contains Redis Pub/Sub event settings. Publishing is disabled when
// Addr is empty.
type Config struct {
	Addr           string        `env:"EVENTS_REDIS_ADDR"`
	Password       string        `env:"EVENTS_REDIS_PASSWORD"`
	DB             int           `env:"EVENTS_REDIS_DB"              envDefault:"0"`
	Channel        string        `env:"EVENTS_REDIS_CHANNEL"         envDefault:"synthd.events"`
	PublishTimeout time.Duration `env:"EVENTS_REDIS_PUBLISH_TIMEOUT" envDefault:"500ms"`
	BufferSize     int           `env:"EVENTS_REDIS_BUFFER_SIZE"     envDefault:"256"`
}

// Enabled reports whether a Redis address is configured.
func (c Config) Enabled() bool {
	return c.Addr != ""
}
