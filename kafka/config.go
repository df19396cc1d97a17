package kafka

import (
	"time"

	"github.com/kbukum/demandflow/resilience"
	"github.com/kbukum/demandflow/validation"
)

// Start offsets for a consumer group with no committed offset.
const (
	OffsetFirst = "first"
	OffsetLast  = "last"
)

// SASL mechanisms understood by CreateDialer and CreateTransport.
const (
	MechanismPlain       = "PLAIN"
	MechanismSCRAMSHA256 = "SCRAM-SHA-256"
	MechanismSCRAMSHA512 = "SCRAM-SHA-512"
)

// TLSConfig enables TLS towards the brokers. Client certificates are used
// when both files are set.
type TLSConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	SkipVerify bool   `mapstructure:"skip_verify"`
	CAFile     string `mapstructure:"ca_file"`
	CertFile   string `mapstructure:"cert_file" validate:"required_with=KeyFile"`
	KeyFile    string `mapstructure:"key_file" validate:"required_with=CertFile"`
}

// SASLConfig enables SASL authentication.
type SASLConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Mechanism string `mapstructure:"mechanism" validate:"required_if=Enabled true,omitempty,oneof=PLAIN SCRAM-SHA-256 SCRAM-SHA-512"`
	Username  string `mapstructure:"username" validate:"required_if=Enabled true"`
	Password  string `mapstructure:"password"`
}

// Config is the Kafka section shared by the topic source and sink.
type Config struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers" validate:"min=1,dive,required"`

	// GroupID is the consumer group the topic source joins.
	GroupID string `mapstructure:"group_id" validate:"required"`
	// StartOffset is where a group without committed offsets starts.
	StartOffset string `mapstructure:"start_offset" validate:"oneof=first last"`

	TLS  TLSConfig  `mapstructure:"tls"`
	SASL SASLConfig `mapstructure:"sasl"`

	// producer
	Compression  string            `mapstructure:"compression" validate:"oneof=none gzip snappy lz4 zstd"`
	Retry        resilience.Policy `mapstructure:"retry"`
	BatchSize    int               `mapstructure:"batch_size" validate:"gt=0"`
	BatchTimeout time.Duration     `mapstructure:"batch_timeout" validate:"gt=0"`
	WriteTimeout time.Duration     `mapstructure:"write_timeout" validate:"gt=0"`
	RequiredAcks int               `mapstructure:"required_acks" validate:"oneof=-1 0 1"`

	// consumer
	ReadTimeout       time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	SessionTimeout    time.Duration `mapstructure:"session_timeout" validate:"gt=0"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval" validate:"gt=0,ltfield=SessionTimeout"`
	RebalanceTimeout  time.Duration `mapstructure:"rebalance_timeout" validate:"gt=0"`

	// connection
	DialTimeout time.Duration `mapstructure:"dial_timeout" validate:"gt=0"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout" validate:"gt=0"`
	MetadataTTL time.Duration `mapstructure:"metadata_ttl" validate:"gt=0"`
}

// ApplyDefaults fills zero fields. RequiredAcks 0 means all replicas; set -1
// explicitly for the same effect or 1 for the leader only.
func (c *Config) ApplyDefaults() {
	if len(c.Brokers) == 0 {
		c.Brokers = []string{"localhost:9092"}
	}
	if c.GroupID == "" {
		c.GroupID = "demandflow"
	}
	if c.StartOffset == "" {
		c.StartOffset = OffsetFirst
	}
	if c.SASL.Enabled && c.SASL.Mechanism == "" {
		c.SASL.Mechanism = MechanismPlain
	}
	if c.Compression == "" {
		c.Compression = "snappy"
	}
	c.Retry.ApplyDefaults()
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.RequiredAcks == 0 {
		c.RequiredAcks = -1
	}

	durations := []struct {
		d   *time.Duration
		def time.Duration
	}{
		{&c.BatchTimeout, time.Second},
		{&c.WriteTimeout, 10 * time.Second},
		{&c.ReadTimeout, 10 * time.Second},
		{&c.SessionTimeout, 30 * time.Second},
		{&c.HeartbeatInterval, 3 * time.Second},
		{&c.RebalanceTimeout, 30 * time.Second},
		{&c.DialTimeout, 10 * time.Second},
		{&c.IdleTimeout, 30 * time.Second},
		{&c.MetadataTTL, 6 * time.Second},
	}
	for _, f := range durations {
		if *f.d <= 0 {
			*f.d = f.def
		}
	}
}

// Validate checks an enabled section. A disabled section is always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.Validate(c)
}
