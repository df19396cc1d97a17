package kafka

import (
	"testing"
	"time"

	apperrors "github.com/kbukum/demandflow/errors"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{Enabled: true}
	cfg.ApplyDefaults()

	if len(cfg.Brokers) != 1 || cfg.Brokers[0] != "localhost:9092" {
		t.Errorf("Brokers = %v, want [localhost:9092]", cfg.Brokers)
	}
	if cfg.GroupID != "demandflow" || cfg.StartOffset != OffsetFirst {
		t.Errorf("GroupID/StartOffset = %q/%q", cfg.GroupID, cfg.StartOffset)
	}
	if cfg.Compression != "snappy" || cfg.BatchSize != 100 || cfg.RequiredAcks != -1 {
		t.Errorf("producer defaults = %q/%d/%d", cfg.Compression, cfg.BatchSize, cfg.RequiredAcks)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Errorf("Retry.MaxAttempts = %d, want 3", cfg.Retry.MaxAttempts)
	}
	if cfg.HeartbeatInterval != 3*time.Second || cfg.SessionTimeout != 30*time.Second {
		t.Errorf("consumer timings = %v/%v", cfg.HeartbeatInterval, cfg.SessionTimeout)
	}
	if cfg.SASL.Mechanism != "" {
		t.Errorf("SASL mechanism set while SASL is disabled: %q", cfg.SASL.Mechanism)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() after defaults: %v", err)
	}
}

func TestConfig_ApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := Config{
		Brokers:      []string{"broker1:9092", "broker2:9092"},
		GroupID:      "nightly",
		Compression:  "gzip",
		BatchSize:    200,
		RequiredAcks: 1,
		DialTimeout:  time.Second,
		SASL:         SASLConfig{Enabled: true},
	}
	cfg.Retry.MaxAttempts = 5
	cfg.ApplyDefaults()

	if len(cfg.Brokers) != 2 || cfg.GroupID != "nightly" || cfg.Compression != "gzip" || cfg.BatchSize != 200 {
		t.Errorf("explicit values overwritten: %+v", cfg)
	}
	if cfg.RequiredAcks != 1 || cfg.DialTimeout != time.Second || cfg.Retry.MaxAttempts != 5 {
		t.Errorf("explicit values overwritten: acks=%d dial=%v retry=%d", cfg.RequiredAcks, cfg.DialTimeout, cfg.Retry.MaxAttempts)
	}
	if cfg.SASL.Mechanism != MechanismPlain {
		t.Errorf("SASL mechanism = %q, want PLAIN", cfg.SASL.Mechanism)
	}
}

func TestConfig_Validate(t *testing.T) {
	sasl := func(mech, user string) SASLConfig {
		return SASLConfig{Enabled: true, Mechanism: mech, Username: user}
	}
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"disabled section is not checked", func(c *Config) { *c = Config{} }, false},
		{"no brokers", func(c *Config) { c.Brokers = nil }, true},
		{"empty broker", func(c *Config) { c.Brokers = []string{""} }, true},
		{"bad start offset", func(c *Config) { c.StartOffset = "middle" }, true},
		{"bad compression", func(c *Config) { c.Compression = "brotli" }, true},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, true},
		{"bad acks", func(c *Config) { c.RequiredAcks = 2 }, true},
		{"heartbeat not below session", func(c *Config) { c.HeartbeatInterval = c.SessionTimeout }, true},
		{"negative timeout", func(c *Config) { c.WriteTimeout = -time.Second }, true},
		{"cert without key", func(c *Config) { c.TLS = TLSConfig{Enabled: true, CertFile: "c.pem"} }, true},
		{"unsupported sasl", func(c *Config) { c.SASL = sasl("GSSAPI", "u") }, true},
		{"sasl without username", func(c *Config) { c.SASL = sasl(MechanismPlain, "") }, true},
		{"scram-256", func(c *Config) { c.SASL = sasl(MechanismSCRAMSHA256, "u") }, false},
		{"scram-512", func(c *Config) { c.SASL = sasl(MechanismSCRAMSHA512, "u") }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Enabled: true}
			cfg.ApplyDefaults()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !apperrors.HasCode(err, apperrors.ErrCodeInvalidConfig) {
				t.Errorf("expected INVALID_CONFIG, got %v", err)
			}
		})
	}
}
