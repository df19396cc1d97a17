package kafka

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"

	"github.com/kbukum/demandflow/errors"
)

// security is the TLS and SASL setup shared by dialers and transports. Both
// fields are nil when the matching section is disabled.
type security struct {
	tls  *tls.Config
	sasl sasl.Mechanism
}

func newSecurity(cfg *Config) (security, error) {
	var (
		sec security
		err error
	)
	if cfg.TLS.Enabled {
		if sec.tls, err = buildTLSConfig(cfg.TLS); err != nil {
			return sec, errors.InvalidConfig("kafka tls: " + err.Error()).WithCause(err)
		}
	}
	if cfg.SASL.Enabled {
		if sec.sasl, err = buildSASLMechanism(cfg.SASL); err != nil {
			return sec, errors.InvalidConfig("kafka sasl: " + err.Error()).WithCause(err)
		}
	}
	return sec, nil
}

// CreateTransport returns the transport the topic sink's writer uses.
func CreateTransport(cfg *Config) (*kafka.Transport, error) {
	sec, err := newSecurity(cfg)
	if err != nil {
		return nil, err
	}
	return &kafka.Transport{
		DialTimeout: cfg.DialTimeout,
		IdleTimeout: cfg.IdleTimeout,
		MetadataTTL: cfg.MetadataTTL,
		TLS:         sec.tls,
		SASL:        sec.sasl,
	}, nil
}

// CreateDialer returns the dialer used by the topic source's reader and by
// the health probe.
func CreateDialer(cfg *Config) (*kafka.Dialer, error) {
	sec, err := newSecurity(cfg)
	if err != nil {
		return nil, err
	}
	return &kafka.Dialer{
		Timeout:       cfg.DialTimeout,
		DualStack:     true,
		TLS:           sec.tls,
		SASLMechanism: sec.sasl,
	}, nil
}

func buildTLSConfig(cfg TLSConfig) (*tls.Config, error) {
	tc := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.SkipVerify, //nolint:gosec // opt-in for self-signed test brokers
	}
	if cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, err
		}
		tc.RootCAs = x509.NewCertPool()
		if !tc.RootCAs.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates in %s", cfg.CAFile)
		}
	}
	if cfg.CertFile != "" {
		pair, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, err
		}
		tc.Certificates = append(tc.Certificates, pair)
	}
	return tc, nil
}

func buildSASLMechanism(cfg SASLConfig) (sasl.Mechanism, error) {
	switch cfg.Mechanism {
	case MechanismPlain:
		return plain.Mechanism{Username: cfg.Username, Password: cfg.Password}, nil
	case MechanismSCRAMSHA256:
		return scram.Mechanism(scram.SHA256, cfg.Username, cfg.Password)
	case MechanismSCRAMSHA512:
		return scram.Mechanism(scram.SHA512, cfg.Username, cfg.Password)
	}
	return nil, fmt.Errorf("unsupported mechanism %q", cfg.Mechanism)
}

var compressionCodecs = map[string]kafka.Compression{
	"none": 0,
	"gzip": kafka.Gzip,
	"lz4":  kafka.Lz4,
	"zstd": kafka.Zstd,
}

// ResolveCompression maps a codec name to kafka-go's constant. Unknown names
// get snappy.
func ResolveCompression(name string) kafka.Compression {
	if c, ok := compressionCodecs[name]; ok {
		return c
	}
	return kafka.Snappy
}

// StartOffset maps start_offset onto kafka-go's offsets; anything but "last"
// starts from the oldest message.
func StartOffset(name string) int64 {
	if name == OffsetLast {
		return kafka.LastOffset
	}
	return kafka.FirstOffset
}
