package api

import (
	"crypto/tls"
	"crypto/x509"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
)

// CreateKafkaDialer builds a dialer with SASL/PLAIN and TLS for managed
// Kafka providers. With no credentials and no CA cert the dialer is
// plaintext, suitable for a local broker.
func CreateKafkaDialer(username, password, caCert string) *kafka.Dialer {
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	if username != "" && password != "" {
		dialer.SASLMechanism = plain.Mechanism{
			Username: username,
			Password: password,
		}
		log.Info().Str("username", username).Msg("kafka SASL/PLAIN enabled")
	}

	tlsConfig := &tls.Config{}
	if caCert != "" {
		pool := x509.NewCertPool()
		if pool.AppendCertsFromPEM([]byte(caCert)) {
			tlsConfig.RootCAs = pool
			log.Info().Msg("kafka TLS enabled with provided CA certificate")
		} else {
			log.Warn().Msg("kafka CA certificate did not parse, falling back to system roots")
		}
	}

	// SASL brokers require TLS; system roots cover the no-CA case.
	if dialer.SASLMechanism != nil || caCert != "" {
		dialer.TLS = tlsConfig
	}

	return dialer
}

// ParseKafkaBrokers splits a comma separated broker list.
func ParseKafkaBrokers(brokers string) []string {
	parts := strings.Split(strings.ReplaceAll(brokers, " ", ""), ",")
	var result []string
	for _, broker := range parts {
		if broker != "" {
			result = append(result, broker)
		}
	}
	return result
}
