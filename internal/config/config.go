// Package config loads the media engine's settings from flags with
// environment-variable overrides, matching the teacher's flag+getenv
// pattern.
package config

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

// Config holds every externally-tunable setting of the media engine.
type Config struct {
	GRPCBindAddr string
	GRPCPort     int
	MetricsPort  int

	RTPHost            string
	RTPPortMin         int
	RTPPortMax         int
	RTPPortQuarantine  time.Duration
	AssetsBasePath     string
	RecordingStagingDir string

	GRPCTLSCertPath string
	GRPCTLSKeyPath  string
	GRPCClientCAPath string

	S3Endpoint string
	S3Region   string
	S3Bucket   string

	RabbitMQURL string

	LogLevel string
}

// Load parses flags, applies environment-variable overrides, and fills in
// the advertised host if unset.
func Load() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.GRPCBindAddr, "grpc-bind-addr", "0.0.0.0", "gRPC bind address")
	flag.IntVar(&cfg.GRPCPort, "grpc-port", 9090, "gRPC listen port")
	flag.IntVar(&cfg.MetricsPort, "metrics-port", 9091, "HTTP metrics/health listen port")

	flag.StringVar(&cfg.RTPHost, "rtp-host", "", "advertised RTP host (defaults to the primary interface IP)")
	flag.IntVar(&cfg.RTPPortMin, "rtp-port-min", 20000, "lowest RTP port allocated")
	flag.IntVar(&cfg.RTPPortMax, "rtp-port-max", 20100, "upper bound of the RTP port range (exclusive; never allocated)")
	quarantineSeconds := flag.Int("rtp-port-quarantine-seconds", 60, "seconds a released port is held before reuse")
	flag.StringVar(&cfg.AssetsBasePath, "assets-base-path", "assets", "base directory for relative file:// audio URIs")
	flag.StringVar(&cfg.RecordingStagingDir, "recording-staging-dir", "/tmp/sentiric/recordings", "local staging directory for finalized recordings awaiting upload")

	flag.StringVar(&cfg.GRPCTLSCertPath, "grpc-tls-cert", "", "gRPC server TLS certificate (empty disables TLS)")
	flag.StringVar(&cfg.GRPCTLSKeyPath, "grpc-tls-key", "", "gRPC server TLS key")
	flag.StringVar(&cfg.GRPCClientCAPath, "grpc-client-ca", "", "CA bundle for verifying client certificates (empty disables mTLS)")

	flag.StringVar(&cfg.S3Endpoint, "s3-endpoint", "", "S3-compatible endpoint (empty uses the AWS default resolver)")
	flag.StringVar(&cfg.S3Region, "s3-region", "us-east-1", "S3 region")
	flag.StringVar(&cfg.S3Bucket, "s3-bucket", "sentiric", "S3 bucket shown in the startup banner (recording s3:// URIs always name their own bucket)")

	flag.StringVar(&cfg.RabbitMQURL, "rabbitmq-url", "", "AMQP broker URL (empty disables event publishing)")

	flag.StringVar(&cfg.LogLevel, "log-level", "info", "log level: debug, info, warn, error")

	flag.Parse()

	if v := os.Getenv("GRPC_BIND_ADDR"); v != "" {
		cfg.GRPCBindAddr = v
	}
	if v := os.Getenv("GRPC_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.GRPCPort = n
		}
	}
	if v := os.Getenv("METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MetricsPort = n
		}
	}
	if v := os.Getenv("RTP_HOST"); v != "" {
		cfg.RTPHost = v
	}
	if v := os.Getenv("RTP_PORT_MIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RTPPortMin = n
		}
	}
	if v := os.Getenv("RTP_PORT_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RTPPortMax = n
		}
	}
	if v := os.Getenv("RTP_PORT_QUARANTINE_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*quarantineSeconds = n
		}
	}
	if v := os.Getenv("ASSETS_BASE_PATH"); v != "" {
		cfg.AssetsBasePath = v
	}
	if v := os.Getenv("RECORDING_STAGING_DIR"); v != "" {
		cfg.RecordingStagingDir = v
	}
	if v := os.Getenv("GRPC_TLS_CERT"); v != "" {
		cfg.GRPCTLSCertPath = v
	}
	if v := os.Getenv("GRPC_TLS_KEY"); v != "" {
		cfg.GRPCTLSKeyPath = v
	}
	if v := os.Getenv("GRPC_CLIENT_CA"); v != "" {
		cfg.GRPCClientCAPath = v
	}
	if v := os.Getenv("S3_ENDPOINT"); v != "" {
		cfg.S3Endpoint = v
	}
	if v := os.Getenv("S3_REGION"); v != "" {
		cfg.S3Region = v
	}
	if v := os.Getenv("S3_BUCKET"); v != "" {
		cfg.S3Bucket = v
	}
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		cfg.RabbitMQURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	cfg.RTPPortQuarantine = time.Duration(*quarantineSeconds) * time.Second

	if cfg.RTPHost == "" {
		cfg.RTPHost = primaryInterfaceIP()
	}

	return cfg
}

// Validate checks invariants Load cannot enforce at flag-definition time.
func (c *Config) Validate() error {
	if c.RTPPortMin >= c.RTPPortMax {
		return fmt.Errorf("config: rtp-port-min (%d) must be less than rtp-port-max (%d)", c.RTPPortMin, c.RTPPortMax)
	}
	return nil
}

// primaryInterfaceIP finds the IP of the interface used to reach the
// network, falling back to loopback if none is found.
func primaryInterfaceIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "127.0.0.1"
	}
	return addr.IP.String()
}
