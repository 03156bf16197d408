package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sentiric/media-engine/internal/banner"
	"github.com/sentiric/media-engine/internal/config"
	"github.com/sentiric/media-engine/internal/httpapi"
	"github.com/sentiric/media-engine/internal/logger"
	"github.com/sentiric/media-engine/internal/media/engine"
	"github.com/sentiric/media-engine/internal/media/events"
	"github.com/sentiric/media-engine/internal/media/rpcapi"
	"github.com/sentiric/media-engine/internal/media/storage"
	"github.com/sentiric/media-engine/internal/metrics"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger.Init(os.Stdout)
	logger.SetLevel(cfg.LogLevel)

	banner.Print("MEDIA ENGINE", []banner.ConfigLine{
		{Label: "gRPC Listen", Value: fmt.Sprintf("%s:%d", cfg.GRPCBindAddr, cfg.GRPCPort)},
		{Label: "Metrics/Health", Value: fmt.Sprintf(":%d", cfg.MetricsPort)},
		{Label: "RTP Host", Value: cfg.RTPHost},
		{Label: "RTP Range", Value: fmt.Sprintf("%d-%d", cfg.RTPPortMin, cfg.RTPPortMax)},
		{Label: "Assets Path", Value: cfg.AssetsBasePath},
		{Label: "Recording Staging", Value: cfg.RecordingStagingDir},
		{Label: "S3 Bucket", Value: cfg.S3Bucket},
		{Label: "mTLS", Value: fmt.Sprintf("%v", cfg.GRPCClientCAPath != "")},
		{Label: "Log Level", Value: cfg.LogLevel},
	})

	if err := os.MkdirAll(cfg.RecordingStagingDir, 0o755); err != nil {
		logger.Error("failed to create recording staging directory", "error", err)
		os.Exit(1)
	}

	publisher := events.Publisher(events.NoopPublisher{})
	if cfg.RabbitMQURL != "" {
		amqpPublisher, err := events.Dial(cfg.RabbitMQURL)
		if err != nil {
			logger.Error("failed to connect to message broker", "error", err)
			os.Exit(1)
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
	}

	storageWriter := storage.New(storage.Config{
		S3Endpoint:   cfg.S3Endpoint,
		S3Region:     cfg.S3Region,
		UsePathStyle: cfg.S3Endpoint != "",
	})

	eng := engine.New(engine.Config{
		RTPHost:       cfg.RTPHost,
		PortMin:       uint16(cfg.RTPPortMin),
		PortMax:       uint16(cfg.RTPPortMax),
		QuarantineFor: cfg.RTPPortQuarantine,
		StagingDir:    cfg.RecordingStagingDir,
		AudioBaseDir:  cfg.AssetsBasePath,
	}, storageWriter, publisher)

	reclaimDone := make(chan struct{})
	go eng.RunPortReclamation(reclaimDone, time.Second)
	defer close(reclaimDone)

	uploadDone := make(chan struct{})
	go eng.RunUploadWorker(uploadDone)
	defer close(uploadDone)

	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg, eng); err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	grpcServer := newGRPCServer(cfg)
	rpcapi.RegisterMediaServiceServer(grpcServer, rpcapi.NewServer(eng))

	grpcListenAddr := fmt.Sprintf("%s:%d", cfg.GRPCBindAddr, cfg.GRPCPort)
	listener, err := net.Listen("tcp", grpcListenAddr)
	if err != nil {
		logger.Error("failed to listen", "address", grpcListenAddr, "error", err)
		os.Exit(1)
	}

	go func() {
		logger.Info("gRPC server listening", "address", grpcListenAddr)
		if err := grpcServer.Serve(listener); err != nil {
			logger.Error("gRPC server error", "error", err)
		}
	}()

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: httpapi.NewServer(reg),
	}
	go func() {
		logger.Info("HTTP metrics/health server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
	logger.Info("media engine stopped")
}

// newGRPCServer builds the gRPC server with keepalive, a logging
// interceptor that also feeds metrics.GRPCRequestsTotal, and optional
// (mutual) TLS when certificate paths are configured.
func newGRPCServer(cfg *config.Config) *grpc.Server {
	opts := []grpc.ServerOption{
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 10 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             10 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.UnaryInterceptor(loggingAndMetricsUnaryInterceptor),
		grpc.StreamInterceptor(loggingStreamInterceptor),
	}

	if cfg.GRPCTLSCertPath != "" {
		creds, err := loadTLSCredentials(cfg)
		if err != nil {
			logger.Error("failed to load TLS credentials", "error", err)
			os.Exit(1)
		}
		opts = append(opts, grpc.Creds(creds))
	}

	return grpc.NewServer(opts...)
}

func loadTLSCredentials(cfg *config.Config) (credentials.TransportCredentials, error) {
	cert, err := tls.LoadX509KeyPair(cfg.GRPCTLSCertPath, cfg.GRPCTLSKeyPath)
	if err != nil {
		return nil, fmt.Errorf("load server keypair: %w", err)
	}

	tlsCfg := &tls.Config{Certificates: []tls.Certificate{cert}}

	if cfg.GRPCClientCAPath != "" {
		caBytes, err := os.ReadFile(cfg.GRPCClientCAPath)
		if err != nil {
			return nil, fmt.Errorf("read client CA: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caBytes) {
			return nil, fmt.Errorf("no certificates parsed from client CA bundle")
		}
		tlsCfg.ClientCAs = pool
		tlsCfg.ClientAuth = tls.RequireAndVerifyClientCert
	}

	return credentials.NewTLS(tlsCfg), nil
}

func loggingAndMetricsUnaryInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	peerAddr := "unknown"
	if p, ok := peer.FromContext(ctx); ok {
		peerAddr = p.Addr.String()
	}
	logger.Debug("incoming gRPC request", "method", info.FullMethod, "peer", peerAddr)

	resp, err := handler(ctx, req)
	metrics.GRPCRequestsTotal.WithLabelValues(info.FullMethod, statusCodeLabel(err)).Inc()
	return resp, err
}

func loggingStreamInterceptor(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	peerAddr := "unknown"
	if p, ok := peer.FromContext(ss.Context()); ok {
		peerAddr = p.Addr.String()
	}
	logger.Debug("incoming gRPC stream", "method", info.FullMethod, "peer", peerAddr)

	err := handler(srv, ss)
	metrics.GRPCRequestsTotal.WithLabelValues(info.FullMethod, statusCodeLabel(err)).Inc()
	return err
}

func statusCodeLabel(err error) string {
	return status.Code(err).String()
}
