package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
)

// EmbeddedNATSConfig configures the in-process JetStream server used when
// no external NATS deployment exists.
type EmbeddedNATSConfig struct {
	Port     int
	StoreDir string
}

// EmbeddedNATS runs a JetStream-enabled NATS server inside the serve
// process so single-host deployments get the object store without running
// a separate broker.
type EmbeddedNATS struct {
	cfg    EmbeddedNATSConfig
	server *natsserver.Server
}

func NewEmbeddedNATS(cfg EmbeddedNATSConfig) *EmbeddedNATS {
	return &EmbeddedNATS{cfg: cfg}
}

func (e *EmbeddedNATS) Start() error {
	port := e.cfg.Port
	if port == 0 {
		port = 4222
	}

	storeDir := e.cfg.StoreDir
	if storeDir == "" {
		dataDir, err := defaultDataDir()
		if err != nil {
			return fmt.Errorf("failed to determine data directory: %w", err)
		}
		storeDir = filepath.Join(dataDir, "nats")
	}

	if err := os.MkdirAll(storeDir, 0o755); err != nil {
		return fmt.Errorf("failed to create NATS store directory %s: %w", storeDir, err)
	}

	opts := &natsserver.Options{
		Host:       "127.0.0.1",
		Port:       port,
		JetStream:  true,
		StoreDir:   storeDir,
		MaxPayload: 32 * 1024 * 1024,
		ServerName: "greenroom-artifacts",
		NoSigs:     true,
	}

	server, err := natsserver.NewServer(opts)
	if err != nil {
		return fmt.Errorf("failed to create embedded NATS server: %w", err)
	}

	server.ConfigureLogger()
	go server.Start()

	if !server.ReadyForConnections(10 * time.Second) {
		server.Shutdown()
		return fmt.Errorf("embedded NATS server failed to start within timeout")
	}

	e.server = server
	return nil
}

func (e *EmbeddedNATS) Shutdown() {
	if e.server != nil {
		e.server.Shutdown()
		e.server.WaitForShutdown()
		e.server = nil
	}
}

func (e *EmbeddedNATS) ClientURL() string {
	if e.server == nil {
		return ""
	}
	return e.server.ClientURL()
}

func defaultDataDir() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome != "" {
		return filepath.Join(dataHome, "greenroom"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, ".local", "share", "greenroom"), nil
}
