// Package bus publishes finished transcripts over NATS so other local tools
// can react to dictation. The bus is optional: when disabled the daemon
// works entirely standalone.
package bus

import (
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hushkey/hushkey/internal/config"
	"github.com/hushkey/hushkey/internal/protocol"
	"github.com/nats-io/nats.go"
)

// Publisher wraps the NATS connection with transcript helpers.
type Publisher struct {
	conn *nats.Conn
	log  *slog.Logger
}

func Connect(cfg config.BusConfig, log *slog.Logger) (*Publisher, error) {
	if len(cfg.Servers) == 0 {
		return nil, errors.New("no NATS servers configured")
	}

	options := []nats.Option{
		nats.Name("hushkeyd"),
		nats.Timeout(time.Duration(cfg.ConnectTimeout) * time.Millisecond),
	}

	if cfg.Username != "" || cfg.Password != "" {
		options = append(options, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.Token != "" {
		options = append(options, nats.Token(cfg.Token))
	}
	if cfg.TLSInsecure {
		options = append(options, nats.Secure(&tls.Config{InsecureSkipVerify: true}))
	}

	url := strings.Join(cfg.Servers, ",")
	conn, err := nats.Connect(url, options...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	log.Info("connected to NATS", slog.String("servers", url))

	return &Publisher{conn: conn, log: log}, nil
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.log.Info("closing NATS connection")
	p.conn.Drain()
	p.conn.Close()
}

func (p *Publisher) Healthy() bool {
	return p != nil && p.conn != nil && p.conn.Status() == nats.CONNECTED
}

// PublishTranscript broadcasts a finished transcript. Publish failures are
// reported to the caller but must never abort the dictation pipeline.
func (p *Publisher) PublishTranscript(tr protocol.Transcript) error {
	if p == nil {
		return nil
	}
	payload, err := json.Marshal(tr)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	if err := p.conn.Publish(protocol.SubjectTranscriptFinal, payload); err != nil {
		return fmt.Errorf("publish transcript: %w", err)
	}
	return nil
}
