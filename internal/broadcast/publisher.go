// Package broadcast fans out live-blog entries and timer changes to other
// processes (websocket gateways, push workers) over NATS JetStream.
//
// Publishing is best effort. Callers log failures and carry on; the database
// stays the source of truth and subscribers can always re-read it.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/matchday-live/internal/config"
	"github.com/tbourn/matchday-live/internal/domain"
)

// Event kinds, also used as the last subject token.
const (
	KindLiveBlog = "liveblog"
	KindTimer    = "timer"
)

// Publisher is implemented by every fan-out backend.
type Publisher interface {
	PublishEntries(ctx context.Context, matchID string, entries []domain.LiveBlogEntry) error
	PublishTimer(ctx context.Context, matchID string, s *domain.MatchTimerSettings) error
}

// Envelope is the JSON body of every published message.
type Envelope struct {
	Kind      string          `json:"kind"`
	MatchID   string          `json:"match_id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Noop discards everything. It is used when NATS is disabled.
type Noop struct{}

func (Noop) PublishEntries(context.Context, string, []domain.LiveBlogEntry) error { return nil }

func (Noop) PublishTimer(context.Context, string, *domain.MatchTimerSettings) error { return nil }

// msgPublisher is the subset of jetstream.JetStream used for publishing.
type msgPublisher interface {
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// JetStreamPublisher writes to subjects {prefix}.{matchID}.{kind}.
type JetStreamPublisher struct {
	nc     *nats.Conn
	js     msgPublisher
	stream string
	prefix string
	now    func() time.Time
}

const duplicateWindow = 2 * time.Hour

// NewJetStreamPublisher connects to cfg.URL and makes sure the stream exists.
func NewJetStreamPublisher(ctx context.Context, cfg config.NATSConfig) (*JetStreamPublisher, error) {
	opts := []nats.Option{
		nats.Name("matchday-live"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	if err := ensureStream(ctx, js, cfg.Stream, cfg.SubjectPrefix); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}
	return &JetStreamPublisher{nc: nc, js: js, stream: cfg.Stream, prefix: cfg.SubjectPrefix, now: time.Now}, nil
}

func ensureStream(ctx context.Context, js jetstream.JetStream, name, prefix string) error {
	sc := jetstream.StreamConfig{
		Name:        name,
		Description: "Live match updates",
		Subjects:    []string{prefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      48 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Duplicates:  duplicateWindow,
	}

	stream, err := js.Stream(ctx, name)
	if err != nil {
		if _, err = js.CreateStream(ctx, sc); err != nil {
			return fmt.Errorf("create stream: %w", err)
		}
		log.Info().Str("stream", name).Msg("created JetStream stream")
		return nil
	}
	info, err := stream.Info(ctx)
	if err != nil {
		return fmt.Errorf("get stream info: %w", err)
	}
	if info.Config.MaxAge != sc.MaxAge || info.Config.Duplicates != sc.Duplicates ||
		len(info.Config.Subjects) != 1 || info.Config.Subjects[0] != sc.Subjects[0] {
		if _, err = js.UpdateStream(ctx, sc); err != nil {
			return fmt.Errorf("update stream: %w", err)
		}
		log.Info().Str("stream", name).Msg("updated JetStream stream")
	}
	return nil
}

// Subject returns the subject a kind of update for matchID is published on.
func (p *JetStreamPublisher) Subject(matchID, kind string) string {
	return p.prefix + "." + matchID + "." + kind
}

// PublishEntries publishes one message per entry. The entry id is the
// JetStream message id, so a replayed entry is dropped by the server.
func (p *JetStreamPublisher) PublishEntries(ctx context.Context, matchID string, entries []domain.LiveBlogEntry) error {
	for i := range entries {
		if err := p.publish(ctx, KindLiveBlog, matchID, entries[i].ID, entries[i]); err != nil {
			return err
		}
	}
	return nil
}

// PublishTimer publishes the new timer state of matchID.
func (p *JetStreamPublisher) PublishTimer(ctx context.Context, matchID string, s *domain.MatchTimerSettings) error {
	if s == nil {
		return nil
	}
	msgID := "timer-" + matchID + "-" + strconv.FormatInt(s.UpdatedAt.UnixNano(), 10)
	return p.publish(ctx, KindTimer, matchID, msgID, s)
}

func (p *JetStreamPublisher) publish(ctx context.Context, kind, matchID, msgID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	data, err := json.Marshal(Envelope{Kind: kind, MatchID: matchID, Timestamp: p.now().UTC(), Payload: body})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	subject := p.Subject(matchID, kind)
	ack, err := p.js.PublishMsg(ctx, &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"Event-Kind": []string{kind},
			"Match-ID":   []string{matchID},
		},
	},
		jetstream.WithMsgID(msgID),
		jetstream.WithExpectStream(p.stream),
	)
	if err != nil {
		return fmt.Errorf("publish to JetStream: %w", err)
	}

	log.Debug().
		Str("subject", subject).
		Str("msg_id", msgID).
		Uint64("sequence", ack.Sequence).
		Bool("duplicate", ack.Duplicate).
		Msg("published to JetStream")
	return nil
}

// Close closes the NATS connection.
func (p *JetStreamPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}
