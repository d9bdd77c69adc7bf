package discord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/piecebot/internal/core"
	"github.com/keshon/piecebot/pkg/retrylimit"
)

// typingInterval is how often the typing indicator is refreshed. Discord
// shows it for ten seconds.
const typingInterval = 8 * time.Second

// ErrNotCached is returned for lookups the REST API cannot serve.
var ErrNotCached = errors.New("not in cache")

// Session adapts a discordgo session to core.Discord. Lookups read the state
// cache first; REST calls go through a shared retrier.
type Session struct {
	dg    *discordgo.Session
	retry *retrylimit.Retrier
}

var _ core.Discord = (*Session)(nil)

// NewSession wraps dg. logf receives one line per retried request.
func NewSession(dg *discordgo.Session, logf func(format string, args ...any)) *Session {
	cfg := retrylimit.DefaultConfig()
	cfg.Classify = classify
	cfg.Logf = logf
	return &Session{
		dg:    dg,
		retry: retrylimit.New(retrylimit.NewAdaptiveLimiter(20, 2, 50, 1, 0.5), cfg),
	}
}

// restStatus exposes the HTTP status of a discordgo REST error.
type restStatus struct{ *discordgo.RESTError }

func (r restStatus) StatusCode() int {
	if r.Response == nil {
		return 0
	}
	return r.Response.StatusCode
}

func classify(err error) retrylimit.Class {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) {
		return retrylimit.ClassifyStatus(restStatus{rest})
	}
	var rl *discordgo.RateLimitError
	if errors.As(err, &rl) {
		return retrylimit.Throttled
	}
	return retrylimit.Fatal
}

// call runs fn through the retrier, passing the request context along.
func call[T any](ctx context.Context, s *Session, fn func(opts ...discordgo.RequestOption) (T, error)) (T, error) {
	var out T
	err := s.retry.Do(ctx, func() error {
		var err error
		out, err = fn(discordgo.WithContext(ctx))
		return err
	})
	return out, err
}

func (s *Session) SelfID() string {
	if s.dg.State == nil || s.dg.State.User == nil {
		return ""
	}
	return s.dg.State.User.ID
}

// =============================================================================
// Lookups
// =============================================================================

func (s *Session) User(ctx context.Context, userID string) (*discordgo.User, error) {
	if m, ok := s.cachedUser(userID); ok {
		return m, nil
	}
	return call(ctx, s, func(opts ...discordgo.RequestOption) (*discordgo.User, error) {
		return s.dg.User(userID, opts...)
	})
}

func (s *Session) cachedUser(userID string) (*discordgo.User, bool) {
	if s.dg.State == nil {
		return nil, false
	}
	s.dg.State.RLock()
	defer s.dg.State.RUnlock()
	for _, g := range s.dg.State.Guilds {
		for _, m := range g.Members {
			if m.User != nil && m.User.ID == userID {
				return m.User, true
			}
		}
	}
	return nil, false
}

func (s *Session) Member(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	if m, ok := s.CachedMember(guildID, userID); ok {
		return m, nil
	}
	return call(ctx, s, func(opts ...discordgo.RequestOption) (*discordgo.Member, error) {
		return s.dg.GuildMember(guildID, userID, opts...)
	})
}

func (s *Session) CachedMember(guildID, userID string) (*discordgo.Member, bool) {
	if s.dg.State == nil {
		return nil, false
	}
	m, err := s.dg.State.Member(guildID, userID)
	return m, err == nil
}

func (s *Session) Channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	if s.dg.State != nil {
		if ch, err := s.dg.State.Channel(channelID); err == nil {
			return ch, nil
		}
	}
	return call(ctx, s, func(opts ...discordgo.RequestOption) (*discordgo.Channel, error) {
		return s.dg.Channel(channelID, opts...)
	})
}

func (s *Session) Guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	if s.dg.State != nil {
		if g, err := s.dg.State.Guild(guildID); err == nil {
			return g, nil
		}
	}
	return call(ctx, s, func(opts ...discordgo.RequestOption) (*discordgo.Guild, error) {
		return s.dg.Guild(guildID, opts...)
	})
}

func (s *Session) Guilds() []*discordgo.Guild {
	if s.dg.State == nil {
		return nil
	}
	s.dg.State.RLock()
	defer s.dg.State.RUnlock()
	out := make([]*discordgo.Guild, len(s.dg.State.Guilds))
	copy(out, s.dg.State.Guilds)
	return out
}

func (s *Session) Roles(ctx context.Context, guildID string) ([]*discordgo.Role, error) {
	if s.dg.State != nil {
		if g, err := s.dg.State.Guild(guildID); err == nil && len(g.Roles) > 0 {
			return g.Roles, nil
		}
	}
	return call(ctx, s, func(opts ...discordgo.RequestOption) ([]*discordgo.Role, error) {
		return s.dg.GuildRoles(guildID, opts...)
	})
}

// Emoji finds a custom emoji in the guilds the bot shares. There is no REST
// lookup by id alone.
func (s *Session) Emoji(_ context.Context, emojiID string) (*discordgo.Emoji, error) {
	if s.dg.State != nil {
		s.dg.State.RLock()
		defer s.dg.State.RUnlock()
		for _, g := range s.dg.State.Guilds {
			for _, e := range g.Emojis {
				if e.ID == emojiID {
					return e, nil
				}
			}
		}
	}
	return nil, fmt.Errorf("emoji %s: %w", emojiID, ErrNotCached)
}

func (s *Session) ChannelMessage(ctx context.Context, channelID, messageID string) (*discordgo.Message, error) {
	if s.dg.State != nil {
		if m, err := s.dg.State.Message(channelID, messageID); err == nil {
			return m, nil
		}
	}
	return call(ctx, s, func(opts ...discordgo.RequestOption) (*discordgo.Message, error) {
		return s.dg.ChannelMessage(channelID, messageID, opts...)
	})
}

func (s *Session) ChannelPermissions(ctx context.Context, userID, channelID string) (int64, error) {
	if s.dg.State != nil {
		if p, err := s.dg.State.UserChannelPermissions(userID, channelID); err == nil {
			return p, nil
		}
	}
	return call(ctx, s, func(opts ...discordgo.RequestOption) (int64, error) {
		return s.dg.UserChannelPermissions(userID, channelID, opts...)
	})
}

// =============================================================================
// Actions
// =============================================================================

func (s *Session) Send(ctx context.Context, channelID string, data *discordgo.MessageSend) (*discordgo.Message, error) {
	return call(ctx, s, func(opts ...discordgo.RequestOption) (*discordgo.Message, error) {
		return s.dg.ChannelMessageSendComplex(channelID, data, opts...)
	})
}

func (s *Session) Edit(ctx context.Context, channelID, messageID, content string) (*discordgo.Message, error) {
	return call(ctx, s, func(opts ...discordgo.RequestOption) (*discordgo.Message, error) {
		return s.dg.ChannelMessageEdit(channelID, messageID, content, opts...)
	})
}

func (s *Session) UserChannel(ctx context.Context, userID string) (*discordgo.Channel, error) {
	return call(ctx, s, func(opts ...discordgo.RequestOption) (*discordgo.Channel, error) {
		return s.dg.UserChannelCreate(userID, opts...)
	})
}

func (s *Session) Delete(ctx context.Context, channelID, messageID string) error {
	_, err := call(ctx, s, func(opts ...discordgo.RequestOption) (struct{}, error) {
		return struct{}{}, s.dg.ChannelMessageDelete(channelID, messageID, opts...)
	})
	return err
}

func (s *Session) LeaveGuild(ctx context.Context, guildID string) error {
	_, err := call(ctx, s, func(opts ...discordgo.RequestOption) (struct{}, error) {
		return struct{}{}, s.dg.GuildLeave(guildID, opts...)
	})
	return err
}

// StartTyping shows the typing indicator until stop is called.
func (s *Session) StartTyping(channelID string) (stop func()) {
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(typingInterval)
		defer t.Stop()
		for {
			_ = s.dg.ChannelTyping(channelID)
			select {
			case <-done:
				return
			case <-t.C:
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

func (s *Session) Latency() time.Duration {
	return s.dg.HeartbeatLatency()
}
