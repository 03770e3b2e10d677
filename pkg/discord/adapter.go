package discord

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	apperrors "smsgate/internal/errors"
	"smsgate/internal/models"
	"smsgate/internal/service"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

// sessionAPI is the slice of *discordgo.Session the adapter calls
type sessionAPI interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
}

// ChatHandler receives inbound chat messages
type ChatHandler interface {
	HandleChatMessage(ctx context.Context, msg models.ChatMessage)
	SetSelfID(id string)
}

// guildStreamTimeout bounds how long readiness waits for the guilds listed
// in Ready to arrive as GuildCreate events
const guildStreamTimeout = 10 * time.Second

// Adapter connects the relay to Discord. It satisfies service.Directory and
// service.Messenger. The readiness latch opens once every guild announced in
// the gateway Ready event has streamed in, or after guildStreamTimeout.
type Adapter struct {
	session   *discordgo.Session
	api       sessionAPI
	state     *discordgo.State
	readiness *service.Readiness
	handler   ChatHandler
	logger    *logrus.Logger
	ctx       context.Context

	mu         sync.Mutex
	pending    map[string]struct{}
	guildWait  time.Duration
	guildTimer *time.Timer
}

var (
	_ service.Directory = (*Adapter)(nil)
	_ service.Messenger = (*Adapter)(nil)
)

// NewAdapter creates a bot session for token. Nothing connects until Start.
func NewAdapter(token string, readiness *service.Readiness, handler ChatHandler, logger *logrus.Logger) (*Adapter, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	a := newAdapter(s, s.State, readiness, handler, logger)
	a.session = s
	s.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) { a.handleReady(r) })
	s.AddHandler(func(_ *discordgo.Session, g *discordgo.GuildCreate) { a.handleGuildCreate(g) })
	s.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) { a.handleMessageCreate(m) })
	return a, nil
}

func newAdapter(api sessionAPI, state *discordgo.State, readiness *service.Readiness, handler ChatHandler, logger *logrus.Logger) *Adapter {
	return &Adapter{
		api:       api,
		state:     state,
		readiness: readiness,
		handler:   handler,
		logger:    logger,
		ctx:       context.Background(),
		guildWait: guildStreamTimeout,
	}
}

// Start opens the gateway connection and blocks until ctx is cancelled
func (a *Adapter) Start(ctx context.Context) error {
	if a.session == nil {
		return stderrors.New("discord: session not created")
	}
	a.ctx = ctx

	if err := a.session.Open(); err != nil {
		return fmt.Errorf("discord: open session: %w", err)
	}
	a.logger.Info("Connecting to Discord gateway")
	defer func() {
		if err := a.session.Close(); err != nil {
			a.logger.WithError(err).Warn("Failed to close Discord session")
		}
	}()

	<-ctx.Done()
	a.logger.Info("Discord session closing")
	return nil
}

func (a *Adapter) handleReady(r *discordgo.Ready) {
	if r.User != nil {
		a.handler.SetSelfID(r.User.ID)
	}
	if a.readiness.IsSet() {
		a.logger.Info("Discord session resumed")
		return
	}

	a.mu.Lock()
	a.pending = make(map[string]struct{}, len(r.Guilds))
	for _, g := range r.Guilds {
		if g != nil && g.Unavailable {
			a.pending[g.ID] = struct{}{}
		}
	}
	waiting := len(a.pending)
	if waiting > 0 {
		if a.guildTimer != nil {
			a.guildTimer.Stop()
		}
		a.guildTimer = time.AfterFunc(a.guildWait, a.guildStreamExpired)
	}
	a.mu.Unlock()

	a.logger.WithField(service.LogFieldCount, len(r.Guilds)).Info("Discord connection ready")
	if waiting == 0 {
		a.openReadiness()
		return
	}
	a.logger.WithField(service.LogFieldCount, waiting).Debug("Waiting for guilds to stream in")
}

func (a *Adapter) handleGuildCreate(g *discordgo.GuildCreate) {
	if g == nil || g.Guild == nil {
		return
	}
	a.mu.Lock()
	if a.pending == nil {
		a.mu.Unlock()
		return
	}
	delete(a.pending, g.ID)
	done := len(a.pending) == 0
	if done {
		a.pending = nil
		if a.guildTimer != nil {
			a.guildTimer.Stop()
			a.guildTimer = nil
		}
	}
	a.mu.Unlock()

	if done {
		a.openReadiness()
	}
}

func (a *Adapter) guildStreamExpired() {
	a.mu.Lock()
	missing := len(a.pending)
	a.pending = nil
	a.guildTimer = nil
	a.mu.Unlock()

	if missing > 0 {
		a.logger.WithField(service.LogFieldCount, missing).Warn("Guilds did not arrive before timeout, marking ready anyway")
	}
	a.openReadiness()
}

func (a *Adapter) openReadiness() {
	if a.readiness.IsSet() {
		return
	}
	a.readiness.Set()
	a.logger.Info("Discord guild state loaded")
}

func (a *Adapter) handleMessageCreate(m *discordgo.MessageCreate) {
	if m.Message == nil || m.Author == nil {
		return
	}
	// Skip our own echoes before touching state
	if a.state != nil && a.state.User != nil && m.Author.ID == a.state.User.ID {
		return
	}

	a.handler.HandleChatMessage(a.ctx, a.toChatMessage(m.Message))
}

func (a *Adapter) toChatMessage(m *discordgo.Message) models.ChatMessage {
	msg := models.ChatMessage{
		ID:         m.ID,
		AuthorID:   m.Author.ID,
		AuthorName: displayName(m),
		ChannelID:  m.ChannelID,
		GuildID:    m.GuildID,
		Direct:     m.GuildID == "",
		Content:    m.Content,
	}
	if a.state != nil {
		if ch, err := a.state.Channel(m.ChannelID); err == nil {
			msg.ChannelName = ch.Name
			if ch.Type == discordgo.ChannelTypeDM || ch.Type == discordgo.ChannelTypeGroupDM {
				msg.Direct = true
			}
		}
	}
	return msg
}

// displayName prefers the guild nickname, then the global display name
func displayName(m *discordgo.Message) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	if m.Author.GlobalName != "" {
		return m.Author.GlobalName
	}
	return m.Author.Username
}

// HasChannel reports whether the bot can see a channel with id
func (a *Adapter) HasChannel(ctx context.Context, id string) (bool, error) {
	_, err := a.state.Channel(id)
	if stderrors.Is(err, discordgo.ErrStateNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewPlatformError("channel lookup", err)
	}
	return true, nil
}

// HasUser asks the Discord API for a user with id. Unknown ids come back as
// 404 and are reported as not found.
func (a *Adapter) HasUser(ctx context.Context, id string) (bool, error) {
	_, err := a.api.User(id, discordgo.WithContext(ctx))
	if err == nil {
		return true, nil
	}
	var restErr *discordgo.RESTError
	if stderrors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return false, nil
	}
	return false, apperrors.NewPlatformError("user lookup", err)
}

// Channels lists guild channels in state order, skipping categories
func (a *Adapter) Channels(ctx context.Context) ([]service.ChannelRef, error) {
	a.state.RLock()
	defer a.state.RUnlock()

	var refs []service.ChannelRef
	for _, g := range a.state.Guilds {
		for _, ch := range g.Channels {
			if ch.Type == discordgo.ChannelTypeGuildCategory {
				continue
			}
			refs = append(refs, service.ChannelRef{ID: ch.ID, Name: ch.Name, GuildID: g.ID})
		}
	}
	return refs, nil
}

func (a *Adapter) SendToChannel(ctx context.Context, channelID, content string) error {
	if _, err := a.api.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx)); err != nil {
		return apperrors.NewPlatformError("channel send", err)
	}
	return nil
}

// SendToChannelByName sends to the first channel named name in state order
func (a *Adapter) SendToChannelByName(ctx context.Context, name, content string) error {
	channels, err := a.Channels(ctx)
	if err != nil {
		return err
	}
	for _, ch := range channels {
		if ch.Name == name {
			return a.SendToChannel(ctx, ch.ID, content)
		}
	}
	return apperrors.NewPlatformError("channel send", fmt.Errorf("channel %q no longer exists", name))
}

func (a *Adapter) SendToUser(ctx context.Context, userID, content string) error {
	dm, err := a.api.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return apperrors.NewPlatformError("open direct message", err)
	}
	return a.SendToChannel(ctx, dm.ID, content)
}
