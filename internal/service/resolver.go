package service

import (
	"context"

	apperrors "smsgate/internal/errors"
	"smsgate/internal/models"

	"github.com/sirupsen/logrus"
)

// ChannelRef is a channel known to the chat platform
type ChannelRef struct {
	ID      string
	Name    string
	GuildID string
}

// Directory answers lookups against live chat platform state
type Directory interface {
	HasChannel(ctx context.Context, id string) (bool, error)
	HasUser(ctx context.Context, id string) (bool, error)
	// Channels lists every known channel in platform guild order
	Channels(ctx context.Context) ([]ChannelRef, error)
}

// resolveStep is one attempt in the resolution chain. ok is false when the
// step did not match and the next step should run.
type resolveStep func(ctx context.Context, token string) (target models.ResolvedTarget, ok bool, err error)

// Resolver maps SMS aliases to chat delivery targets
type Resolver struct {
	aliases   map[string]string
	directory Directory
	logger    *logrus.Logger
}

// NewResolver copies the alias table so the resolver never observes later
// mutation of the caller's map.
func NewResolver(aliases map[string]string, directory Directory, logger *logrus.Logger) *Resolver {
	table := make(map[string]string, len(aliases))
	for k, v := range aliases {
		table[k] = v
	}
	return &Resolver{
		aliases:   table,
		directory: directory,
		logger:    logger,
	}
}

// Token dereferences alias through the alias table, falling back to the
// alias itself when it has no entry.
func (r *Resolver) Token(alias string) string {
	if mapped, ok := r.aliases[alias]; ok {
		return mapped
	}
	return alias
}

// Resolve runs the resolution chain for alias. Numeric tokens try channel id
// then user id; other tokens try channel name only. The first match wins.
func (r *Resolver) Resolve(ctx context.Context, alias string) models.ResolvedTarget {
	token := r.Token(alias)

	var steps []resolveStep
	if isNumericID(token) {
		steps = []resolveStep{r.channelByID, r.userByID}
	} else {
		steps = []resolveStep{r.channelByName}
	}

	for _, step := range steps {
		target, ok, err := step(ctx, token)
		if err != nil {
			// A failed lookup counts as a miss for that step only
			r.logger.WithFields(logrus.Fields{
				LogFieldAlias:     alias,
				LogFieldToken:     token,
				LogFieldErrorCode: apperrors.GetCode(err),
			}).WithError(err).Warn("Directory lookup failed during resolution")
			continue
		}
		if ok {
			return target
		}
	}

	return models.UnresolvedTarget()
}

func (r *Resolver) channelByID(ctx context.Context, token string) (models.ResolvedTarget, bool, error) {
	found, err := r.directory.HasChannel(ctx, token)
	if err != nil || !found {
		return models.ResolvedTarget{}, false, err
	}
	return models.ChannelTarget(token), true, nil
}

func (r *Resolver) userByID(ctx context.Context, token string) (models.ResolvedTarget, bool, error) {
	found, err := r.directory.HasUser(ctx, token)
	if err != nil || !found {
		return models.ResolvedTarget{}, false, err
	}
	return models.UserTarget(token), true, nil
}

func (r *Resolver) channelByName(ctx context.Context, token string) (models.ResolvedTarget, bool, error) {
	channels, err := r.directory.Channels(ctx)
	if err != nil {
		return models.ResolvedTarget{}, false, err
	}
	for _, ch := range channels {
		if ch.Name == token {
			return models.ChannelNameTarget(ch.Name), true, nil
		}
	}
	return models.ResolvedTarget{}, false, nil
}

// isNumericID reports whether token is non-empty and all ASCII digits
func isNumericID(token string) bool {
	if token == "" {
		return false
	}
	for i := 0; i < len(token); i++ {
		if token[i] < '0' || token[i] > '9' {
			return false
		}
	}
	return true
}
