package service

import (
	"context"
	"errors"
	"testing"

	"smsgate/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestResolver_Resolve(t *testing.T) {
	tests := []struct {
		name      string
		aliases   map[string]string
		directory *fakeDirectory
		alias     string
		want      models.ResolvedTarget
		wantCalls []string
	}{
		{
			name:      "alias dereferenced to channel id",
			aliases:   map[string]string{"sis": "778899"},
			directory: newFakeDirectory().withChannel("778899", "general"),
			alias:     "sis",
			want:      models.ChannelTarget("778899"),
			wantCalls: []string{"HasChannel:778899"},
		},
		{
			name:      "alias dereferenced to user id",
			aliases:   map[string]string{"sis": "778899"},
			directory: newFakeDirectory().withUser("778899"),
			alias:     "sis",
			want:      models.UserTarget("778899"),
			wantCalls: []string{"HasChannel:778899", "HasUser:778899"},
		},
		{
			name:      "numeric id matching nothing",
			aliases:   map[string]string{"sis": "778899"},
			directory: newFakeDirectory(),
			alias:     "sis",
			want:      models.UnresolvedTarget(),
			wantCalls: []string{"HasChannel:778899", "HasUser:778899"},
		},
		{
			name:      "channel wins over user with same id",
			directory: newFakeDirectory().withChannel("42", "ops").withUser("42"),
			alias:     "42",
			want:      models.ChannelTarget("42"),
			wantCalls: []string{"HasChannel:42"},
		},
		{
			name:      "unknown alias used as raw token",
			aliases:   map[string]string{"sis": "778899"},
			directory: newFakeDirectory().withChannel("1", "general"),
			alias:     "general",
			want:      models.ChannelNameTarget("general"),
			wantCalls: []string{"Channels"},
		},
		{
			name:      "alias dereferenced to channel name",
			aliases:   map[string]string{"team": "dev-chat"},
			directory: newFakeDirectory().withChannel("1", "general").withChannel("2", "dev-chat"),
			alias:     "team",
			want:      models.ChannelNameTarget("dev-chat"),
			wantCalls: []string{"Channels"},
		},
		{
			name:      "name match is case sensitive",
			directory: newFakeDirectory().withChannel("1", "General"),
			alias:     "general",
			want:      models.UnresolvedTarget(),
			wantCalls: []string{"Channels"},
		},
		{
			name:      "names never resolve to users",
			directory: newFakeDirectory().withUser("alice").withChannel("1", "general"),
			alias:     "alice",
			want:      models.UnresolvedTarget(),
			wantCalls: []string{"Channels"},
		},
		{
			name:      "mixed token treated as name",
			directory: newFakeDirectory().withChannel("123abc", "x"),
			alias:     "123abc",
			want:      models.UnresolvedTarget(),
			wantCalls: []string{"Channels"},
		},
		{
			name:      "numeric-looking channel name not matched by id",
			directory: newFakeDirectory().withChannel("1", "2024"),
			alias:     "2024",
			want:      models.UnresolvedTarget(),
			wantCalls: []string{"HasChannel:2024", "HasUser:2024"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.aliases, tt.directory, quietLogger())
			got := r.Resolve(context.Background(), tt.alias)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCalls, tt.directory.Calls())
		})
	}
}

func TestResolver_FirstChannelNameInGuildOrderWins(t *testing.T) {
	dir := newFakeDirectory()
	dir.channels = []ChannelRef{
		{ID: "10", Name: "general", GuildID: "g1"},
		{ID: "20", Name: "general", GuildID: "g2"},
	}
	r := NewResolver(nil, dir, quietLogger())

	got := r.Resolve(context.Background(), "general")
	assert.Equal(t, models.ChannelNameTarget("general"), got)
}

func TestResolver_Idempotent(t *testing.T) {
	dir := newFakeDirectory().withChannel("778899", "general").withUser("5")
	r := NewResolver(map[string]string{"sis": "778899", "bro": "5"}, dir, quietLogger())

	for _, alias := range []string{"sis", "bro", "general", "nobody"} {
		first := r.Resolve(context.Background(), alias)
		second := r.Resolve(context.Background(), alias)
		assert.Equal(t, first, second, alias)
	}
}

func TestResolver_LookupErrorFallsThrough(t *testing.T) {
	dir := newFakeDirectory().withUser("99")
	dir.channelErr = errors.New("rate limited")
	r := NewResolver(nil, dir, quietLogger())

	assert.Equal(t, models.UserTarget("99"), r.Resolve(context.Background(), "99"))

	dir.userErr = errors.New("rate limited")
	assert.Equal(t, models.UnresolvedTarget(), r.Resolve(context.Background(), "99"))

	dir.listErr = errors.New("offline")
	assert.Equal(t, models.UnresolvedTarget(), r.Resolve(context.Background(), "general"))
}

func TestResolver_AliasTableCopied(t *testing.T) {
	aliases := map[string]string{"sis": "1"}
	r := NewResolver(aliases, newFakeDirectory(), quietLogger())
	aliases["sis"] = "2"

	assert.Equal(t, "1", r.Token("sis"))
	assert.Equal(t, "raw", r.Token("raw"))
}

func TestIsNumericID(t *testing.T) {
	assert.True(t, isNumericID("0"))
	assert.True(t, isNumericID("123456789012345678"))
	assert.False(t, isNumericID(""))
	assert.False(t, isNumericID("-1"))
	assert.False(t, isNumericID("12 3"))
	assert.False(t, isNumericID("١٢٣"))
}
