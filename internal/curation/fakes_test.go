package curation

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/lorekeep/curator/internal/database/types"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	postChannelID   = uint64(100)
	oddJobChannelID = uint64(200)
	threadChannelID = uint64(300)

	superuserRole = "Curator"
	featureEmoji  = "⭐"
	publishEmoji  = "✅"
)

// fakeStore is an in-memory Store with the same contracts as the bun
// implementation: ErrNotFound on missing lookups, nil-when-none payment
// and earnings reads, idempotent reaction upserts.
type fakeStore struct {
	contents      map[uint64]*types.Content
	categories    map[uint64][]string
	reactions     []*types.Reaction
	payments      []*types.Payment
	earnings      map[string]*types.ContentEarnings
	users         map[uint64]*types.User
	emojis        map[string]*types.Emoji
	categoryRules map[string]*types.CategoryRule
	paymentRules  map[string]*types.PaymentRule
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		contents:      make(map[uint64]*types.Content),
		categories:    make(map[uint64][]string),
		earnings:      make(map[string]*types.ContentEarnings),
		users:         make(map[uint64]*types.User),
		emojis:        make(map[string]*types.Emoji),
		categoryRules: make(map[string]*types.CategoryRule),
		paymentRules:  make(map[string]*types.PaymentRule),
	}
}

func earningsKey(contentID uint64, unit string) string {
	return fmt.Sprintf("%d|%s", contentID, unit)
}

func (s *fakeStore) ContentByID(_ context.Context, messageID uint64) (*types.Content, error) {
	content, ok := s.contents[messageID]
	if !ok {
		return nil, ErrNotFound
	}

	copied := *content

	return &copied, nil
}

func (s *fakeStore) SaveContent(_ context.Context, content *types.Content) error {
	copied := *content
	s.contents[content.MessageID] = &copied

	return nil
}

func (s *fakeStore) SetPublished(_ context.Context, messageID uint64, published bool) error {
	content, ok := s.contents[messageID]
	if !ok {
		return ErrNotFound
	}

	content.IsPublished = published

	return nil
}

func (s *fakeStore) SetFeatured(_ context.Context, messageID uint64, featured bool) error {
	content, ok := s.contents[messageID]
	if !ok {
		return ErrNotFound
	}

	content.IsFeatured = featured

	return nil
}

func (s *fakeStore) Categories(_ context.Context, contentID uint64) ([]string, error) {
	return slices.Clone(s.categories[contentID]), nil
}

func (s *fakeStore) AddCategory(_ context.Context, contentID uint64, name string) error {
	if !slices.Contains(s.categories[contentID], name) {
		s.categories[contentID] = append(s.categories[contentID], name)
	}

	return nil
}

func (s *fakeStore) RemoveCategory(_ context.Context, contentID uint64, name string) error {
	s.categories[contentID] = slices.DeleteFunc(s.categories[contentID], func(c string) bool {
		return c == name
	})

	return nil
}

func (s *fakeStore) ReplaceCategories(_ context.Context, contentID uint64, names []string) error {
	s.categories[contentID] = slices.Clone(names)

	return nil
}

func (s *fakeStore) UpsertReaction(_ context.Context, contentID, userID uint64, emojiKey string) (*types.Reaction, error) {
	for _, reaction := range s.reactions {
		if reaction.ContentID == contentID && reaction.UserID == userID && reaction.EmojiKey == emojiKey {
			copied := *reaction

			return &copied, nil
		}
	}

	reaction := &types.Reaction{
		ID:        uuid.New(),
		ContentID: contentID,
		UserID:    userID,
		EmojiKey:  emojiKey,
		CreatedAt: time.Now(),
	}
	s.reactions = append(s.reactions, reaction)

	copied := *reaction

	return &copied, nil
}

func (s *fakeStore) DeleteReaction(_ context.Context, contentID, userID uint64, emojiKey string) error {
	s.reactions = slices.DeleteFunc(s.reactions, func(r *types.Reaction) bool {
		return r.ContentID == contentID && r.UserID == userID && r.EmojiKey == emojiKey
	})

	return nil
}

func (s *fakeStore) ReactionsByContent(_ context.Context, contentID uint64) ([]*types.Reaction, error) {
	var out []*types.Reaction

	for _, reaction := range s.reactions {
		if reaction.ContentID == contentID {
			copied := *reaction
			out = append(out, &copied)
		}
	}

	return out, nil
}

func (s *fakeStore) CountReactions(_ context.Context, contentID uint64) (int, error) {
	count := 0

	for _, reaction := range s.reactions {
		if reaction.ContentID == contentID {
			count++
		}
	}

	return count, nil
}

func (s *fakeStore) CreatePayment(_ context.Context, payment *types.Payment) error {
	copied := *payment
	if copied.ID == uuid.Nil {
		copied.ID = uuid.New()
	}

	copied.CreatedAt = time.Now()
	s.payments = append(s.payments, &copied)

	return nil
}

func (s *fakeStore) FirstPayment(_ context.Context, contentID uint64) (*types.Payment, error) {
	for _, payment := range s.payments {
		if payment.ContentID == contentID {
			copied := *payment

			return &copied, nil
		}
	}

	return nil, nil
}

func (s *fakeStore) PaymentByReaction(_ context.Context, reactionID uuid.UUID) (*types.Payment, error) {
	for _, payment := range s.payments {
		if payment.ReactionID == reactionID {
			copied := *payment

			return &copied, nil
		}
	}

	return nil, nil
}

func (s *fakeStore) CountPayments(_ context.Context, contentID uint64) (int, error) {
	count := 0

	for _, payment := range s.payments {
		if payment.ContentID == contentID {
			count++
		}
	}

	return count, nil
}

func (s *fakeStore) UpsertEarnings(_ context.Context, contentID uint64, unit string, total float64) error {
	s.earnings[earningsKey(contentID, unit)] = &types.ContentEarnings{
		ContentID:   contentID,
		Unit:        unit,
		TotalAmount: total,
		UpdatedAt:   time.Now(),
	}

	return nil
}

func (s *fakeStore) Earnings(_ context.Context, contentID uint64, unit string) (*types.ContentEarnings, error) {
	earnings, ok := s.earnings[earningsKey(contentID, unit)]
	if !ok {
		return nil, nil
	}

	copied := *earnings

	return &copied, nil
}

func (s *fakeStore) UpsertUser(_ context.Context, user *types.User) error {
	copied := *user
	s.users[user.ID] = &copied

	return nil
}

func (s *fakeStore) UpsertEmoji(_ context.Context, emoji *types.Emoji) error {
	copied := *emoji
	s.emojis[emoji.Key] = &copied

	return nil
}

func (s *fakeStore) CategoryRule(_ context.Context, emojiKey string) (*types.CategoryRule, error) {
	rule, ok := s.categoryRules[emojiKey]
	if !ok {
		return nil, ErrNotFound
	}

	return rule, nil
}

func (s *fakeStore) PaymentRule(_ context.Context, emojiKey string) (*types.PaymentRule, error) {
	rule, ok := s.paymentRules[emojiKey]
	if !ok {
		return nil, ErrNotFound
	}

	return rule, nil
}

func (s *fakeStore) ResetContent(_ context.Context, contentID uint64) error {
	s.reactions = slices.DeleteFunc(s.reactions, func(r *types.Reaction) bool {
		return r.ContentID == contentID
	})
	s.payments = slices.DeleteFunc(s.payments, func(p *types.Payment) bool {
		return p.ContentID == contentID
	})

	for key := range s.earnings {
		if strings.HasPrefix(key, fmt.Sprintf("%d|", contentID)) {
			delete(s.earnings, key)
		}
	}

	return nil
}

// removal records one retraction the curator performed.
type removal struct {
	MessageID uint64
	UserID    uint64
	EmojiKey  string
}

// notice records one user notification.
type notice struct {
	UserID uint64
	Reason string
}

// fakeGateway is an in-memory platform transport.
type fakeGateway struct {
	messages     map[uint64]*Message
	channels     map[uint64]*ChannelInfo
	reactionSets map[uint64]*ReactionSet
	roles        map[uint64][]string

	removed  []removal
	notified []notice
	logLines []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		messages:     make(map[uint64]*Message),
		channels:     make(map[uint64]*ChannelInfo),
		reactionSets: make(map[uint64]*ReactionSet),
		roles:        make(map[uint64][]string),
	}
}

func (g *fakeGateway) Message(_ context.Context, _, messageID uint64) (*Message, error) {
	msg, ok := g.messages[messageID]
	if !ok {
		return nil, fmt.Errorf("no message %d", messageID)
	}

	copied := *msg

	return &copied, nil
}

func (g *fakeGateway) ChannelInfo(_ context.Context, channelID uint64) (*ChannelInfo, error) {
	info, ok := g.channels[channelID]
	if !ok {
		return nil, fmt.Errorf("no channel %d", channelID)
	}

	copied := *info

	return &copied, nil
}

func (g *fakeGateway) ReactionSet(_ context.Context, _, messageID uint64) (*ReactionSet, error) {
	set, ok := g.reactionSets[messageID]
	if !ok {
		return &ReactionSet{}, nil
	}

	return set, nil
}

func (g *fakeGateway) MemberRoleNames(_ context.Context, _, userID uint64) ([]string, error) {
	return g.roles[userID], nil
}

func (g *fakeGateway) RemoveReaction(_ context.Context, _, messageID uint64, emoji EmojiRef, userID uint64) error {
	g.removed = append(g.removed, removal{
		MessageID: messageID,
		UserID:    userID,
		EmojiKey:  emoji.Key(),
	})

	return nil
}

func (g *fakeGateway) NotifyUser(_ context.Context, userID uint64, reason, _ string) error {
	g.notified = append(g.notified, notice{UserID: userID, Reason: reason})

	return nil
}

func (g *fakeGateway) NotifyLog(_ context.Context, text string) error {
	g.logLines = append(g.logLines, text)

	return nil
}

// fakeParser splits the first line into the title and the rest into the
// body, mirroring the default parser.
type fakeParser struct{}

func (fakeParser) Parse(msg *Message) (string, string, []string) {
	title, body, _ := strings.Cut(msg.Content, "\n")

	return strings.TrimSpace(title), strings.TrimSpace(body), nil
}

// newTestCurator wires a curator over the fakes with a miniredis-backed
// retraction tracker.
func newTestCurator(t *testing.T, store *fakeStore, gw *fakeGateway) (*Curator, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	logger := zap.NewNop()

	c := New(store, gw, fakeParser{}, NewTracker(client, time.Minute, logger), Config{
		PostChannels:          []uint64{postChannelID},
		OddJobChannels:        []uint64{oddJobChannelID},
		SuperuserRoles:        []string{superuserRole},
		FeatureEmoji:          featureEmoji,
		UniversalPublishEmoji: publishEmoji,
	}, logger)

	return c, mr
}
