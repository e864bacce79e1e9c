package curation

import (
	"testing"
	"time"

	"github.com/lorekeep/curator/internal/database/types"
	"github.com/lorekeep/curator/internal/database/types/enum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	payEmoji     = EmojiRef{Name: "💰"}
	regularEmoji = EmojiRef{Name: "👍"}
	flagEmoji    = EmojiRef{Name: "\U0001F1EB\U0001F1F7"} // 🇫🇷
)

func seedPaymentRule(store *fakeStore, emoji EmojiRef, amount float64, unit, source string) {
	store.paymentRules[emoji.Key()] = &types.PaymentRule{
		EmojiKey:      emoji.Key(),
		Amount:        amount,
		Unit:          unit,
		FundingSource: source,
	}
}

func seedPost(store *fakeStore, id uint64, categories ...string) *types.Content {
	content := &types.Content{
		MessageID: id,
		Kind:      enum.ContentKindPost,
		ChannelID: postChannelID,
		GuildID:   1,
		Title:     "A title",
		Body:      "A body",
		CreatedAt: time.Now(),
	}
	store.contents[id] = content
	store.categories[id] = categories

	return content
}

func addEvent(messageID, channelID, userID uint64, emoji EmojiRef) Event {
	return Event{
		GuildID:   1,
		ChannelID: channelID,
		MessageID: messageID,
		UserID:    userID,
		Username:  "tester",
		Emoji:     emoji,
		Direction: enum.DirectionAdd,
	}
}

func removeEvent(messageID, channelID, userID uint64, emoji EmojiRef) Event {
	ev := addEvent(messageID, channelID, userID, emoji)
	ev.Direction = enum.DirectionRemove

	return ev
}

func TestPaymentAddPublishesPost(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	seedPost(store, 1000, "Art")
	seedPaymentRule(store, payEmoji, 5, "USD", "Fund-A")

	gw := newFakeGateway()
	gw.channels[postChannelID] = &ChannelInfo{ID: postChannelID, GuildID: 1}
	gw.roles[7] = []string{superuserRole}
	gw.reactionSets[1000] = &ReactionSet{Groups: []ReactionUsers{
		{Emoji: payEmoji, UserIDs: []uint64{7}},
	}}

	c, _ := newTestCurator(t, store, gw)
	c.HandleEvent(t.Context(), addEvent(1000, postChannelID, 7, payEmoji))

	require.Len(t, store.reactions, 1)
	require.Len(t, store.payments, 1)
	assert.InEpsilon(t, 5.0, store.payments[0].Amount, 1e-9)
	assert.Equal(t, "USD", store.payments[0].Unit)
	assert.Equal(t, store.reactions[0].ID, store.payments[0].ReactionID)

	earnings := store.earnings[earningsKey(1000, "USD")]
	require.NotNil(t, earnings)
	assert.InEpsilon(t, 5.0, earnings.TotalAmount, 1e-9)

	assert.True(t, store.contents[1000].IsPublished)
	assert.Empty(t, gw.removed)
}

func TestRegularUserPrivilegedEmojiRetracted(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	seedPost(store, 1000, "Art")
	seedPaymentRule(store, payEmoji, 5, "USD", "Fund-A")

	gw := newFakeGateway()
	gw.channels[postChannelID] = &ChannelInfo{ID: postChannelID, GuildID: 1}
	gw.reactionSets[1000] = &ReactionSet{Groups: []ReactionUsers{
		{Emoji: payEmoji, UserIDs: []uint64{8}},
	}}

	c, mr := newTestCurator(t, store, gw)
	c.HandleEvent(t.Context(), addEvent(1000, postChannelID, 8, payEmoji))

	assert.Empty(t, store.reactions)
	assert.Empty(t, store.payments)
	assert.False(t, store.contents[1000].IsPublished)

	require.Len(t, gw.removed, 1)
	assert.Equal(t, uint64(8), gw.removed[0].UserID)

	require.Len(t, gw.notified, 1)
	assert.Contains(t, gw.notified[0].Reason, "reserved")

	// The retraction is registered so its echo remove is suppressed.
	assert.True(t, mr.Exists("retraction:1000:8:"+payEmoji.Key()))
}

func TestDuplicateDeliveryConverges(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	seedPost(store, 1000, "Art")
	seedPaymentRule(store, payEmoji, 5, "USD", "Fund-A")

	gw := newFakeGateway()
	gw.channels[postChannelID] = &ChannelInfo{ID: postChannelID, GuildID: 1}
	gw.roles[7] = []string{superuserRole}
	gw.reactionSets[1000] = &ReactionSet{Groups: []ReactionUsers{
		{Emoji: payEmoji, UserIDs: []uint64{7}},
	}}

	c, _ := newTestCurator(t, store, gw)

	ev := addEvent(1000, postChannelID, 7, payEmoji)
	c.HandleEvent(t.Context(), ev)

	// A duplicate delivery fails the count check and reconciles against
	// the external set; the result is the same single payment.
	c.HandleEvent(t.Context(), ev)

	assert.Len(t, store.reactions, 1)
	assert.Len(t, store.payments, 1)
	assert.InEpsilon(t, 5.0, store.earnings[earningsKey(1000, "USD")].TotalAmount, 1e-9)
	assert.True(t, store.contents[1000].IsPublished)
}

func TestPaymentRemoveUnpublishes(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	content := seedPost(store, 1000, "Art")
	content.IsPublished = true
	seedPaymentRule(store, payEmoji, 5, "USD", "Fund-A")

	reaction, err := store.UpsertReaction(t.Context(), 1000, 7, payEmoji.Key())
	require.NoError(t, err)
	require.NoError(t, store.CreatePayment(t.Context(), &types.Payment{
		ReactionID:    reaction.ID,
		ContentID:     1000,
		Amount:        5,
		Unit:          "USD",
		FundingSource: "Fund-A",
	}))
	require.NoError(t, store.UpsertEarnings(t.Context(), 1000, "USD", 5))

	gw := newFakeGateway()
	gw.channels[postChannelID] = &ChannelInfo{ID: postChannelID, GuildID: 1}
	gw.roles[7] = []string{superuserRole}
	gw.reactionSets[1000] = &ReactionSet{}

	c, _ := newTestCurator(t, store, gw)
	c.HandleEvent(t.Context(), removeEvent(1000, postChannelID, 7, payEmoji))

	assert.Empty(t, store.reactions)
	assert.False(t, store.contents[1000].IsPublished)
	assert.Zero(t, store.earnings[earningsKey(1000, "USD")].TotalAmount)

	// Payment history rows are retained for auditing.
	assert.Len(t, store.payments, 1)
}

func TestNonAngloPostNeedsCountryFlag(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	seedPost(store, 1000, "Art", NonAngloCategory)
	seedPaymentRule(store, payEmoji, 5, "USD", "Fund-A")

	gw := newFakeGateway()
	gw.channels[postChannelID] = &ChannelInfo{ID: postChannelID, GuildID: 1}
	gw.roles[7] = []string{superuserRole}
	gw.reactionSets[1000] = &ReactionSet{Groups: []ReactionUsers{
		{Emoji: payEmoji, UserIDs: []uint64{7}},
	}}

	c, _ := newTestCurator(t, store, gw)
	c.HandleEvent(t.Context(), addEvent(1000, postChannelID, 7, payEmoji))

	assert.Empty(t, store.payments)
	assert.Empty(t, store.reactions)
	require.Len(t, gw.notified, 1)
	assert.Contains(t, gw.notified[0].Reason, "country flag")
	assert.Len(t, gw.removed, 1)
}

func TestNonAngloPostWithFlagPays(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	seedPost(store, 1000, "Art", NonAngloCategory)
	seedPaymentRule(store, payEmoji, 5, "USD", "Fund-A")

	// The flag reaction is already recorded internally.
	_, err := store.UpsertReaction(t.Context(), 1000, 9, flagEmoji.Key())
	require.NoError(t, err)

	gw := newFakeGateway()
	gw.channels[postChannelID] = &ChannelInfo{ID: postChannelID, GuildID: 1}
	gw.roles[7] = []string{superuserRole}
	gw.reactionSets[1000] = &ReactionSet{Groups: []ReactionUsers{
		{Emoji: flagEmoji, UserIDs: []uint64{9}},
		{Emoji: payEmoji, UserIDs: []uint64{7}},
	}}

	c, _ := newTestCurator(t, store, gw)
	c.HandleEvent(t.Context(), addEvent(1000, postChannelID, 7, payEmoji))

	assert.Len(t, store.payments, 1)
	assert.True(t, store.contents[1000].IsPublished)
	assert.Empty(t, gw.removed)
}

func TestTranslationsRequiresNonAnglo(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	seedPost(store, 1000, TranslationsCategory)
	seedPaymentRule(store, payEmoji, 5, "USD", "Fund-A")

	gw := newFakeGateway()
	gw.channels[postChannelID] = &ChannelInfo{ID: postChannelID, GuildID: 1}
	gw.roles[7] = []string{superuserRole}
	gw.reactionSets[1000] = &ReactionSet{Groups: []ReactionUsers{
		{Emoji: payEmoji, UserIDs: []uint64{7}},
	}}

	c, _ := newTestCurator(t, store, gw)
	c.HandleEvent(t.Context(), addEvent(1000, postChannelID, 7, payEmoji))

	assert.Empty(t, store.payments)
	require.Len(t, gw.notified, 1)
	assert.Contains(t, gw.notified[0].Reason, NonAngloCategory)
}

func TestMixedFundingRejected(t *testing.T) {
	t.Parallel()

	otherEmoji := EmojiRef{Name: "💴"}

	store := newFakeStore()
	content := seedPost(store, 1000, "Art")
	content.IsPublished = true
	seedPaymentRule(store, payEmoji, 5, "USD", "Fund-A")
	seedPaymentRule(store, otherEmoji, 3, "EUR", "Fund-B")

	reaction, err := store.UpsertReaction(t.Context(), 1000, 7, payEmoji.Key())
	require.NoError(t, err)
	require.NoError(t, store.CreatePayment(t.Context(), &types.Payment{
		ReactionID: reaction.ID, ContentID: 1000, Amount: 5, Unit: "USD", FundingSource: "Fund-A",
	}))

	gw := newFakeGateway()
	gw.channels[postChannelID] = &ChannelInfo{ID: postChannelID, GuildID: 1}
	gw.roles[7] = []string{superuserRole}
	gw.reactionSets[1000] = &ReactionSet{Groups: []ReactionUsers{
		{Emoji: payEmoji, UserIDs: []uint64{7}},
		{Emoji: otherEmoji, UserIDs: []uint64{7}},
	}}

	c, _ := newTestCurator(t, store, gw)
	c.HandleEvent(t.Context(), addEvent(1000, postChannelID, 7, otherEmoji))

	assert.Len(t, store.payments, 1)
	require.Len(t, gw.notified, 1)
	assert.Contains(t, gw.notified[0].Reason, "cannot be mixed")
}

func TestOddJobOnlyManagerPays(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.contents[2000] = &types.Content{
		MessageID: 2000,
		Kind:      enum.ContentKindOddJob,
		ChannelID: oddJobChannelID,
		GuildID:   1,
		Title:     "Job",
		Body:      "Fix it",
		ManagerID: 7,
		CreatedAt: time.Now(),
	}
	seedPaymentRule(store, payEmoji, 5, "USD", "Fund-A")

	gw := newFakeGateway()
	gw.channels[oddJobChannelID] = &ChannelInfo{ID: oddJobChannelID, GuildID: 1}
	gw.roles[7] = []string{superuserRole}
	gw.roles[10] = []string{superuserRole}

	c, _ := newTestCurator(t, store, gw)

	// A superuser who is not the manager is rejected.
	gw.reactionSets[2000] = &ReactionSet{Groups: []ReactionUsers{
		{Emoji: payEmoji, UserIDs: []uint64{10}},
	}}
	c.HandleEvent(t.Context(), addEvent(2000, oddJobChannelID, 10, payEmoji))

	assert.Empty(t, store.payments)
	require.Len(t, gw.notified, 1)
	assert.Contains(t, gw.notified[0].Reason, "manager")

	// The manager's payment goes through.
	gw.reactionSets[2000] = &ReactionSet{Groups: []ReactionUsers{
		{Emoji: payEmoji, UserIDs: []uint64{7}},
	}}
	c.HandleEvent(t.Context(), addEvent(2000, oddJobChannelID, 7, payEmoji))

	assert.Len(t, store.payments, 1)
	assert.True(t, store.contents[2000].IsPublished)
}

func TestThreadMaterializedOnFirstPayment(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	seedPaymentRule(store, payEmoji, 5, "USD", "Fund-A")

	gw := newFakeGateway()
	gw.channels[threadChannelID] = &ChannelInfo{
		ID: threadChannelID, ParentID: postChannelID, IsThread: true, GuildID: 1,
	}
	gw.roles[7] = []string{superuserRole}
	gw.messages[5000] = &Message{
		ID: 5000, ChannelID: threadChannelID, GuildID: 1, AuthorID: 12,
		Author: "author", Content: "Reply title\nReply body",
	}

	c, _ := newTestCurator(t, store, gw)

	// A regular reaction on a thread records the reaction but never
	// materializes a content row.
	gw.reactionSets[5000] = &ReactionSet{Groups: []ReactionUsers{
		{Emoji: regularEmoji, UserIDs: []uint64{7}},
	}}
	c.HandleEvent(t.Context(), addEvent(5000, threadChannelID, 7, regularEmoji))

	assert.Len(t, store.reactions, 1)
	assert.NotContains(t, store.contents, uint64(5000))

	// The first payment materializes the thread row and a stub parent
	// post keyed by the thread root id.
	gw.reactionSets[5000] = &ReactionSet{Groups: []ReactionUsers{
		{Emoji: regularEmoji, UserIDs: []uint64{7}},
		{Emoji: payEmoji, UserIDs: []uint64{7}},
	}}
	c.HandleEvent(t.Context(), addEvent(5000, threadChannelID, 7, payEmoji))

	thread := store.contents[5000]
	require.NotNil(t, thread)
	assert.Equal(t, enum.ContentKindThread, thread.Kind)
	assert.Equal(t, threadChannelID, thread.ThreadParentID)
	assert.True(t, thread.IsPublished)

	stub := store.contents[threadChannelID]
	require.NotNil(t, stub)
	assert.Equal(t, enum.ContentKindPost, stub.Kind)
	assert.Equal(t, postChannelID, stub.ChannelID)

	assert.Len(t, store.payments, 1)
}

func TestUniversalPublishToggle(t *testing.T) {
	t.Parallel()

	universal := EmojiRef{Name: publishEmoji}

	store := newFakeStore()
	seedPost(store, 1000, "Art")

	gw := newFakeGateway()
	gw.channels[postChannelID] = &ChannelInfo{ID: postChannelID, GuildID: 1}
	gw.roles[7] = []string{superuserRole}

	c, _ := newTestCurator(t, store, gw)

	gw.reactionSets[1000] = &ReactionSet{Groups: []ReactionUsers{
		{Emoji: universal, UserIDs: []uint64{7}},
	}}
	c.HandleEvent(t.Context(), addEvent(1000, postChannelID, 7, universal))

	assert.True(t, store.contents[1000].IsPublished)
	assert.Empty(t, store.payments)

	gw.reactionSets[1000] = &ReactionSet{}
	c.HandleEvent(t.Context(), removeEvent(1000, postChannelID, 7, universal))

	assert.False(t, store.contents[1000].IsPublished)
}

func TestUniversalPublishRejectedAfterPayments(t *testing.T) {
	t.Parallel()

	universal := EmojiRef{Name: publishEmoji}

	store := newFakeStore()
	content := seedPost(store, 1000, "Art")
	content.IsPublished = true

	reaction, err := store.UpsertReaction(t.Context(), 1000, 7, payEmoji.Key())
	require.NoError(t, err)
	require.NoError(t, store.CreatePayment(t.Context(), &types.Payment{
		ReactionID: reaction.ID, ContentID: 1000, Amount: 5, Unit: "USD", FundingSource: "Fund-A",
	}))

	gw := newFakeGateway()
	gw.channels[postChannelID] = &ChannelInfo{ID: postChannelID, GuildID: 1}
	gw.roles[7] = []string{superuserRole}
	gw.reactionSets[1000] = &ReactionSet{Groups: []ReactionUsers{
		{Emoji: payEmoji, UserIDs: []uint64{7}},
		{Emoji: universal, UserIDs: []uint64{7}},
	}}

	c, _ := newTestCurator(t, store, gw)
	c.HandleEvent(t.Context(), addEvent(1000, postChannelID, 7, universal))

	require.Len(t, gw.notified, 1)
	assert.Contains(t, gw.notified[0].Reason, "no longer applies")
	assert.Len(t, gw.removed, 1)
}

func TestCategoryReplaceThenAppend(t *testing.T) {
	t.Parallel()

	artEmoji := EmojiRef{Name: "🎨"}
	bookEmoji := EmojiRef{Name: "📚"}

	store := newFakeStore()
	seedPost(store, 1000, "Old")
	store.categoryRules[artEmoji.Key()] = &types.CategoryRule{EmojiKey: artEmoji.Key(), Category: "Art"}
	store.categoryRules[bookEmoji.Key()] = &types.CategoryRule{EmojiKey: bookEmoji.Key(), Category: "Books"}

	gw := newFakeGateway()
	gw.channels[postChannelID] = &ChannelInfo{ID: postChannelID, GuildID: 1}
	gw.roles[7] = []string{superuserRole}

	c, _ := newTestCurator(t, store, gw)

	// With exactly one category emoji attached, the whole set is replaced.
	gw.reactionSets[1000] = &ReactionSet{Groups: []ReactionUsers{
		{Emoji: artEmoji, UserIDs: []uint64{7}},
	}}
	c.HandleEvent(t.Context(), addEvent(1000, postChannelID, 7, artEmoji))

	assert.Equal(t, []string{"Art"}, store.categories[1000])

	// With more than one attached, the new category is appended.
	gw.reactionSets[1000] = &ReactionSet{Groups: []ReactionUsers{
		{Emoji: artEmoji, UserIDs: []uint64{7}},
		{Emoji: bookEmoji, UserIDs: []uint64{7}},
	}}
	c.HandleEvent(t.Context(), addEvent(1000, postChannelID, 7, bookEmoji))

	assert.Equal(t, []string{"Art", "Books"}, store.categories[1000])
}

func TestNonAngloCategoryNeedsCountryFlag(t *testing.T) {
	t.Parallel()

	globeEmoji := EmojiRef{Name: "🌍"}

	store := newFakeStore()
	seedPost(store, 1000, "Art")
	store.categoryRules[globeEmoji.Key()] = &types.CategoryRule{EmojiKey: globeEmoji.Key(), Category: NonAngloCategory}

	gw := newFakeGateway()
	gw.channels[postChannelID] = &ChannelInfo{ID: postChannelID, GuildID: 1}
	gw.roles[7] = []string{superuserRole}
	gw.reactionSets[1000] = &ReactionSet{Groups: []ReactionUsers{
		{Emoji: globeEmoji, UserIDs: []uint64{7}},
	}}

	c, _ := newTestCurator(t, store, gw)
	c.HandleEvent(t.Context(), addEvent(1000, postChannelID, 7, globeEmoji))

	assert.Equal(t, []string{"Art"}, store.categories[1000])
	assert.Empty(t, store.reactions)
	require.Len(t, gw.notified, 1)
	assert.Contains(t, gw.notified[0].Reason, "country flag")
	assert.Len(t, gw.removed, 1)
}

func TestNonAngloCategoryWithFlagLands(t *testing.T) {
	t.Parallel()

	globeEmoji := EmojiRef{Name: "🌍"}

	store := newFakeStore()
	seedPost(store, 1000, "Art")
	store.categoryRules[globeEmoji.Key()] = &types.CategoryRule{EmojiKey: globeEmoji.Key(), Category: NonAngloCategory}

	// The flag reaction is already recorded internally.
	_, err := store.UpsertReaction(t.Context(), 1000, 9, flagEmoji.Key())
	require.NoError(t, err)

	gw := newFakeGateway()
	gw.channels[postChannelID] = &ChannelInfo{ID: postChannelID, GuildID: 1}
	gw.roles[7] = []string{superuserRole}
	gw.reactionSets[1000] = &ReactionSet{Groups: []ReactionUsers{
		{Emoji: flagEmoji, UserIDs: []uint64{9}},
		{Emoji: globeEmoji, UserIDs: []uint64{7}},
	}}

	c, _ := newTestCurator(t, store, gw)
	c.HandleEvent(t.Context(), addEvent(1000, postChannelID, 7, globeEmoji))

	assert.Contains(t, store.categories[1000], NonAngloCategory)
	assert.Empty(t, gw.removed)
}

func TestCategoryRemoveKeepsLastOnPublished(t *testing.T) {
	t.Parallel()

	artEmoji := EmojiRef{Name: "🎨"}

	store := newFakeStore()
	content := seedPost(store, 1000, "Art")
	content.IsPublished = true
	store.categoryRules[artEmoji.Key()] = &types.CategoryRule{EmojiKey: artEmoji.Key(), Category: "Art"}

	_, err := store.UpsertReaction(t.Context(), 1000, 7, artEmoji.Key())
	require.NoError(t, err)

	gw := newFakeGateway()
	gw.channels[postChannelID] = &ChannelInfo{ID: postChannelID, GuildID: 1}
	gw.roles[7] = []string{superuserRole}
	gw.reactionSets[1000] = &ReactionSet{}

	c, _ := newTestCurator(t, store, gw)
	c.HandleEvent(t.Context(), removeEvent(1000, postChannelID, 7, artEmoji))

	// The category survives, the disagreement is posted to the log channel.
	assert.Equal(t, []string{"Art"}, store.categories[1000])
	assert.Len(t, gw.logLines, 1)
	assert.Empty(t, store.reactions)
}

func TestFeatureToggle(t *testing.T) {
	t.Parallel()

	feature := EmojiRef{Name: featureEmoji}

	store := newFakeStore()
	seedPost(store, 1000, "Art")

	gw := newFakeGateway()
	gw.channels[postChannelID] = &ChannelInfo{ID: postChannelID, GuildID: 1}
	gw.roles[7] = []string{superuserRole}

	c, _ := newTestCurator(t, store, gw)

	gw.reactionSets[1000] = &ReactionSet{Groups: []ReactionUsers{
		{Emoji: feature, UserIDs: []uint64{7}},
	}}
	c.HandleEvent(t.Context(), addEvent(1000, postChannelID, 7, feature))

	assert.True(t, store.contents[1000].IsFeatured)

	gw.reactionSets[1000] = &ReactionSet{}
	c.HandleEvent(t.Context(), removeEvent(1000, postChannelID, 7, feature))

	assert.False(t, store.contents[1000].IsFeatured)
}

func TestTrackerSuppressesOwnRetractionEcho(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	seedPost(store, 1000, "Art")

	_, err := store.UpsertReaction(t.Context(), 1000, 8, regularEmoji.Key())
	require.NoError(t, err)

	gw := newFakeGateway()
	gw.channels[postChannelID] = &ChannelInfo{ID: postChannelID, GuildID: 1}

	c, mr := newTestCurator(t, store, gw)
	require.NoError(t, c.tracker.Register(t.Context(), 1000, 8, regularEmoji.Key()))

	c.HandleEvent(t.Context(), removeEvent(1000, postChannelID, 8, regularEmoji))

	// The echo is swallowed whole: the reaction row stays and the
	// tracker key is consumed.
	assert.Len(t, store.reactions, 1)
	assert.False(t, mr.Exists("retraction:1000:8:"+regularEmoji.Key()))
}

func TestUnmonitoredChannelIgnored(t *testing.T) {
	t.Parallel()

	store := newFakeStore()

	gw := newFakeGateway()
	gw.channels[999] = &ChannelInfo{ID: 999, GuildID: 1}

	c, _ := newTestCurator(t, store, gw)
	c.HandleEvent(t.Context(), addEvent(4000, 999, 7, regularEmoji))

	assert.Empty(t, store.reactions)
	assert.Empty(t, store.contents)
}
