package highlights_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"highlight-bot/internal/domain/activity"
	"highlight-bot/internal/domain/highlights"
	"highlight-bot/internal/domain/matcher"
	"highlight-bot/internal/domain/notifications"
	"highlight-bot/internal/domain/rules"

	"github.com/stretchr/testify/require"
)

const (
	guild   rules.ID = 1
	channel rules.ID = 10
	parent  rules.ID = 9
	author  rules.ID = 100
	watcher rules.ID = 200
)

type profilesStub map[rules.ID]*rules.Profile

func (p profilesStub) Users() []rules.ID {
	out := make([]rules.ID, 0, len(p))
	for id := range p {
		out = append(out, id)
	}
	return out
}

func (p profilesStub) Get(user rules.ID) (*rules.Profile, bool) {
	v, ok := p[user]
	return v, ok
}

type presenceStub struct {
	notMember  bool
	cantRead   bool
	voice      bool
	voiceCatID rules.ID
}

func (p presenceStub) IsMember(rules.ID, rules.ID) bool { return !p.notMember }
func (p presenceStub) CanRead(rules.ID, rules.ID) bool  { return !p.cantRead }
func (p presenceStub) VoiceCategory(rules.ID, rules.ID) (rules.ID, bool) {
	return p.voiceCatID, p.voice
}

type delayerStub struct {
	mu      sync.Mutex
	pending []func(context.Context)
	delays  []time.Duration
}

func (d *delayerStub) After(dur time.Duration, fn func(context.Context)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(d.pending, fn)
	d.delays = append(d.delays, dur)
}

func (d *delayerStub) runAll() {
	d.mu.Lock()
	fns := d.pending
	d.pending = nil
	d.mu.Unlock()
	for _, fn := range fns {
		fn(context.Background())
	}
}

type sent struct {
	user  rules.ID
	by    rules.ID
	rules []string
}

type notifierStub struct {
	mu   sync.Mutex
	sent []sent
}

func (n *notifierStub) Notify(_ context.Context, user rules.ID, _ *matcher.Event, by notifications.Provenance, names []string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sent{user: user, by: by.ID, rules: names})
	return nil
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time                { return c.now }
func (c *clock) advance(d time.Duration)       { c.now = c.now.Add(d) }
func (c *clock) ago(d time.Duration) time.Time { return c.now.Add(-d) }

type harness struct {
	clock    *clock
	tracker  *activity.Tracker
	delayer  *delayerStub
	notifier *notifierStub
	svc      *highlights.Service
}

func newHarness(profiles profilesStub, presence presenceStub) *harness {
	h := &harness{
		clock:    &clock{now: time.Unix(1_700_000_000, 0)},
		delayer:  &delayerStub{},
		notifier: &notifierStub{},
	}
	h.tracker = activity.NewTracker(func() time.Time { return h.clock.Now() })
	h.svc = highlights.NewService(profiles, presence, matcher.NewEvaluator(nil), h.tracker,
		h.delayer, h.notifier, highlights.Options{})
	return h
}

func (h *harness) message(content string) *matcher.Event {
	return &matcher.Event{
		MessageID: 555,
		GuildID:   guild,
		ChannelID: channel,
		ParentID:  parent,
		AuthorID:  author,
		Content:   content,
		CreatedAt: h.clock.Now(),
	}
}

func literalProfile(words ...string) *rules.Profile {
	p := &rules.Profile{}
	for _, w := range words {
		p.Upsert(rules.Rule{Name: w, Conditions: []rules.Condition{rules.Literal{Text: w}}})
	}
	return p
}

func TestFreshMessageIsRecheckedThenSent(t *testing.T) {
	t.Parallel()

	h := newHarness(profilesStub{watcher: literalProfile("go", "rust")}, presenceStub{})
	h.svc.OnMessage(context.Background(), h.message("I like go"))

	require.Empty(t, h.notifier.sent)
	require.Equal(t, []time.Duration{10 * time.Second}, h.delayer.delays)

	h.clock.advance(10 * time.Second)
	h.delayer.runAll()
	require.Equal(t, []sent{{user: watcher, by: author, rules: []string{"go"}}}, h.notifier.sent)
}

func TestRecheckCancelledByActivity(t *testing.T) {
	t.Parallel()

	h := newHarness(profilesStub{watcher: literalProfile("go")}, presenceStub{})
	h.svc.OnMessage(context.Background(), h.message("go go go"))
	require.Len(t, h.delayer.pending, 1)

	h.clock.advance(3 * time.Second)
	h.svc.OnTyping(channel, watcher, h.clock.Now())
	h.clock.advance(7 * time.Second)
	h.delayer.runAll()

	require.Empty(t, h.notifier.sent)
}

func TestActivityWindowSuppresses(t *testing.T) {
	t.Parallel()

	h := newHarness(profilesStub{watcher: literalProfile("go")}, presenceStub{})
	h.svc.OnTyping(channel, watcher, h.clock.ago(20*time.Second))
	h.svc.OnMessage(context.Background(), h.message("go"))
	require.Empty(t, h.delayer.pending)

	// Окно истекло (before_time = 30с); дебаунс уже съел окно в 10с, ждём и его.
	h.clock.advance(15 * time.Second)
	h.svc.OnMessage(context.Background(), h.message("go"))
	require.Len(t, h.delayer.pending, 1)
}

func TestStaleEventSkipsWindowAndRecheck(t *testing.T) {
	t.Parallel()

	h := newHarness(profilesStub{watcher: literalProfile("go")}, presenceStub{})
	h.svc.OnTyping(channel, watcher, h.clock.Now())

	e := h.message("go")
	e.CreatedAt = h.clock.ago(10 * time.Minute)
	h.svc.Check(context.Background(), e, notifications.Provenance{ID: author}, "")

	require.Empty(t, h.delayer.pending)
	require.Len(t, h.notifier.sent, 1)
}

func TestSelfAuthoredSkipsWindow(t *testing.T) {
	t.Parallel()

	h := newHarness(profilesStub{watcher: literalProfile("go")}, presenceStub{})
	e := h.message("go")
	e.AuthorID = watcher
	h.svc.OnMessage(context.Background(), e)

	require.Len(t, h.delayer.pending, 1)
}

func TestVoiceInSameCategorySuppresses(t *testing.T) {
	t.Parallel()

	h := newHarness(profilesStub{watcher: literalProfile("go")}, presenceStub{voice: true, voiceCatID: 77})
	e := h.message("go")
	e.CategoryID = 77
	e.CreatedAt = h.clock.ago(time.Hour)
	h.svc.Check(context.Background(), e, notifications.Provenance{ID: author}, "")
	require.Empty(t, h.notifier.sent)

	e.CategoryID = 78
	e.MessageID++
	h.clock.advance(time.Minute)
	h.svc.Check(context.Background(), e, notifications.Provenance{ID: author}, "")
	require.Len(t, h.notifier.sent, 1)
}

func TestFilteredUsers(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		presence presenceStub
		mutate   func(p *rules.Profile)
	}{
		{name: "не участник гильдии", presence: presenceStub{notMember: true}},
		{name: "нет доступа к каналу", presence: presenceStub{cantRead: true}},
		{name: "профиль выключен", mutate: func(p *rules.Profile) { p.SetEnabled(false) }},
		{name: "автор в блоке", mutate: func(p *rules.Profile) { p.Block(author) }},
		{name: "канал в блоке", mutate: func(p *rules.Profile) { p.Block(channel) }},
		{name: "родитель в блоке", mutate: func(p *rules.Profile) { p.Block(parent) }},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			p := literalProfile("go")
			if tc.mutate != nil {
				tc.mutate(p)
			}
			h := newHarness(profilesStub{watcher: p}, tc.presence)
			h.svc.OnMessage(context.Background(), h.message("go"))
			require.Empty(t, h.delayer.pending)
			require.Empty(t, h.notifier.sent)
		})
	}
}

func TestGlobalGateInPipeline(t *testing.T) {
	t.Parallel()

	p := &rules.Profile{Highlights: []rules.Rule{
		{Name: "global", Conditions: []rules.Condition{rules.Guild{IDs: []rules.ID{123}}}},
		{Name: "foo", Conditions: []rules.Condition{rules.Literal{Text: "bar"}}},
	}}
	h := newHarness(profilesStub{watcher: p}, presenceStub{})
	e := h.message("bar")
	e.GuildID = 456
	h.svc.OnMessage(context.Background(), e)
	require.Empty(t, h.delayer.pending)

	p.Highlights[1].NoGlobal = true
	h.clock.advance(time.Minute)
	h.svc.OnMessage(context.Background(), e)
	require.Len(t, h.delayer.pending, 1)
}

func TestReactionAddOnlyFirst(t *testing.T) {
	t.Parallel()

	p := &rules.Profile{Highlights: []rules.Rule{
		{Name: "starred", Conditions: []rules.Condition{rules.Reaction{Emoji: "⭐"}}},
	}}
	h := newHarness(profilesStub{watcher: p}, presenceStub{})
	reactor := notifications.Provenance{ID: 300, Name: "fan"}

	e := h.message("anything")
	e.Reactions = []matcher.Reaction{{Emoji: "⭐", Count: 2}}
	h.svc.OnReactionAdd(context.Background(), e, reactor, "⭐")
	require.Empty(t, h.delayer.pending)

	e.Reactions = []matcher.Reaction{{Emoji: "⭐", Count: 1}}
	h.svc.OnReactionAdd(context.Background(), e, reactor, "⭐")
	require.Len(t, h.delayer.pending, 1)

	h.delayer.runAll()
	require.Equal(t, []sent{{user: watcher, by: 300, rules: []string{"starred"}}}, h.notifier.sent)
	require.False(t, h.tracker.LastActive(channel, 300).IsZero())
}

func TestMentionActivity(t *testing.T) {
	t.Parallel()

	on := true
	p := literalProfile("go")
	p.MentionActivity = &on
	h := newHarness(profilesStub{watcher: p}, presenceStub{})

	e := h.message("hey go")
	e.Mentions = []rules.ID{watcher}
	h.svc.OnMessage(context.Background(), e)

	require.Equal(t, h.clock.Now(), h.tracker.LastActive(channel, watcher))
	require.Empty(t, h.delayer.pending)
}

func TestDirectMessagesIgnored(t *testing.T) {
	t.Parallel()

	h := newHarness(profilesStub{watcher: literalProfile("go")}, presenceStub{})
	e := h.message("go")
	e.GuildID = 0
	h.svc.OnMessage(context.Background(), e)

	require.Empty(t, h.delayer.pending)
	require.False(t, h.tracker.LastActive(channel, author).IsZero())
}
