package matcher_test

import (
	"testing"

	"highlight-bot/internal/domain/matcher"
	"highlight-bot/internal/domain/rules"

	"github.com/google/go-cmp/cmp"
)

func rule(name string, noglobal bool, conds ...rules.Condition) rules.Rule {
	return rules.Rule{Name: name, Conditions: rules.Merge(conds), NoGlobal: noglobal}
}

func TestGlobalGate(t *testing.T) {
	t.Parallel()

	p := &rules.Profile{Highlights: []rules.Rule{
		rule("global", false, rules.Bot{Negate: true}),
		rule("A", false, rules.Literal{Text: "foo"}),
		rule("B", true, rules.Literal{Text: "foo"}),
	}}
	ev := matcher.NewEvaluator(nil)

	botMsg := &matcher.Event{Content: "foo", AuthorBot: true}
	if diff := cmp.Diff([]string{"B"}, ev.Successes(p, botMsg, "")); diff != "" {
		t.Fatalf("bot message (-want +got):\n%s", diff)
	}

	humanMsg := &matcher.Event{Content: "foo"}
	if diff := cmp.Diff([]string{"A", "B"}, ev.Successes(p, humanMsg, "")); diff != "" {
		t.Fatalf("human message (-want +got):\n%s", diff)
	}
}

func TestConditions(t *testing.T) {
	t.Parallel()

	ev := matcher.NewEvaluator(nil)
	base := matcher.Event{
		GuildID:   1,
		ChannelID: 20,
		ParentID:  10,
		AuthorID:  5,
		Content:   "Привет, мир! I love C++ and foo-bar.\nsecond line",
		Reactions: []matcher.Reaction{{Emoji: "👍", Count: 2}},
	}

	cases := []struct {
		name string
		cond rules.Condition
		want bool
	}{
		{name: "literalWordBoundary", cond: rules.Literal{Text: "foo"}, want: true},
		{name: "literalInsideWord", cond: rules.Literal{Text: "oo"}, want: false},
		{name: "literalCaseInsensitive", cond: rules.Literal{Text: "I LOVE"}, want: true},
		{name: "кириллица", cond: rules.Literal{Text: "привет"}, want: true},
		{name: "кириллицаВнутриСлова", cond: rules.Literal{Text: "приве"}, want: false},
		{name: "literalPunctuationEnd", cond: rules.Literal{Text: "C++"}, want: true},
		{name: "literalNegated", cond: rules.Literal{Text: "foo", Negate: true}, want: false},
		{name: "regexCaseSensitive", cond: rules.Regex{Pattern: "LOVE"}, want: false},
		{name: "regexFlagI", cond: rules.Regex{Pattern: "LOVE", Flags: "i"}, want: true},
		{name: "regexNoDotAll", cond: rules.Regex{Pattern: `bar\..second`}, want: false},
		{name: "regexDotAll", cond: rules.Regex{Pattern: `bar\..second`, Flags: "s"}, want: true},
		{name: "regexBroken", cond: rules.Regex{Pattern: "("}, want: false},
		{name: "reaction", cond: rules.Reaction{Emoji: "👍"}, want: true},
		{name: "reactionMissing", cond: rules.Reaction{Emoji: "👎"}, want: false},
		{name: "guild", cond: rules.Guild{IDs: []rules.ID{1, 2}}, want: true},
		{name: "guildNegated", cond: rules.Guild{IDs: []rules.ID{1}, Negate: true}, want: false},
		{name: "channelItself", cond: rules.Channel{IDs: []rules.ID{20}}, want: true},
		{name: "channelParent", cond: rules.Channel{IDs: []rules.ID{10}}, want: true},
		{name: "exactChannelParent", cond: rules.Channel{IDs: []rules.ID{10}, Exact: true}, want: false},
		{name: "exactChannelItself", cond: rules.Channel{IDs: []rules.ID{20}, Exact: true}, want: true},
		{name: "author", cond: rules.Author{IDs: []rules.ID{5}}, want: true},
		{name: "authorOther", cond: rules.Author{IDs: []rules.ID{6}}, want: false},
		{name: "bot", cond: rules.Bot{}, want: false},
		{name: "notBot", cond: rules.Bot{Negate: true}, want: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			e := base
			if got := ev.Matches(rule("r", false, tc.cond), &e); got != tc.want {
				t.Fatalf("Matches(%#v) = %v, want %v", tc.cond, got, tc.want)
			}
			if got := ev.Matches(rule("r", false, rules.Negate(tc.cond)), &e); tc.cond.Kind() != rules.KindReaction && got == tc.want {
				t.Fatalf("negated Matches(%#v) = %v, want %v", tc.cond, got, !tc.want)
			}
		})
	}
}

func TestReactionRelevance(t *testing.T) {
	t.Parallel()

	ev := matcher.NewEvaluator(nil)
	e := &matcher.Event{
		Content:   "hello",
		Reactions: []matcher.Reaction{{Emoji: "👍", Count: 1}, {Emoji: "⭐", Count: 1}},
	}
	p := &rules.Profile{Highlights: []rules.Rule{
		rule("text", false, rules.Literal{Text: "hello"}),
		rule("thumbs", false, rules.Reaction{Emoji: "👍"}),
		rule("star", false, rules.Reaction{Emoji: "⭐"}),
	}}

	if diff := cmp.Diff([]string{"text", "thumbs"}, ev.Successes(p, e, "👍")); diff != "" {
		t.Fatalf("relevance filter (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"text", "thumbs", "star"}, ev.Successes(p, e, "")); diff != "" {
		t.Fatalf("no reaction event (-want +got):\n%s", diff)
	}

	p.Highlights = append(p.Highlights, rule("global", false, rules.Reaction{Emoji: "⭐"}))
	if diff := cmp.Diff([]string{"text", "thumbs", "star"}, ev.Successes(p, e, "👍")); diff != "" {
		t.Fatalf("global with reaction disables relevance (-want +got):\n%s", diff)
	}
}

func TestLiteralPattern(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"foo":  `(?:^|[^\p{L}\p{N}_])foo(?:[^\p{L}\p{N}_]|$)`,
		"C++":  `(?:^|[^\p{L}\p{N}_])C\+\+`,
		"#tag": `#tag(?:[^\p{L}\p{N}_]|$)`,
		"...":  `\.\.\.`,
	}
	for in, want := range cases {
		if got := matcher.LiteralPattern(in); got != want {
			t.Errorf("LiteralPattern(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRegexCacheNegativeEntry(t *testing.T) {
	t.Parallel()

	c := matcher.NewRegexCache(nil)
	if c.Match("(", "", "(") {
		t.Fatal("broken pattern must not match")
	}
	if c.Match("(", "", "(") {
		t.Fatal("broken pattern must not match on cache hit")
	}
	if !c.Match("a+", "i", "AAA") {
		t.Fatal("a+/i must match AAA")
	}
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
}
