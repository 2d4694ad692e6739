package dsl_test

import (
	"errors"
	"strings"
	"testing"

	"highlight-bot/internal/domain/dsl"
	"highlight-bot/internal/domain/rules"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		text     string
		want     []rules.Condition
		noglobal bool
	}{
		{
			name: "doubleQuotes",
			text: `"foo bar"`,
			want: []rules.Condition{rules.Literal{Text: "foo bar"}},
		},
		{
			name: "ёлочки",
			text: `«привет» -‹мир›`,
			want: []rules.Condition{
				rules.Literal{Text: "привет"},
				rules.Literal{Text: "мир", Negate: true},
			},
		},
		{
			name: "escapes",
			text: `"a\"b\\c"`,
			want: []rules.Condition{rules.Literal{Text: `a"b\c`}},
		},
		{
			name: "regexWithFlagsSorted",
			text: "/fo+/si",
			want: []rules.Condition{rules.Regex{Pattern: "fo+", Flags: "is"}},
		},
		{
			name: "regexEscapedSlash",
			text: `/a\/b/`,
			want: []rules.Condition{rules.Regex{Pattern: `a\/b`}},
		},
		{
			name: "regexInBackticks",
			text: "``/x+/i`` !/y+/",
			want: []rules.Condition{
				rules.Regex{Pattern: "x+", Flags: "i"},
				rules.Regex{Pattern: "y+", Negate: true},
			},
		},
		{
			name: "reactions",
			text: "+👍 +👍🏽 +<:blob:123456789012345678> +🇺🇦",
			want: []rules.Condition{
				rules.Reaction{Emoji: "👍"},
				rules.Reaction{Emoji: "👍🏽"},
				rules.Reaction{Emoji: "<:blob:123456789012345678>"},
				rules.Reaction{Emoji: "🇺🇦"},
			},
		},
		{
			name: "identitiesAndFlags",
			text: `guild:1 server:2 in:<#3> channel:#4 exact_channel:5 from:<@!6> user:<@7> author:8 bot - bot noglobal`,
			want: []rules.Condition{
				rules.Guild{IDs: []rules.ID{1}},
				rules.Guild{IDs: []rules.ID{2}},
				rules.Channel{IDs: []rules.ID{3}},
				rules.Channel{IDs: []rules.ID{4}},
				rules.Channel{IDs: []rules.ID{5}, Exact: true},
				rules.Author{IDs: []rules.ID{6}},
				rules.Author{IDs: []rules.ID{7}},
				rules.Author{IDs: []rules.ID{8}},
				rules.Bot{},
				rules.Bot{Negate: true},
			},
			noglobal: true,
		},
		{
			name: "quotedWordArgument",
			text: `guild:"9" -author: 10`,
			want: []rules.Condition{
				rules.Guild{IDs: []rules.ID{9}},
				rules.Author{IDs: []rules.ID{10}, Negate: true},
			},
		},
		{
			name: "пусто",
			text: "  `` ",
			want: nil,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := dsl.Parse(tc.text, 0, nil)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tc.text, err)
			}
			if diff := cmp.Diff(tc.want, got.Conditions); diff != "" {
				t.Fatalf("Parse(%q) mismatch (-want +got):\n%s", tc.text, diff)
			}
			if got.NoGlobal != tc.noglobal {
				t.Fatalf("Parse(%q) NoGlobal = %v, want %v", tc.text, got.NoGlobal, tc.noglobal)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		text string
		kind error
		msg  string
		pos  int
	}{
		{name: "unterminatedString", text: `"abc`, kind: dsl.ErrSyntax, msg: "reached EOF while parsing quoted string", pos: 4},
		{name: "emptyString", text: `""`, kind: dsl.ErrSyntax, msg: "string cannot be empty", pos: 2},
		{name: "invalidEscape", text: `"a\nb"`, kind: dsl.ErrSyntax, msg: "invalid escape", pos: 3},
		{name: "mismatchedPair", text: `«abc"`, kind: dsl.ErrSyntax, msg: "reached EOF while parsing quoted string", pos: 5},
		{name: "unterminatedRegex", text: `/abc`, kind: dsl.ErrSyntax, msg: "reached EOF while parsing regular expression", pos: 4},
		{name: "invalidFlag", text: `/a/x`, kind: dsl.ErrSyntax, msg: "invalid flag", pos: 3},
		{name: "repeatedFlag", text: `/a/ii`, kind: dsl.ErrSyntax, msg: "flag repeated", pos: 4},
		{name: "emptyMatchRegex", text: `/a*/`, kind: dsl.ErrInvalidRegex, msg: "regex should not match the empty string", pos: 4},
		{name: "alternationWithEmpty", text: `/a|/`, kind: dsl.ErrInvalidRegex, msg: "regex should not match the empty string", pos: 4},
		{name: "brokenRegex", text: `/(a/`, kind: dsl.ErrInvalidRegex, msg: "regex is invalid: missing closing ): `(a`", pos: 4},
		{name: "negatedReaction", text: `-+👍`, kind: dsl.ErrSyntax, msg: "reactions cannot be negated", pos: 1},
		{name: "notAnEmoji", text: `+a`, kind: dsl.ErrSyntax, msg: "expected an emoji after '+'", pos: 1},
		{name: "unknownGuild", text: `guild:Esolangs`, kind: dsl.ErrUnknownEntity, msg: "unknown guild", pos: 6},
		{name: "unknownChannel", text: `in:#general`, kind: dsl.ErrUnknownEntity, msg: "unknown channel", pos: 3},
		{name: "unexpectedQuote", text: `author:ab"c`, kind: dsl.ErrUnexpectedQuote, msg: "unexpected quote inside unquoted word", pos: 9},
		{name: "garbageAfterQuote", text: `author:"ab"c`, kind: dsl.ErrInvalidEndOfQuote, msg: "expected EOF or whitespace after quoted word", pos: 11},
		{name: "unterminatedWord", text: `author:"ab`, kind: dsl.ErrExpectedClosingQuote, msg: "reached EOF while parsing a quoted word", pos: 10},
		{name: "missingValue", text: `guild:`, kind: dsl.ErrMissingWord, msg: "expected a value", pos: 6},
		{name: "danglingNegation", text: `"a" -`, kind: dsl.ErrSyntax, msg: "reached EOF while parsing a condition", pos: 5},
		{name: "unknownToken", text: `foo`, kind: dsl.ErrSyntax, msg: "unknown start of token 'f' (Latin Small Letter F)", pos: 0},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := dsl.Parse(tc.text, 0, nil)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want error", tc.text)
			}
			var f *dsl.Failure
			if !errors.As(err, &f) {
				t.Fatalf("Parse(%q) error %T is not *dsl.Failure", tc.text, err)
			}
			if !errors.Is(err, tc.kind) {
				t.Errorf("Parse(%q) error kind = %v, want %v", tc.text, f.Err, tc.kind)
			}
			if f.Msg != tc.msg {
				t.Errorf("Parse(%q) msg = %q, want %q", tc.text, f.Msg, tc.msg)
			}
			if f.Pos != tc.pos {
				t.Errorf("Parse(%q) pos = %d, want %d", tc.text, f.Pos, tc.pos)
			}
		})
	}
}

func TestFailureRender(t *testing.T) {
	t.Parallel()

	_, err := dsl.Parse("\"a\"\n\"b\" x", 0, nil)
	if err == nil {
		t.Fatal("expected error")
	}

	want := strings.Join([]string{
		"error: unknown start of token 'x' (Latin Small Letter X)",
		`  | "a"`,
		`  | "b" x`,
		"  |     ^",
		"help: wrap literal strings in quotes and regular expressions in slashes",
	}, "\n")
	if diff := cmp.Diff(want, err.Error()); diff != "" {
		t.Fatalf("rendered failure mismatch (-want +got):\n%s", diff)
	}
}

func TestRawRoundTrip(t *testing.T) {
	t.Parallel()

	rule := rules.Rule{
		Name: "mixed",
		Conditions: rules.Merge([]rules.Condition{
			rules.Literal{Text: `say "hi" \o/`},
			rules.Regex{Pattern: `a\/b+`, Flags: "is", Negate: true},
			rules.Reaction{Emoji: "👍"},
			rules.Guild{IDs: []rules.ID{2, 1}},
			rules.Channel{IDs: []rules.ID{3}, Negate: true},
			rules.Channel{IDs: []rules.ID{4}, Exact: true},
			rules.Author{IDs: []rules.ID{5}},
			rules.Bot{Negate: true},
		}),
		NoGlobal: true,
	}

	got, err := dsl.ParseRule(rule.Name, rules.Raw(rule), 0, nil)
	if err != nil {
		t.Fatalf("ParseRule(Raw()) error: %v", err)
	}
	if diff := cmp.Diff(rule, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestNegationInverts(t *testing.T) {
	t.Parallel()

	for _, text := range []string{`"x"`, `/x/`, `guild:1`, `in:2`, `exact_channel:3`, `from:4`, `bot`} {
		plain, err := dsl.Parse(text, 0, nil)
		if err != nil {
			t.Fatalf("Parse(%q): %v", text, err)
		}
		negated, err := dsl.Parse("!"+text, 0, nil)
		if err != nil {
			t.Fatalf("Parse(!%q): %v", text, err)
		}
		if diff := cmp.Diff(rules.Negate(plain.Conditions[0]), negated.Conditions[0]); diff != "" {
			t.Errorf("negation of %q mismatch (-want +got):\n%s", text, diff)
		}
	}
}

func TestMinMatchLength(t *testing.T) {
	t.Parallel()

	cases := map[string]int{
		"a+":        1,
		"a*":        0,
		"abc":       3,
		"(ab|c)d":   2,
		"x{3,5}":    3,
		"^$":        0,
		`\bfoo\b`:   3,
		"[a-z]?":    0,
		"(?:a|b)+c": 2,
		".":         1,
	}
	for pattern, want := range cases {
		got, err := dsl.MinMatchLength(pattern)
		if err != nil {
			t.Fatalf("MinMatchLength(%q) error: %v", pattern, err)
		}
		if got != want {
			t.Errorf("MinMatchLength(%q) = %d, want %d", pattern, got, want)
		}
	}
}
