package dsl_test

import (
	"errors"
	"testing"

	"highlight-bot/internal/domain/dsl"
)

func TestReadWord(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		in       string
		wantWord string
		wantRest string
		wantErr  error
	}{
		{name: "plain", in: "add rest of text", wantWord: "add", wantRest: " rest of text"},
		{name: "leadingSpace", in: "   name  x", wantWord: "name", wantRest: "  x"},
		{name: "quoted", in: `"two words" /re+/`, wantWord: "two words", wantRest: " /re+/"},
		{name: "cornerBrackets", in: "「名前」 x", wantWord: "名前", wantRest: " x"},
		{name: "escapedQuoteInside", in: `"a \"b\"" c`, wantWord: `a "b"`, wantRest: " c"},
		{name: "escapedQuoteUnquoted", in: `a\"b`, wantWord: `a"b`, wantRest: ""},
		{name: "backslashKept", in: `a\b`, wantWord: `a\b`, wantRest: ""},
		{name: "escapedBackslashInQuotes", in: `"a\\" b`, wantWord: `a\`, wantRest: " b"},
		{name: "guillemetsQuoted", in: `"«x" y`, wantWord: "«x", wantRest: " y"},
		{name: "onlyWord", in: "single", wantWord: "single", wantRest: ""},
		{name: "unexpectedQuote", in: `ab"c`, wantErr: dsl.ErrUnexpectedQuote},
		{name: "invalidEnd", in: `"ab"c`, wantErr: dsl.ErrInvalidEndOfQuote},
		{name: "unterminated", in: `"ab c`, wantErr: dsl.ErrExpectedClosingQuote},
		{name: "trailingBackslashInQuotes", in: `"ab\`, wantErr: dsl.ErrExpectedClosingQuote},
		{name: "empty", in: "   ", wantErr: dsl.ErrMissingWord},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			word, rest, err := dsl.ReadWord(tc.in)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("ReadWord(%q) error = %v, want %v", tc.in, err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadWord(%q) unexpected error: %v", tc.in, err)
			}
			if word != tc.wantWord || rest != tc.wantRest {
				t.Fatalf("ReadWord(%q) = (%q, %q), want (%q, %q)", tc.in, word, rest, tc.wantWord, tc.wantRest)
			}
		})
	}
}
