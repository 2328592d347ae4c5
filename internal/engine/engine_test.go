package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/chriscorrea/tally/internal/counter"
	"github.com/chriscorrea/tally/internal/tally"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doc(name, content string) Document {
	return Document{Name: name, Content: content, Valid: true}
}

// twoDocs has Alice with 3 words in the first file, Alice with 5 and Bob with 2 in the second.
func twoDocs() []Document {
	return []Document{
		doc("a.txt", "Alice: one two three\n"),
		doc("b.txt", "Bob: hi there\nAlice: four five six seven eight\n"),
	}
}

func TestRunSingleDocumentWords(t *testing.T) {
	out, err := Run([]Document{doc("a.txt", "Alice: hello world. Bye now.")}, Config{})
	require.NoError(t, err)

	assert.Equal(t, []tally.UserTally{{Name: "Alice", Count: 4}}, out.Flat())
}

func TestRunSingleDocumentSentences(t *testing.T) {
	out, err := Run([]Document{doc("a.txt", "Alice: hello world. Bye now.")}, Config{Unit: counter.Sentences})
	require.NoError(t, err)

	assert.Equal(t, []tally.UserTally{{Name: "Alice", Count: 2}}, out.Flat())
}

func TestRunScopes(t *testing.T) {
	all, err := Run(twoDocs(), Config{Scope: All})
	require.NoError(t, err)
	assert.Equal(t, []tally.UserTally{{Name: "Alice", Count: 8}, {Name: "Bob", Count: 2}}, all.Flat())

	per, err := Run(twoDocs(), Config{Scope: Per})
	require.NoError(t, err)
	require.Len(t, per.Lists, 2)
	assert.Equal(t, []tally.UserTally{{Name: "Alice", Count: 3}}, per.Lists[0])
	assert.Equal(t, []tally.UserTally{{Name: "Alice", Count: 5}, {Name: "Bob", Count: 2}}, per.Lists[1])
	assert.Nil(t, per.Flat())
}

func TestRunLimit(t *testing.T) {
	out, err := Run(twoDocs(), Config{Limit: 1})
	require.NoError(t, err)

	assert.Equal(t, []tally.UserTally{{Name: "Alice", Count: 8}}, out.Flat())
}

func TestRunAscending(t *testing.T) {
	out, err := Run(twoDocs(), Config{Order: tally.Asc})
	require.NoError(t, err)

	assert.Equal(t, []tally.UserTally{{Name: "Bob", Count: 2}, {Name: "Alice", Count: 8}}, out.Flat())
}

func TestRunInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		docs []Document
		cfg  Config
	}{
		{"empty batch", nil, Config{}},
		{"unknown scope", twoDocs(), Config{Scope: Scope(7)}},
		{"unknown order", twoDocs(), Config{Order: tally.Order(7)}},
		{"unknown unit", twoDocs(), Config{Unit: counter.Unit(42)}},
		{"negative limit", twoDocs(), Config{Limit: -1}},
		{"negative keywords", twoDocs(), Config{Keywords: -3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(tt.docs, tt.cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput), "error %v should wrap ErrInvalidInput", err)
		})
	}
}

func TestRunSkipsUnattributableLines(t *testing.T) {
	out, err := Run([]Document{doc("log.txt", "*** server restarted\n\n: nobody\nCarol: fine\n")}, Config{})
	require.NoError(t, err)

	assert.Equal(t, []tally.UserTally{{Name: "Carol", Count: 1}}, out.Flat())
}

func TestRunEmptyDocumentIsNotAnError(t *testing.T) {
	out, err := Run([]Document{doc("empty.txt", "")}, Config{Scope: Per})
	require.NoError(t, err)

	require.Len(t, out.Lists, 1)
	assert.Empty(t, out.Lists[0])

	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `[[]]`, string(data))
}

func TestRunIdempotent(t *testing.T) {
	docs := []Document{
		doc("a.txt", "Zed: a b\nAmy: c d\nKim: e f\nAmy: g\nZed: h\n"),
		doc("b.txt", "Kim: x\nLee: y z\n"),
	}
	for _, scope := range []Scope{All, Per} {
		cfg := Config{Scope: scope}

		first, err := Run(docs, cfg)
		require.NoError(t, err)
		firstJSON, err := json.Marshal(first)
		require.NoError(t, err)

		for i := 0; i < 20; i++ {
			again, err := Run(docs, cfg)
			require.NoError(t, err)
			againJSON, err := json.Marshal(again)
			require.NoError(t, err)
			require.Equal(t, string(firstJSON), string(againJSON), "run %d differs for scope %v", i, scope)
		}
	}
}

func TestRunTieBreakFirstAppearance(t *testing.T) {
	docs := []Document{
		doc("a.txt", "Zed: a b\nAmy: c d\n"),
		doc("b.txt", "Kim: e f\n"),
	}

	desc, err := Run(docs, Config{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Zed", "Amy", "Kim"}, names(desc.Flat()))

	asc, err := Run(docs, Config{Order: tally.Asc})
	require.NoError(t, err)
	assert.Equal(t, []string{"Zed", "Amy", "Kim"}, names(asc.Flat()))
}

func TestRunCountConservation(t *testing.T) {
	docs := []Document{
		doc("a.txt", "Alice: hello world. Bye now.\nBob: ok?\n"),
		doc("b.txt", "Bob: one. two! three?\nCarol: yes\n"),
		doc("c.txt", "no users here\n"),
	}

	for _, unit := range []counter.Unit{counter.Words, counter.Sentences, counter.Characters} {
		t.Run(unit.String(), func(t *testing.T) {
			all, err := Run(docs, Config{Unit: unit})
			require.NoError(t, err)
			per, err := Run(docs, Config{Unit: unit, Scope: Per})
			require.NoError(t, err)

			perSum := 0
			for _, list := range per.Lists {
				perSum += sum(list)
			}
			assert.Equal(t, sum(all.Flat()), perSum)
			assert.Len(t, per.Lists, len(docs))
			assert.Empty(t, per.Lists[2])
		})
	}
}

func TestRunTruncationLength(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 6; i++ {
		fmt.Fprintf(&b, "user%d: %s\n", i, strings.Repeat("w ", i+1))
	}
	docs := []Document{doc("many.txt", b.String())}

	for _, limit := range []int{0, 1, 3, 6, 9} {
		out, err := Run(docs, Config{Limit: limit})
		require.NoError(t, err)

		want := 6
		if limit > 0 && limit < 6 {
			want = limit
		}
		assert.Len(t, out.Flat(), want, "limit %d", limit)
	}
}

func TestRunSkipNotices(t *testing.T) {
	docs := []Document{doc("irc.log", "Alice: has joined the channel\nAlice: morning all\nBob: left the room\n")}

	out, err := Run(docs, Config{SkipNotices: true})
	require.NoError(t, err)
	assert.Equal(t, []tally.UserTally{{Name: "Alice", Count: 2}}, out.Flat())

	out, err = Run(docs, Config{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Bob"}, names(out.Flat()))
}

func TestRunMatch(t *testing.T) {
	docs := []Document{doc("ops.log", strings.Join([]string{
		"Alice: the deploy failed again",
		"Bob: lunch anyone",
		"Carol: coffee break soon",
		"Bob: rolling back the deploy now",
		"Dana: see you tomorrow",
		"Carol: who has the projector",
	}, "\n"))}

	out, err := Run(docs, Config{Match: "deploy"})
	require.NoError(t, err)

	assert.Equal(t, []tally.UserTally{{Name: "Bob", Count: 5}, {Name: "Alice", Count: 4}}, out.Flat())
}

func TestRunMatchSingleMessage(t *testing.T) {
	out, err := Run([]Document{doc("a.txt", "Alice: deploy now\n")}, Config{Match: "deploy"})
	require.NoError(t, err)

	assert.Equal(t, []tally.UserTally{{Name: "Alice", Count: 2}}, out.Flat())
}

func TestRunMatchCommonTerm(t *testing.T) {
	docs := []Document{doc("ops.log", "Alice: deploy started\nBob: lunch anyone\nCarol: the deploy is green\n")}

	out, err := Run(docs, Config{Match: "deploy", Scope: Per})
	require.NoError(t, err)

	require.Len(t, out.Lists, 1)
	assert.Equal(t, []tally.UserTally{{Name: "Carol", Count: 4}, {Name: "Alice", Count: 2}}, out.Lists[0])
}

func TestRunKeywords(t *testing.T) {
	docs := []Document{doc("team.log", "Alice: deploy deploy pipeline\nBob: lunch lunch pizza\nAlice: deploy again\n")}

	out, err := Run(docs, Config{Keywords: 1})
	require.NoError(t, err)

	require.Len(t, out.Flat(), 2)
	assert.Equal(t, "Alice", out.Flat()[0].Name)
	assert.Equal(t, []string{"deploy"}, out.Flat()[0].Keywords)
	assert.Equal(t, []string{"lunch"}, out.Flat()[1].Keywords)
}

func TestOutputJSON(t *testing.T) {
	all, err := Run(twoDocs(), Config{})
	require.NoError(t, err)
	data, err := json.Marshal(all)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"Alice","count":8},{"name":"Bob","count":2}]`, string(data))

	per, err := Run(twoDocs(), Config{Scope: Per})
	require.NoError(t, err)
	data, err = json.Marshal(per)
	require.NoError(t, err)
	assert.JSONEq(t, `[[{"name":"Alice","count":3}],[{"name":"Alice","count":5},{"name":"Bob","count":2}]]`, string(data))
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(Options{})
	require.NoError(t, err)
	assert.Equal(t, Config{Scope: All, Order: tally.Desc, Unit: counter.Words}, cfg)

	cfg, err = ParseConfig(Options{Scope: "per", Order: "ASC", Unit: "SENT", Limit: 3, Match: " deploy "})
	require.NoError(t, err)
	assert.Equal(t, Per, cfg.Scope)
	assert.Equal(t, tally.Asc, cfg.Order)
	assert.Equal(t, counter.Sentences, cfg.Unit)
	assert.Equal(t, 3, cfg.Limit)
	assert.Equal(t, "deploy", cfg.Match)

	for _, bad := range []Options{{Scope: "SOME"}, {Order: "UP"}, {Unit: "PARAGRAPH"}, {Limit: -2}} {
		_, err := ParseConfig(bad)
		assert.ErrorIs(t, err, ErrInvalidInput, "options %+v", bad)
	}
}

func TestConfigOptionsRoundTrip(t *testing.T) {
	cfg := Config{Scope: Per, Order: tally.Asc, Unit: counter.Characters, Limit: 2, Keywords: 1}
	back, err := ParseConfig(cfg.Options())
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}

func names(ts []tally.UserTally) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Name
	}
	return out
}

func sum(ts []tally.UserTally) int {
	total := 0
	for _, t := range ts {
		total += t.Count
	}
	return total
}
