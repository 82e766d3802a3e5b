package suggest

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/slotreason/internal/engine"
	"github.com/roach88/slotreason/internal/ir"
	"github.com/roach88/slotreason/internal/pool"
	"github.com/roach88/slotreason/internal/testutil"
)

const contextJSON = `{
  "u1": {"intent": ["music", "video"], "user_age": 30, "general": null},
  "u2": {"intent": "music"}
}`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSuggester(t *testing.T, opts ...Option) (*Suggester, *pool.Pool) {
	t.Helper()
	program := testutil.Program(
		testutil.Rule(t, "adult-news", 0,
			[]string{"(slot user_age 30)"},
			[]string{`(slot intent_suggestion "news" 1.5)`}),
		testutil.Rule(t, "music-play", 0,
			[]string{`(slot intent "music")`},
			[]string{`(slot intent_suggestion "play" 2)`}),
		testutil.Rule(t, "video", 0,
			[]string{`(slot intent "video")`},
			[]string{`(slot intent_suggestion "play" 1)`, `(slot intent_suggestion "watch" 4)`}),
	)
	p, err := pool.New("suggest", func() (*engine.Engine, error) {
		return engine.New(program, nil, engine.WithLogger(quietLogger()))
	}, pool.WithCapacity(1), pool.WithLogger(quietLogger()))
	require.NoError(t, err)

	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return New(p, opts...), p
}

func newAdapter(t *testing.T) *JSONAdapter {
	t.Helper()
	a, err := NewJSONAdapter(strings.NewReader(contextJSON), []string{"user_age", "general", "intent"})
	require.NoError(t, err)
	return a
}

func TestSuggest_AssertAsMultiple(t *testing.T) {
	s, p := newSuggester(t, WithAssertAsMultiple("intent"))

	got, err := s.Suggest(context.Background(), "u1", newAdapter(t))
	require.NoError(t, err)

	assert.Equal(t, []Suggestion{
		{Intent: "watch", Score: 4},
		{Intent: "play", Score: 3},
		{Intent: "news", Score: 1.5},
	}, got)
	assert.Equal(t, 0, p.Stats().Busy, "engine is released")
	assert.Equal(t, 1, s.Timing().Runs)
}

func TestSuggest_ArrayWithoutMultipleIsOneFact(t *testing.T) {
	s, _ := newSuggester(t)

	got, err := s.Suggest(context.Background(), "u1", newAdapter(t))
	require.NoError(t, err)
	assert.Equal(t, []Suggestion{{Intent: "news", Score: 1.5}}, got)
}

func TestSuggest_EngineIsResetBetweenUsers(t *testing.T) {
	s, _ := newSuggester(t, WithAssertAsMultiple("intent"))
	ctx := context.Background()
	a := newAdapter(t)

	_, err := s.Suggest(ctx, "u1", a)
	require.NoError(t, err)

	got, err := s.Suggest(ctx, "u2", a)
	require.NoError(t, err)
	assert.Equal(t, []Suggestion{{Intent: "play", Score: 2}}, got)

	timing := s.Timing()
	assert.Equal(t, 2, timing.Runs)
	assert.GreaterOrEqual(t, timing.Max, timing.Last)
}

func TestSuggest_UnknownUser(t *testing.T) {
	s, p := newSuggester(t)

	_, err := s.Suggest(context.Background(), "nobody", newAdapter(t))
	assert.ErrorIs(t, err, ErrUnknownUser)
	assert.Equal(t, 0, p.Stats().Busy)
}

func TestSuggest_ReasonErrorReleasesEngine(t *testing.T) {
	s, p := newSuggester(t, WithReasonLimit(0))

	_, err := s.Suggest(context.Background(), "u2", newAdapter(t))
	require.Error(t, err)
	assert.True(t, engine.IsCycleLimitError(err))
	assert.Equal(t, 0, p.Stats().Busy)
}

func TestFormatProperties(t *testing.T) {
	props := []Property{
		{Name: "intent", Value: ir.IRArray{ir.IRString("a"), ir.IRString("b")}},
		{Name: "tags", Value: ir.IRArray{ir.IRString("x"), ir.IRString("y")}},
		{Name: "age", Value: ir.IRInt(3)},
		{Name: "gone", Value: ir.IRNull{}},
		{Name: "single", Value: ir.IRString("s")},
	}

	got := FormatProperties(props, map[string]bool{"intent": true, "single": true})

	assert.Equal(t, engine.PairsInput{
		{ir.IRString("intent"), ir.IRString("a")},
		{ir.IRString("intent"), ir.IRString("b")},
		{ir.IRString("tags"), ir.IRArray{ir.IRString("x"), ir.IRString("y")}},
		{ir.IRString("age"), ir.IRInt(3)},
		{ir.IRString("single"), ir.IRString("s")},
	}, got)
}

func TestSumScores(t *testing.T) {
	tests := []struct {
		name    string
		values  []ir.IRValue
		want    []Suggestion
		wantErr bool
	}{
		{
			name: "sums per intent",
			values: []ir.IRValue{
				ir.IRArray{ir.IRString("a"), ir.IRInt(1)},
				ir.IRArray{ir.IRString("b"), ir.IRFloat(0.5)},
				ir.IRArray{ir.IRString("a"), ir.IRFloat(0.25)},
			},
			want: []Suggestion{{Intent: "a", Score: 1.25}, {Intent: "b", Score: 0.5}},
		},
		{
			name: "ties keep first seen order",
			values: []ir.IRValue{
				ir.IRArray{ir.IRInt(7), ir.IRInt(1)},
				ir.IRArray{ir.IRString("x"), ir.IRInt(1)},
			},
			want: []Suggestion{{Intent: "7", Score: 1}, {Intent: "x", Score: 1}},
		},
		{
			name:   "empty",
			values: nil,
			want:   []Suggestion{},
		},
		{
			name:    "wrong shape",
			values:  []ir.IRValue{ir.IRArray{ir.IRString("a")}},
			wantErr: true,
		},
		{
			name:    "non numeric score",
			values:  []ir.IRValue{ir.IRArray{ir.IRString("a"), ir.IRString("high")}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SumScores(tt.values)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
