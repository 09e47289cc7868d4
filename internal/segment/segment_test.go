package segment

import (
	"math/rand/v2"
	"slices"
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"
)

func TestSplit(t *testing.T) {
	cases := []struct {
		name string
		text string
		max  int
		want []string
	}{
		{
			name: "sentence aligned",
			text: "Hello there. How are you today? I am fine.",
			max:  20,
			want: []string{"Hello there.", "How are you today?", "I am fine."},
		},
		{
			name: "packs short sentences",
			text: "Hi. Yes. No. Maybe later.",
			max:  12,
			want: []string{"Hi. Yes. No.", "Maybe later."},
		},
		{
			name: "fits in one",
			text: "  Short   text.\n\nStill short. ",
			max:  200,
			want: []string{"Short text. Still short."},
		},
		{
			name: "long sentence splits at words",
			text: "This sentence is far too long to fit. Ok.",
			max:  16,
			want: []string{"This sentence is", "far too long to", "fit.", "Ok."},
		},
		{
			name: "hard slice",
			text: "Supercalifragilistic!",
			max:  8,
			want: []string{"Supercal", "ifragili", "stic!"},
		},
		{
			name: "cjk terminators",
			text: "你好。今天天气很好！我们去公园吧？",
			max:  8,
			want: []string{"你好。", "今天天气很好！", "我们去公园吧？"},
		},
		{
			name: "empty",
			text: " \n\t ",
			max:  10,
			want: nil,
		},
		{
			name: "no bound",
			text: "One. Two.",
			max:  0,
			want: []string{"One. Two."},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Split(tc.text, tc.max)
			if !slices.Equal(got, tc.want) {
				t.Fatalf("Split(%q, %d) = %q, want %q", tc.text, tc.max, got, tc.want)
			}
		})
	}
}

func TestSentences(t *testing.T) {
	text := `He said "Stop!" Then left... 好的。好`
	got := Sentences(text)
	want := []string{`He said "Stop!" `, "Then left... ", "好的。", "好"}
	if !slices.Equal(got, want) {
		t.Fatalf("Sentences = %q, want %q", got, want)
	}
	if strings.Join(got, "") != text {
		t.Fatal("sentences do not reconstruct the input")
	}
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// Every segment is non-empty and within bounds, and the segments cover all
// non-whitespace content of the input in order.
func TestSplitCoverage(t *testing.T) {
	words := []string{"a", "hello", "world.", "why?", "yes!", "extraordinarily", "你好。", "ok", "  ", "\n", "end。", "x!?"}
	rng := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 500; i++ {
		var sb strings.Builder
		for n := rng.IntN(40); n > 0; n-- {
			sb.WriteString(words[rng.IntN(len(words))])
			if rng.IntN(3) > 0 {
				sb.WriteByte(' ')
			}
		}
		text := sb.String()
		maxChars := 1 + rng.IntN(30)

		segs := Split(text, maxChars)
		for _, s := range segs {
			if s == "" {
				t.Fatalf("empty segment for %q/%d", text, maxChars)
			}
			if n := utf8.RuneCountInString(s); n > maxChars {
				t.Fatalf("segment %q has %d runes > %d (input %q)", s, n, maxChars, text)
			}
		}
		if got, want := stripSpace(strings.Join(segs, "")), stripSpace(text); got != want {
			t.Fatalf("coverage mismatch for %q/%d:\n got %q\nwant %q", text, maxChars, got, want)
		}
	}
}

func TestSplitDeterministic(t *testing.T) {
	text := "One two three. Four five six seven eight nine ten. Eleven."
	a := Split(text, 15)
	b := Split(text, 15)
	if !slices.Equal(a, b) {
		t.Fatalf("non-deterministic output %q vs %q", a, b)
	}
}
