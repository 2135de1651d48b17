package extract

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name      string
		fragments []string
		lang      string
		want      string
	}{
		{
			name:      "code between prose",
			fragments: []string{"Here is code:\n", "```js\nconsole.log(1)\n```", " done"},
			lang:      "js",
			want:      "console.log(1)",
		},
		{
			name:      "no fences",
			fragments: []string{"no fences here at all"},
			lang:      "js",
			want:      "no fences here at all",
		},
		{
			name:      "no fences keeps whitespace",
			fragments: []string{"  a\n", "b  "},
			lang:      "js",
			want:      "  a\nb  ",
		},
		{
			name:      "empty sequence",
			fragments: nil,
			lang:      "js",
			want:      "",
		},
		{
			name:      "empty fragments",
			fragments: []string{"", "", ""},
			lang:      "html",
			want:      "",
		},
		{
			name:      "block spans fragments",
			fragments: []string{"Sure!\n```html\n<div>", "hi</div>\n", "```\nEnjoy."},
			lang:      "html",
			want:      "<div>hi</div>",
		},
		{
			name:      "language tag split across fragments",
			fragments: []string{"pre ```j", "s\nCODE\n``` post"},
			lang:      "js",
			want:      "CODE",
		},
		{
			name:      "fence and tag in separate fragments",
			fragments: []string{"```", "js\nlet a = 1\n", "```"},
			lang:      "js",
			want:      "let a = 1",
		},
		{
			name:      "untagged block",
			fragments: []string{"```\nplain()\n```"},
			lang:      "js",
			want:      "plain()",
		},
		{
			name:      "unterminated block",
			fragments: []string{"```css\n", "body { color: red; }\n"},
			lang:      "css",
			want:      "body { color: red; }",
		},
		{
			name:      "two blocks are concatenated",
			fragments: []string{"```js\na()\n```\nand\n```js\nb()\n```"},
			lang:      "js",
			want:      "a()\nb()",
		},
		{
			name:      "tag inside body is kept",
			fragments: []string{"```js\nconst js = 'js'\n```"},
			lang:      "js",
			want:      "const js = 'js'",
		},
		{
			name:      "marker split across fragments falls back",
			fragments: []string{"text ``", "`js\nx = 1\n``", "` tail"},
			lang:      "js",
			want:      "x = 1",
		},
		{
			name:      "marker split without matching tag returns output",
			fragments: []string{"``", "`py\nx = 1\n```"},
			lang:      "js",
			want:      "```py\nx = 1\n```",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Extract(tt.fragments, tt.lang); got != tt.want {
				t.Errorf("Extract() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractArbitrarySplits(t *testing.T) {
	const answer = "pre ```js\nCODE\n``` post"
	marker := strings.Index(answer, Fence)
	closing := strings.LastIndex(answer, Fence)

	splitsMarker := func(i int) bool {
		return (i > marker && i < marker+len(Fence)) || (i > closing && i < closing+len(Fence))
	}

	for i := 0; i <= len(answer); i++ {
		for j := i; j <= len(answer); j++ {
			if splitsMarker(i) || splitsMarker(j) {
				continue
			}
			fragments := []string{answer[:i], answer[i:j], answer[j:]}
			if got := Extract(fragments, "js"); got != "CODE" {
				t.Fatalf("Extract(%q) = %q, want %q", fragments, got, "CODE")
			}
		}
	}
}

func TestExtractNoFencesIsConcatenation(t *testing.T) {
	fragments := []string{"one ", "", "two\n", "  three  "}
	if got, want := Extract(fragments, "js"), strings.Join(fragments, ""); got != want {
		t.Errorf("Extract() = %q, want %q", got, want)
	}
}

func TestExtractIdempotent(t *testing.T) {
	code := Extract([]string{"Here:\n```js\nfunction f() {\n  return 1\n}\n```"}, "js")
	if again := Extract([]string{code}, "js"); again != code {
		t.Errorf("second pass = %q, want %q", again, code)
	}
}

func TestFallback(t *testing.T) {
	tests := []struct {
		name   string
		output string
		lang   string
		want   string
		wantOK bool
	}{
		{"no fences", "plain", "js", "", false},
		{"matching tag", "a ```js\nx\n``` b", "js", "x", true},
		{"lowercase tag", "```html\n<p/>\n```", "HTML", "<p/>", true},
		{"exact case wins", "```HTML\n<p/>\n```", "HTML", "<p/>", true},
		{"first match only", "```py\n1\n``` ```js\n2\n``` ```js\n3\n```", "js", "2", true},
		{"no matching block", "```py\n1\n```", "js", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Fallback(tt.output, tt.lang)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Fallback() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestTransition(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		fragment string
		want     State
		segs     []Segment
		crossed  int
	}{
		{"outside plain", Outside, "hello", Outside, nil, 0},
		{"inside plain", Inside, "x := 1", Inside, []Segment{{Text: "x := 1"}}, 0},
		{"open", Outside, "a```go\n", Inside, []Segment{{Text: "go\n", Opens: true}}, 1},
		{"close", Inside, "}\n```\nbye", Outside, []Segment{{Text: "}\n", Closes: true}}, 1},
		{
			name: "open and close", state: Outside, fragment: "```js\nx```", want: Outside,
			segs:    []Segment{{Text: "js\nx", Opens: true, Closes: true}},
			crossed: 2,
		},
		{
			name: "close then open", state: Inside, fragment: "a```b```c", want: Inside,
			segs:    []Segment{{Text: "a", Closes: true}, {Text: "c", Opens: true}},
			crossed: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, segs, crossed := Transition(tt.state, tt.fragment)
			if got != tt.want {
				t.Errorf("state = %v, want %v", got, tt.want)
			}
			if crossed != tt.crossed {
				t.Errorf("crossed = %d, want %d", crossed, tt.crossed)
			}
			if len(segs) != len(tt.segs) {
				t.Fatalf("segments = %+v, want %+v", segs, tt.segs)
			}
			for i := range segs {
				if segs[i] != tt.segs[i] {
					t.Errorf("segment %d = %+v, want %+v", i, segs[i], tt.segs[i])
				}
			}
		})
	}
}

func TestExtractorCounters(t *testing.T) {
	e := New("js")
	for _, f := range []string{"a", "```js\n", "b", "```"} {
		e.Feed(f)
	}
	if e.Fragments() != 4 || e.Fences() != 2 || e.State() != Outside {
		t.Errorf("fragments=%d fences=%d state=%v", e.Fragments(), e.Fences(), e.State())
	}
	if e.Output() != "a```js\nb```" {
		t.Errorf("Output() = %q", e.Output())
	}
}

type failingSource struct {
	fragments []string
	err       error
}

func (s *failingSource) Recv() (string, error) {
	if len(s.fragments) == 0 {
		return "", s.err
	}
	f := s.fragments[0]
	s.fragments = s.fragments[1:]
	return f, nil
}

func TestDrain(t *testing.T) {
	e := New("js")
	var seen []string
	err := Drain(context.Background(), FromSlice([]string{"```js\n", "ok()\n", "```"}), e, func(f string) {
		seen = append(seen, f)
	})
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if len(seen) != 3 {
		t.Errorf("observed %d fragments, want 3", len(seen))
	}
	if got := e.Result(); got != "ok()" {
		t.Errorf("Result() = %q, want %q", got, "ok()")
	}
}

func TestDrainPartialOnError(t *testing.T) {
	boom := errors.New("connection reset")
	e := New("js")
	err := Drain(context.Background(), &failingSource{fragments: []string{"```js\n", "half("}, err: boom}, e, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("Drain() error = %v, want %v", err, boom)
	}
	if got := e.Result(); got != "half(" {
		t.Errorf("Result() = %q, want partial %q", got, "half(")
	}
}

func TestDrainCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := New("js")
	err := Drain(ctx, FromSlice([]string{"never"}), e, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Drain() error = %v, want context.Canceled", err)
	}
	if e.Fragments() != 0 {
		t.Errorf("fed %d fragments after cancel", e.Fragments())
	}
}

func TestFromSliceEOF(t *testing.T) {
	src := FromSlice(nil)
	if _, err := src.Recv(); !errors.Is(err, io.EOF) {
		t.Errorf("Recv() error = %v, want io.EOF", err)
	}
}
