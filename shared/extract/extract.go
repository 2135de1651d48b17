// Package extract isolates code from an LLM's markdown-wrapped answer.
// It works on the answer incrementally, one streamed fragment at a time,
// and falls back to a whole-string pass when no block was seen.
package extract

import "strings"

// Fence is the markdown code-block delimiter.
const Fence = "```"

// State tells whether the extractor is inside a fenced block.
type State int

const (
	Outside State = iota
	Inside
)

func (s State) String() string {
	if s == Inside {
		return "inside"
	}
	return "outside"
}

func (s State) flip() State {
	if s == Inside {
		return Outside
	}
	return Inside
}

// Segment is a piece of a fragment that falls inside a fenced block.
type Segment struct {
	Text   string
	Opens  bool // the segment starts a new block
	Closes bool // a fence marker follows the segment
}

// Transition splits fragment on fence markers starting in state s.
// It returns the state after the fragment, the inside segments in order,
// and the number of markers crossed.
func Transition(s State, fragment string) (State, []Segment, int) {
	if !strings.Contains(fragment, Fence) {
		if s == Inside {
			return s, []Segment{{Text: fragment}}, 0
		}
		return s, nil, 0
	}

	parts := strings.Split(fragment, Fence)
	var segs []Segment
	for i, part := range parts {
		opens := false
		if i > 0 {
			s = s.flip()
			opens = s == Inside
		}
		if s != Inside {
			continue
		}
		segs = append(segs, Segment{
			Text:   part,
			Opens:  opens,
			Closes: i < len(parts)-1,
		})
	}
	return s, segs, len(parts) - 1
}

// Extractor accumulates fragments of one answer. It is not safe for
// concurrent use; each request owns its own.
type Extractor struct {
	lang  string
	state State

	output  strings.Builder
	code    strings.Builder
	block   strings.Builder
	fences  int
	written int
}

// New returns an extractor for code tagged with lang, e.g. "js".
func New(lang string) *Extractor {
	return &Extractor{lang: lang}
}

// Feed consumes the next fragment.
func (e *Extractor) Feed(fragment string) {
	e.output.WriteString(fragment)
	e.written++

	next, segs, crossed := Transition(e.state, fragment)
	e.fences += crossed
	for _, seg := range segs {
		if seg.Opens {
			e.block.Reset()
		}
		e.block.WriteString(seg.Text)
		if seg.Closes {
			e.closeBlock()
		}
	}
	e.state = next
}

func (e *Extractor) closeBlock() {
	e.code.WriteString(strings.TrimPrefix(e.block.String(), e.lang+"\n"))
	e.block.Reset()
}

// State reports whether the last fragment left a block open.
func (e *Extractor) State() State { return e.state }

// Fences is the number of fence markers seen so far.
func (e *Extractor) Fences() int { return e.fences }

// Fragments is the number of fragments fed so far.
func (e *Extractor) Fragments() int { return e.written }

// Output is the raw concatenation of everything fed so far.
func (e *Extractor) Output() string { return e.output.String() }

// Result returns the best-effort code. A block still open at the end of the
// stream counts as code.
func (e *Extractor) Result() string {
	code := e.code.String()
	if e.state == Inside {
		code += strings.TrimPrefix(e.block.String(), e.lang+"\n")
	}
	if code = strings.TrimSpace(code); code != "" {
		return code
	}

	output := e.output.String()
	if block, ok := Fallback(output, e.lang); ok {
		return block
	}
	return output
}

// Fallback splits the whole output on fence markers and returns the first
// block starting with lang (or its lowercase form), with that tag removed.
func Fallback(output, lang string) (string, bool) {
	if !strings.Contains(output, Fence) {
		return "", false
	}
	lower := strings.ToLower(lang)
	blocks := strings.Split(output, Fence)
	for i := 1; i < len(blocks); i += 2 {
		block := blocks[i]
		switch {
		case strings.HasPrefix(block, lang):
			return strings.TrimSpace(strings.TrimPrefix(block, lang)), true
		case strings.HasPrefix(block, lower):
			return strings.TrimSpace(strings.TrimPrefix(block, lower)), true
		}
	}
	return "", false
}

// Extract runs fragments through a fresh extractor.
func Extract(fragments []string, lang string) string {
	e := New(lang)
	for _, f := range fragments {
		e.Feed(f)
	}
	return e.Result()
}
