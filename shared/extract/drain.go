package extract

import (
	"context"
	"errors"
	"io"
)

// Source yields fragments until io.EOF.
type Source interface {
	Recv() (string, error)
}

// Drain feeds every fragment of src into e until the source ends.
// observe, when set, sees each fragment as it arrives.
//
// A source that fails part-way is not fatal: the error is returned for the
// caller to log, and e.Result() still holds the partial extraction.
func Drain(ctx context.Context, src Source, e *Extractor, observe func(string)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fragment, err := src.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		e.Feed(fragment)
		if observe != nil {
			observe(fragment)
		}
	}
}

// sliceSource replays a fixed list of fragments.
type sliceSource struct {
	fragments []string
}

// FromSlice returns a Source over fragments.
func FromSlice(fragments []string) Source {
	return &sliceSource{fragments: fragments}
}

func (s *sliceSource) Recv() (string, error) {
	if len(s.fragments) == 0 {
		return "", io.EOF
	}
	f := s.fragments[0]
	s.fragments = s.fragments[1:]
	return f, nil
}
