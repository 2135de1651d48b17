package llm

import (
	"bufio"
	"bytes"
	"io"
)

type sseDecoder struct {
	r *bufio.Reader
}

func newSSEDecoder(r io.Reader) *sseDecoder {
	return &sseDecoder{r: bufio.NewReaderSize(r, 64*1024)}
}

// Next returns the data payload of the next event. Multiple data lines are
// joined with "\n"; comments and other fields are skipped.
func (d *sseDecoder) Next() ([]byte, error) {
	var data [][]byte
	for {
		line, err := d.r.ReadBytes('\n')
		if err != nil {
			if line = bytes.TrimRight(line, "\r\n"); len(line) > 0 {
				data = appendData(data, line)
			}
			if len(data) > 0 {
				return bytes.Join(data, []byte("\n")), nil
			}
			return nil, err
		}

		line = bytes.TrimRight(line, "\r\n")
		if len(line) == 0 {
			if len(data) == 0 {
				continue
			}
			return bytes.Join(data, []byte("\n")), nil
		}
		if line[0] == ':' {
			continue
		}
		data = appendData(data, line)
	}
}

func appendData(dst [][]byte, line []byte) [][]byte {
	if !bytes.HasPrefix(line, []byte("data:")) {
		return dst
	}
	val := line[len("data:"):]
	if len(val) > 0 && val[0] == ' ' {
		val = val[1:]
	}
	return append(dst, append([]byte(nil), val...))
}
