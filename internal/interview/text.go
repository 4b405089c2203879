package interview

import (
	"bufio"
	"context"
	"io"
	"sync"
)

// lineReader lets a blocking reader such as stdin be read with a context.
// The scanning goroutine exits at EOF or once stop is called and the
// pending line is dropped.
type lineReader struct {
	lines chan string
	done  chan struct{}
	once  sync.Once
}

func newLineReader(r io.Reader) *lineReader {
	lr := &lineReader{lines: make(chan string), done: make(chan struct{})}
	go func() {
		defer close(lr.lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lr.lines <- sc.Text():
			case <-lr.done:
				return
			}
		}
	}()
	return lr
}

func (lr *lineReader) next(ctx context.Context) (string, error) {
	select {
	case line, ok := <-lr.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (lr *lineReader) stop() {
	lr.once.Do(func() { close(lr.done) })
}
