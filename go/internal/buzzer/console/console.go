package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mcdev12/quizhub/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Hold thresholds of the quizmaster button.
const (
	ShortPressMax    = 600 * time.Millisecond
	LongPressMin     = 1200 * time.Millisecond
	VeryLongPressMin = 4000 * time.Millisecond
)

var ErrUnknownPress = errors.New("unknown press")

// Classify maps a hold duration onto a press. Holds between ShortPressMax and
// LongPressMin are ambiguous and classify as PressNone.
func Classify(hold time.Duration) models.Press {
	switch {
	case hold >= VeryLongPressMin:
		return models.PressVeryLong
	case hold >= LongPressMin:
		return models.PressLong
	case hold > 0 && hold < ShortPressMax:
		return models.PressShort
	default:
		return models.PressNone
	}
}

// Parse reads one console line: a press name (s, l, v, short, long,
// very_long) or a hold duration such as 800ms or 4.5s.
func Parse(line string) (models.Press, error) {
	word := strings.ToLower(strings.TrimSpace(line))
	switch word {
	case "s", "short":
		return models.PressShort, nil
	case "l", "long":
		return models.PressLong, nil
	case "v", "vl", "very_long", "verylong":
		return models.PressVeryLong, nil
	}

	hold, err := time.ParseDuration(word)
	if err != nil {
		return models.PressNone, fmt.Errorf("%q: %w", line, ErrUnknownPress)
	}
	p := Classify(hold)
	if p == models.PressNone {
		return models.PressNone, fmt.Errorf("%q: hold %s is not a short, long or very long press: %w", line, hold, ErrUnknownPress)
	}
	return p, nil
}

// Submitter receives classified presses.
type Submitter interface {
	SubmitPress(p models.Press) bool
}

// Run reads presses from r until EOF or ctx is cancelled. Blank lines and
// lines starting with # are skipped; unparseable lines are logged.
func Run(ctx context.Context, r io.Reader, sink Submitter) error {
	lines := make(chan string)
	errCh := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errCh <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errCh:
					if err != nil {
						return fmt.Errorf("read console: %w", err)
					}
				default:
				}
				return nil
			}
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "#") {
				continue
			}
			p, err := Parse(trimmed)
			if err != nil {
				log.Warn().Err(err).Msg("console input ignored")
				continue
			}
			if sink.SubmitPress(p) {
				log.Debug().Str("press", p.String()).Msg("console press")
			}
		}
	}
}
