package chat

import (
	"iter"
	"regexp"
	"strconv"
	"strings"
)

const (
	MinStress = 0
	MaxStress = 100
)

var (
	stressTag = regexp.MustCompile(`(?i)\[STRESS:\s*(\d+)\]`)
	// matches a tag that is still being streamed at the end of the text.
	partialStressTag = regexp.MustCompile(`(?i)\[(?:S(?:T(?:R(?:E(?:S(?:S(?::\s*\d*)?)?)?)?)?)?)?$`)
)

// StressTracker removes [STRESS: XX] tags from a streamed reply and reports
// the most recent level. The zero value is ready to use.
type StressTracker struct {
	full strings.Builder
}

// Feed appends increment and returns the text to display so far together with
// the latest stress level, if any tag has been seen.
func (t *StressTracker) Feed(increment string) (string, int, bool) {
	t.full.WriteString(increment)
	full := t.full.String()

	level, found := lastStress(full)

	display := stressTag.ReplaceAllString(full, "")
	if loc := partialStressTag.FindStringIndex(display); loc != nil {
		display = display[:loc[0]]
	}

	return strings.TrimSpace(display), level, found
}

// Raw returns everything fed so far, tags included.
func (t *StressTracker) Raw() string {
	return t.full.String()
}

func lastStress(text string) (int, bool) {
	matches := stressTag.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return 0, false
	}
	value, err := strconv.Atoi(matches[len(matches)-1][1])
	if err != nil {
		// only overflow can fail here
		return MaxStress, true
	}
	return clampStress(value), true
}

func clampStress(v int) int {
	if v < MinStress {
		return MinStress
	}
	if v > MaxStress {
		return MaxStress
	}
	return v
}

// StripStress turns a stream of reply increments into cumulative display
// snapshots without stress tags. onStress is called whenever the level changes.
func StripStress(seq iter.Seq2[string, error], onStress func(int)) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var tracker StressTracker
		last := -1
		for chunk, err := range seq {
			if err != nil {
				yield("", err)
				return
			}
			display, level, found := tracker.Feed(chunk)
			if found && level != last {
				last = level
				if onStress != nil {
					onStress(level)
				}
			}
			if !yield(display, nil) {
				return
			}
		}
	}
}

// Accumulate turns a stream of increments into cumulative snapshots.
func Accumulate(seq iter.Seq2[string, error]) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var full strings.Builder
		for chunk, err := range seq {
			if err != nil {
				yield("", err)
				return
			}
			full.WriteString(chunk)
			if !yield(full.String(), nil) {
				return
			}
		}
	}
}
