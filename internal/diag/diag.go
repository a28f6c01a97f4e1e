// Package diag reads the client's own glog output for the diagnostics view
// and the tail command.
package diag

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Severity is a glog severity letter.
type Severity byte

const (
	Info    Severity = 'I'
	Warning Severity = 'W'
	Error   Severity = 'E'
	Fatal   Severity = 'F'
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "INFO"
	case Warning:
		return "WARN"
	case Error:
		return "ERROR"
	case Fatal:
		return "FATAL"
	default:
		return ""
	}
}

func (s Severity) rank() int {
	switch s {
	case Info:
		return 1
	case Warning:
		return 2
	case Error:
		return 3
	case Fatal:
		return 4
	default:
		return 0
	}
}

// Entry is one log line. Lines without a glog header keep Severity zero and
// carry the whole line in Message.
type Entry struct {
	Severity Severity
	Time     time.Time
	Thread   int
	Source   string
	Message  string
	Raw      string
}

// Lmmdd hh:mm:ss.uuuuuu threadid file:line] msg
var headerRE = regexp.MustCompile(`^([IWEF])(\d{2})(\d{2}) (\d{2}):(\d{2}):(\d{2})\.(\d{6})\s+(\d+) ([^\]]+)\] ?(.*)$`)

// Parse splits a glog line. glog omits the year, so it is taken from ref.
func Parse(line string, ref time.Time) Entry {
	m := headerRE.FindStringSubmatch(line)
	if m == nil {
		return Entry{Message: line, Raw: line}
	}
	n := func(i int) int {
		v, _ := strconv.Atoi(m[i])
		return v
	}
	ts := time.Date(ref.Year(), time.Month(n(2)), n(3), n(4), n(5), n(6), n(7)*1000, ref.Location())
	// Entries stamped after ref belong to the previous year.
	if ts.After(ref.Add(24 * time.Hour)) {
		ts = ts.AddDate(-1, 0, 0)
	}
	return Entry{
		Severity: Severity(m[1][0]),
		Time:     ts,
		Thread:   n(8),
		Source:   m[9],
		Message:  m[10],
		Raw:      line,
	}
}

// Tail returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns every line. A missing file yields no lines.
func Tail(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Read tails path and parses each line. Entries below min are dropped; glog's
// own file preamble and other headerless lines are dropped whenever min is set.
func Read(path string, maxLines int, min Severity) ([]Entry, error) {
	lines, err := Tail(path, maxLines)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		e := Parse(line, now)
		if e.Severity.rank() < min.rank() {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
