package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns every line.
func Read(path string, maxLines int) ([]string, error) {
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
		for i := range count {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Entry is one parsed log line.
type Entry struct {
	Time    time.Time
	Level   string
	Message string
	// Screen is the diagnostic label of the controller that logged, if any.
	Screen string
	// Fields holds the remaining structured fields as key=value pairs, sorted
	// by key.
	Fields []string
	Raw    string
}

// Keys written by the logger that Parse lifts into Entry fields.
var reservedKeys = map[string]bool{
	"ts":     true,
	"level":  true,
	"msg":    true,
	"screen": true,
	"caller": true,
}

// Parse decodes one zap JSON line. Non-JSON input becomes an INFO entry with
// the raw text as its message.
func Parse(line string) Entry {
	trimmed := strings.TrimSpace(line)
	if !gjson.Valid(trimmed) || !strings.HasPrefix(trimmed, "{") {
		return Entry{Level: "INFO", Message: trimmed, Raw: line}
	}
	doc := gjson.Parse(trimmed)
	e := Entry{
		Level:   strings.ToUpper(doc.Get("level").String()),
		Message: doc.Get("msg").String(),
		Screen:  doc.Get("screen").String(),
		Raw:     line,
	}
	if e.Level == "" {
		e.Level = "INFO"
	}
	if ts := doc.Get("ts").String(); ts != "" {
		if parsed, err := time.Parse("2006-01-02T15:04:05.000Z0700", ts); err == nil {
			e.Time = parsed
		}
	}
	doc.ForEach(func(key, value gjson.Result) bool {
		if !reservedKeys[key.String()] {
			e.Fields = append(e.Fields, key.String()+"="+value.String())
		}
		return true
	})
	sort.Strings(e.Fields)
	return e
}

// ParseLines parses every line, skipping blanks.
func ParseLines(lines []string) []Entry {
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		entries = append(entries, Parse(line))
	}
	return entries
}

// Format renders e as a single line: time, level, screen and message
// followed by the extra fields.
func (e Entry) Format() string {
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(e.Time.In(time.Local).Format("15:04:05"))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s", e.Level)
	if e.Screen != "" {
		b.WriteString(" [")
		b.WriteString(e.Screen)
		b.WriteByte(']')
	}
	if e.Message != "" {
		b.WriteString(" ")
		b.WriteString(e.Message)
	}
	for _, f := range e.Fields {
		b.WriteString("  ")
		b.WriteString(f)
	}
	return b.String()
}
