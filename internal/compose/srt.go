package compose

import (
	"fmt"
	"strings"
	"time"
)

// Caption is one timed subtitle cue.
type Caption struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// formatSRT renders captions as a SubRip document. Cues are numbered in the
// order given; callers sort beforehand if they care.
func formatSRT(captions []Caption) string {
	var b strings.Builder
	for i, c := range captions {
		fmt.Fprintf(&b, "%d\n", i+1)
		b.WriteString(formatSRTTime(c.Start))
		b.WriteString(" --> ")
		b.WriteString(formatSRTTime(c.End))
		b.WriteByte('\n')
		b.WriteString(strings.TrimSpace(c.Text))
		b.WriteString("\n\n")
	}
	return b.String()
}

// formatSRTTime renders a duration as HH:MM:SS,mmm per SubRip convention.
func formatSRTTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	millis := d.Milliseconds()
	hours := millis / 3_600_000
	millis -= hours * 3_600_000
	minutes := millis / 60_000
	millis -= minutes * 60_000
	seconds := millis / 1000
	millis -= seconds * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, millis)
}
