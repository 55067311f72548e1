package ffmpeg

import (
	"regexp"
	"strconv"
	"time"
)

// ffmpeg reports elapsed media time on its diagnostic stream as
// "time=HH:MM:SS.cs" tokens embedded in stats lines.
var timeTokenRe = regexp.MustCompile(`time=(\d+):(\d{2}):(\d{2})\.(\d+)`)

// Progress is one observation derived from the encoder's diagnostic stream.
type Progress struct {
	MediaSeconds float64
	Percent      float64
	ETA          time.Duration
}

// ProgressParser turns raw diagnostic lines into percent/ETA observations.
// It emits through the callback only when progress crosses a 10% boundary, so
// a multi-hour encode produces at most ten observations. The parser never
// spawns processes; it is fed lines by the encoder and exercised directly in
// tests.
type ProgressParser struct {
	totalSeconds float64
	onProgress   func(Progress)

	now        func() time.Time
	startedAt  time.Time
	lastDecile int
}

// NewProgressParser creates a parser for a source of the given total duration.
// onProgress may be nil.
func NewProgressParser(totalSeconds float64, onProgress func(Progress)) *ProgressParser {
	parser := &ProgressParser{
		totalSeconds: totalSeconds,
		onProgress:   onProgress,
		now:          time.Now,
		lastDecile:   -1,
	}
	parser.startedAt = parser.now()
	return parser
}

// ConsumeLine inspects one diagnostic line for a time= token and reports
// progress when a new 10% boundary is reached.
func (p *ProgressParser) ConsumeLine(line string) {
	mediaSeconds, ok := ParseTimeToken(line)
	if !ok || p.totalSeconds <= 0 {
		return
	}

	fraction := mediaSeconds / p.totalSeconds
	if fraction < 0 {
		return
	}
	if fraction > 1 {
		fraction = 1
	}

	decile := int(fraction * 10)
	if decile <= p.lastDecile {
		return
	}
	p.lastDecile = decile

	progress := Progress{
		MediaSeconds: mediaSeconds,
		Percent:      fraction * 100,
	}
	if fraction > 0 {
		elapsed := p.now().Sub(p.startedAt)
		progress.ETA = time.Duration(float64(elapsed)/fraction) - elapsed
	}
	if p.onProgress != nil {
		p.onProgress(progress)
	}
}

// ParseTimeToken extracts the elapsed media seconds from a diagnostic line.
func ParseTimeToken(line string) (float64, bool) {
	match := timeTokenRe.FindStringSubmatch(line)
	if match == nil {
		return 0, false
	}
	hours, _ := strconv.Atoi(match[1])
	minutes, _ := strconv.Atoi(match[2])
	seconds, _ := strconv.Atoi(match[3])
	frac, _ := strconv.ParseFloat("0."+match[4], 64)
	return float64(hours*3600+minutes*60+seconds) + frac, true
}
