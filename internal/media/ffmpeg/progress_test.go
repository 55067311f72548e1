package ffmpeg

import (
	"testing"
	"time"
)

func TestParseTimeToken(t *testing.T) {
	cases := []struct {
		name string
		line string
		want float64
		ok   bool
	}{
		{
			name: "stats line",
			line: "frame=  120 fps= 30 q=28.0 size=    1024KiB time=00:01:30.50 bitrate= 928.4kbits/s speed=1.01x",
			want: 90.5,
			ok:   true,
		},
		{
			name: "hours",
			line: "time=01:02:03.25",
			want: 3723.25,
			ok:   true,
		},
		{
			name: "no token",
			line: "Press [q] to stop, [?] for help",
			ok:   false,
		},
		{
			name: "malformed token",
			line: "time=xx:yy:zz",
			ok:   false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseTimeToken(tc.line)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if ok && got != tc.want {
				t.Fatalf("seconds = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestProgressParserEmitsOncePerDecile(t *testing.T) {
	var observations []Progress
	parser := NewProgressParser(100, func(p Progress) {
		observations = append(observations, p)
	})

	lines := []string{
		"time=00:00:05.00", // 5%, below first boundary but decile 0
		"time=00:00:08.00", // still decile 0, suppressed
		"time=00:00:12.00", // 12%, decile 1
		"time=00:00:19.00", // still decile 1, suppressed
		"time=00:00:45.00", // 45%, decile 4
		"time=00:01:40.00", // 100%, decile 10
	}
	for _, line := range lines {
		parser.ConsumeLine(line)
	}

	percents := make([]int, 0, len(observations))
	for _, obs := range observations {
		percents = append(percents, int(obs.Percent))
	}
	want := []int{5, 12, 45, 100}
	if len(percents) != len(want) {
		t.Fatalf("got %d observations %v, want %v", len(percents), percents, want)
	}
	for i := range want {
		if percents[i] != want[i] {
			t.Fatalf("observation %d = %d%%, want %d%%", i, percents[i], want[i])
		}
	}
}

func TestProgressParserETA(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	parser := &ProgressParser{
		totalSeconds: 200,
		now:          func() time.Time { return clock },
		lastDecile:   -1,
	}
	parser.startedAt = clock

	var got Progress
	parser.onProgress = func(p Progress) { got = p }

	// Half the media is done after one minute of wall time, so another
	// minute should remain.
	clock = clock.Add(time.Minute)
	parser.ConsumeLine("time=00:01:40.00")

	if got.Percent != 50 {
		t.Fatalf("percent = %v, want 50", got.Percent)
	}
	if got.ETA != time.Minute {
		t.Fatalf("eta = %v, want 1m", got.ETA)
	}
}

func TestProgressParserIgnoresZeroDuration(t *testing.T) {
	called := false
	parser := NewProgressParser(0, func(Progress) { called = true })
	parser.ConsumeLine("time=00:00:10.00")
	if called {
		t.Fatal("parser emitted progress with unknown total duration")
	}
}
