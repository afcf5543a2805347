package checker

import (
	"strings"
	"testing"
	"time"
)

func TestOutcomeForCode(t *testing.T) {
	tests := []struct {
		code int
		want Outcome
	}{
		{0, OutcomeAvailable},
		{1, OutcomeTaken},
		{2, OutcomeRejected},
		{3, OutcomeUnrecognized},
		{-5, OutcomeUnrecognized},
		{99, OutcomeUnrecognized},
	}

	for _, tt := range tests {
		if got := outcomeForCode(tt.code); got != tt.want {
			t.Errorf("outcomeForCode(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestRecord(t *testing.T) {
	tests := []struct {
		name string
		res  Result
		want string
	}{
		{
			name: "available with latency",
			res: Result{
				Identifier: "abc12",
				Outcome:    OutcomeAvailable,
				RemoteCode: 0,
				Latency:    125 * time.Millisecond,
			},
			want: "abc12,available,0,0.125,",
		},
		{
			name: "taken",
			res: Result{
				Identifier: "take1",
				Outcome:    OutcomeTaken,
				RemoteCode: 1,
				Latency:    time.Second,
			},
			want: "take1,taken,1,1.000,",
		},
		{
			name: "fatal error omits remote code",
			res: Result{
				Identifier:  "ghost",
				Outcome:     OutcomeFatalError,
				RemoteCode:  -1,
				ErrorDetail: "retry attempts exhausted: http_500",
			},
			want: "ghost,fatal_error,,0.000,retry attempts exhausted: http_500",
		},
		{
			name: "detail delimiters sanitized",
			res: Result{
				Identifier:  "noisy",
				Outcome:     OutcomeFatalError,
				RemoteCode:  -1,
				ErrorDetail: "dial tcp, refused\nretrying",
			},
			want: "noisy,fatal_error,,0.000,dial tcp; refused retrying",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.res.Record(); got != tt.want {
				t.Errorf("Record() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecordHeaderMatchesFieldCount(t *testing.T) {
	header := strings.Split(RecordHeader, ",")
	line := strings.Split(Result{Identifier: "x", Outcome: OutcomeAvailable}.Record(), ",")

	if len(header) != len(line) {
		t.Errorf("header has %d columns, record has %d", len(header), len(line))
	}
}
