package encoding

import (
	"encoding"
	"errors"
	"testing"
)

var (
	_ encoding.TextMarshaler   = (*HexEncoding)(nil)
	_ encoding.TextUnmarshaler = (*HexEncoding)(nil)
)

type unmarshalTestCase struct {
	name, input string

	expectSegments int
	expectErr      error
}

func TestHexEncoderUnmarshalText(t *testing.T) {
	t.Parallel()

	tcs := []unmarshalTestCase{
		{
			name:      "empty",
			input:     "",
			expectErr: ErrEmpty,
		},
		{
			name:      "eof record",
			input:     ":00000001FF",
			expectErr: ErrEmpty,
		},
		{
			name:      "eof record with newlines",
			input:     "\n\n:00000001FF\n\n",
			expectErr: ErrEmpty,
		},
		{
			name:      "invalid bytes",
			input:     ":invalid",
			expectErr: ErrDecode,
		},
		{
			name:      "nonsense",
			input:     "u wot mate",
			expectErr: ErrDecode,
		},
		{
			name:           "data record",
			input:          ":10246200464C5549442050524F46494C4500464C33\n",
			expectSegments: 1,
		},
		{
			name:           "data records",
			input:          ":10246200464C5549442050524F46494C4500464C33\n:10246200464C5549442050524F46494C4500464C33\n",
			expectSegments: 2,
		},
		{
			name:      "too short",
			input:     ":FF0",
			expectErr: ErrDecode,
		},
	}

	for _, tc := range tcs {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			segs, err := unmarshal(tc)

			switch {
			case tc.expectErr != nil && err != nil:
				if !errors.Is(err, tc.expectErr) {
					t.Errorf("unexpected error: got: %s, want: %s", err, tc.expectErr)
				}
			case tc.expectErr != nil && err == nil:
				t.Errorf("expected error: %s", tc.expectErr)
			case tc.expectErr == nil && err != nil:
				t.Errorf("unexpected error: got: %v", err)
			case len(segs) != tc.expectSegments:
				t.Errorf("unexpected segment count: want: %d, got: %d", tc.expectSegments, len(segs))
			}
		})
	}
}

func TestHexEncoderMarshalText(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name         string
		input        []Segment
		expectOutput string
	}{
		{
			name:         "nil",
			input:        nil,
			expectOutput: ":00000001ff\n",
		},
		{
			name: "fixed string",
			input: []Segment{
				{Addr: 0x2462, Data: []byte("FLUID PROFILE\x00FL")},
			},
			expectOutput: ":10246200464c5549442050524f46494c4500464c33\n:00000001ff\n",
		},
	}

	for _, tc := range tcs {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			enc := HexEncoding{Segments: tc.input}

			out, err := enc.MarshalText()
			if err != nil {
				t.Fatalf("unexpected error: %s", err)
			}

			if string(out) != tc.expectOutput {
				t.Errorf("got: %q, want: %q", out, tc.expectOutput)
			}
		})
	}
}

func unmarshal(tc unmarshalTestCase) ([]Segment, error) {
	decoder := HexEncoding{}
	err := decoder.UnmarshalText([]byte(tc.input))

	return decoder.Segments, err
}
