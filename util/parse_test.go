package util

import "testing"

func TestParseSize(t *testing.T) {
	const def = 1 << 20
	tests := []struct {
		input string
		want  int64
	}{
		{"64KB", 64 << 10},
		{"10MB", 10 << 20},
		{"2GB", 2 << 30},
		{"512B", 512},
		{"1024", 1024},
		{"  10 MB  ", 10 << 20},
		{"10mb", 10 << 20},
		{"", def},
		{"invalid", def},
		{"-5KB", def},
		{"KB", def},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			if got := ParseSize(tc.input, def); got != tc.want {
				t.Errorf("ParseSize(%q) = %d, want %d", tc.input, got, tc.want)
			}
		})
	}
}
