package logger

import "testing"

func TestMaskIP(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"ipv4", "192.168.1.100", "192.168.*.*"},
		{"ipv6", "2001:0db8:85a3:0000:0000:8a2e:0370:7334", "2001:0db8:85a3:0000:*:*:*:*"},
		{"empty", "", ""},
		{"malformed", "not-an-ip", "***"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MaskIP(tc.in); got != tc.want {
				t.Errorf("MaskIP(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
