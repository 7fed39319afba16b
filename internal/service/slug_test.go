package service

import "testing"

func TestSlugify(t *testing.T) {
	cases := []struct {
		name  string
		title string
		want  string
	}{
		{"basic", "Printer Not Detected", "printer-not-detected"},
		{"punctuation stripped", "VPN: Can't Connect!", "vpn-cant-connect"},
		{"collapses whitespace", "  Reset   AD    Password ", "reset-ad-password"},
		{"underscores become hyphens", "wifi_setup_guide", "wifi-setup-guide"},
		{"keeps digits", "Office 365 Login Loop", "office-365-login-loop"},
		{"trailing punctuation", "What is DNS?", "what-is-dns"},
		{"no alphanumerics", "!!! ???", ""},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Slugify(tc.title); got != tc.want {
				t.Fatalf("Slugify(%q) = %q, want %q", tc.title, got, tc.want)
			}
		})
	}
}
