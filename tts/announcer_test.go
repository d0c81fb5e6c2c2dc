package tts

import "testing"

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{
			name:     "plain title",
			input:    "Now playing. Bohemian Rhapsody",
			expected: "now_playing_bohemian_rhapsody",
		},
		{
			name:     "diacritics folded",
			input:    "Céline Déon",
			expected: "celine_deon",
		},
		{
			name:     "punctuation dropped",
			input:    "What's Up? (Official Video) [HD]",
			expected: "whats_up_official_video_hd",
		},
		{
			name:    "only symbols",
			input:   "??? !!!",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
		{
			name:     "digits kept",
			input:    "Track 42",
			expected: "track_42",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeName(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("SanitizeName(%q) = %q, expected an error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("SanitizeName(%q) returned error: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("SanitizeName(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}
