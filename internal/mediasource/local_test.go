package mediasource

import "testing"

func TestParseTitleAndYear(t *testing.T) {
	cases := []struct {
		name      string
		wantTitle string
		wantYear  *int32
	}{
		{"The.Matrix.1999.1080p.BluRay.mkv", "The Matrix", int32Ptr(1999)},
		{"Spirited_Away_(2001)_[2160p][HEVC].mkv", "Spirited Away", int32Ptr(2001)},
		{"some random song.mp3", "some random song", nil},
	}

	for _, c := range cases {
		title, year := parseTitleAndYear(c.name)
		if title != c.wantTitle {
			t.Errorf("%q: title = %q, want %q", c.name, title, c.wantTitle)
		}
		if (year == nil) != (c.wantYear == nil) {
			t.Errorf("%q: year = %v, want %v", c.name, year, c.wantYear)
			continue
		}
		if year != nil && *year != *c.wantYear {
			t.Errorf("%q: year = %d, want %d", c.name, *year, *c.wantYear)
		}
	}
}

func int32Ptr(v int32) *int32 { return &v }
