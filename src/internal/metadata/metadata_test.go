package metadata

import "testing"

func TestEffectiveArtist(t *testing.T) {
	artist := "Khemmis"
	albumArtist := "Various Artists"

	t1 := Tags{Artist: &artist}
	if got := t1.EffectiveArtist(); got == nil || *got != "Khemmis" {
		t.Fatalf("expected fallback to Artist, got %v", got)
	}

	t2 := Tags{Artist: &artist, AlbumArtist: &albumArtist}
	if got := t2.EffectiveArtist(); got == nil || *got != "Various Artists" {
		t.Fatalf("expected AlbumArtist to win, got %v", got)
	}

	t3 := Tags{}
	if got := t3.EffectiveArtist(); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestNonEmpty(t *testing.T) {
	if nonEmpty("  ") != nil {
		t.Fatal("blank string must yield nil")
	}
	if got := nonEmpty(" Candlelight "); got == nil || *got != "Candlelight" {
		t.Fatalf("expected trimmed value, got %v", got)
	}
}

func TestProbeDurationUnsupportedExtension(t *testing.T) {
	if _, ok := probeDuration("/does/not/exist.flac"); ok {
		t.Fatal("non-mp3 extensions must never be probed")
	}
}

func TestProbeDurationMissingFile(t *testing.T) {
	if _, ok := probeDuration("/does/not/exist.mp3"); ok {
		t.Fatal("missing file must yield ok=false")
	}
}
