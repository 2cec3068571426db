// Package metadata is the tag-reader collaborator: a pure path-to-tags
// function consumed by the index builder. It is treated as an external
// boundary (spec §1) — callers never propagate its errors as fatal, they
// simply skip the file.
package metadata

import (
	"os"
	"strings"

	"github.com/dhowden/tag"
	"github.com/pkg/errors"
)

// Tags holds the optional per-song fields the catalog persists.
type Tags struct {
	Title       *string
	Artist      *string
	AlbumArtist *string
	Album       *string
	Year        *int
	TrackNumber *int
	DiscNumber  *int
	Duration    *int // seconds
	HasPicture  bool
}

// Reader reads tags for a single audio file path. The default implementation
// is Read, backed by github.com/dhowden/tag; tests substitute a fake.
type Reader func(path string) (Tags, error)

// Read opens path and extracts its tags via dhowden/tag. Duration is
// best-effort: it is only probed for formats probeDuration supports (mp3) and
// is left nil otherwise, matching the spec's treatment of duration as an
// optional field.
func Read(path string) (Tags, error) {
	f, err := os.Open(path)
	if err != nil {
		return Tags{}, errors.Wrapf(err, "cannot open %q for tag reading", path)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return Tags{}, errors.Wrapf(err, "cannot read tags from %q", path)
	}

	var t Tags
	t.Title = nonEmpty(m.Title())
	t.Album = nonEmpty(m.Album())

	artist := nonEmpty(m.Artist())
	albumArtist := nonEmpty(m.AlbumArtist())
	t.Artist = artist
	t.AlbumArtist = albumArtist

	if y := m.Year(); y != 0 {
		t.Year = &y
	}
	if trackNo, _ := m.Track(); trackNo != 0 {
		t.TrackNumber = &trackNo
	}
	if discNo, _ := m.Disc(); discNo != 0 {
		t.DiscNumber = &discNo
	}

	t.HasPicture = m.Picture() != nil

	if dur, ok := probeDuration(path); ok {
		t.Duration = &dur
	}

	return t, nil
}

// EffectiveArtist returns the value to be used for directory-aggregate
// inference: a song's AlbumArtist when present, else its Artist (spec §4.C).
func (t Tags) EffectiveArtist() *string {
	if t.AlbumArtist != nil {
		return t.AlbumArtist
	}
	return t.Artist
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
