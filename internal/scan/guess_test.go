package scan

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/John-Robertt/IFDB/internal/domain"
)

func TestGuess_FromFileName(t *testing.T) {
	cases := []struct {
		base string
		want domain.Query
	}{
		{"Star.Wars.Despecialized.Edition.(2014).1080p.BluRay.x264", domain.Query{Name: "Star Wars Despecialized Edition", Year: 2014}},
		{"The Hobbit - The Tolkien Edit [2013]", domain.Query{Name: "The Hobbit - The Tolkien Edit", Year: 2013}},
		{"2001 A Space Odyssey (1968)", domain.Query{Name: "2001 A Space Odyssey", Year: 1968}},
		{"1917 2019", domain.Query{Name: "1917", Year: 2019}},
		{"Purist_Edit_WEB-DL", domain.Query{Name: "Purist Edit"}},
		{"Fellowship Purist Edit - CD1", domain.Query{Name: "Fellowship Purist Edit"}},
		{"Deathly Hallows Part 2", domain.Query{Name: "Deathly Hallows Part 2"}},
	}
	for _, c := range cases {
		got, err := Guess(domain.MediaFile{Base: c.base, RelPath: c.base + ".mkv"})
		if err != nil {
			t.Fatalf("Guess(%q) 不期望错误：%v", c.base, err)
		}
		if got != c.want {
			t.Fatalf("Guess(%q)=%+v，期望 %+v", c.base, got, c.want)
		}
	}
}

func TestGuess_FallbackToParentDir(t *testing.T) {
	f := domain.MediaFile{
		AbsPath: filepath.Join("/lib", "Ring Trilogy Edit (2012)", "1080p.mkv"),
		RelPath: filepath.Join("Ring Trilogy Edit (2012)", "1080p.mkv"),
		Base:    "1080p",
	}
	got, err := Guess(f)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if got != (domain.Query{Name: "Ring Trilogy Edit", Year: 2012}) {
		t.Fatalf("期望回退到父目录，实际 %+v", got)
	}
}

func TestGuess_Unmatched(t *testing.T) {
	f := domain.MediaFile{AbsPath: filepath.Join("/lib", "[720p]", "1080p.mkv"), RelPath: "x", Base: "1080p"}
	_, err := Guess(f)
	var ue *UnmatchedError
	if !errors.As(err, &ue) || ue.File != "x" {
		t.Fatalf("期望 UnmatchedError，实际 %v", err)
	}
}
