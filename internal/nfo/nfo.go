package nfo

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/John-Robertt/IFDB/internal/domain"
)

// PosterFile 是与 NFO 同目录的海报文件名。
const PosterFile = "poster.jpg"

type movie struct {
	XMLName xml.Name `xml:"movie"`

	Title         string `xml:"title"`
	OriginalTitle string `xml:"originaltitle,omitempty"`
	SortTitle     string `xml:"sorttitle,omitempty"`
	Tagline       string `xml:"tagline,omitempty"`
	Plot          string `xml:"plot,omitempty"`

	Year   int    `xml:"year,omitempty"`
	Rating string `xml:"rating,omitempty"`

	Directors []string `xml:"director,omitempty"`
	Sets      []string `xml:"set,omitempty"`
	Genres    []string `xml:"genre,omitempty"`
	Tags      []string `xml:"tag,omitempty"`

	Thumb    string `xml:"thumb,omitempty"`
	UniqueID *uid   `xml:"uniqueid,omitempty"`
	Website  string `xml:"website,omitempty"`
}

type uid struct {
	Type    string `xml:"type,attr"`
	Default bool   `xml:"default,attr"`
	Value   string `xml:",chardata"`
}

// Encode 把 FaneditMeta 转成 Kodi/Jellyfin/Emby 可读取的 NFO（XML）。
//
// 规则：
// - 剪辑者写为 director，合集写为 set，类型写为 tag
// - 评分保留一位小数；0 分也输出（与页面上的 "(0)" 对应）
// - hasPoster=false 时不输出 thumb
func Encode(meta domain.FaneditMeta, hasPoster bool) ([]byte, error) {
	title := strings.TrimSpace(meta.Title)

	m := movie{
		Title:         title,
		OriginalTitle: strings.TrimSpace(meta.OriginalTitle),
		SortTitle:     title,
		Tagline:       strings.TrimSpace(meta.Tagline),
		Plot:          strings.TrimSpace(meta.Summary),

		Year:   meta.Year,
		Rating: strconv.FormatFloat(meta.Rating, 'f', 1, 64),

		Directors: nilIfEmpty(meta.Editors.Items()),
		Sets:      nilIfEmpty(meta.Collections.Items()),
		Genres:    nilIfEmpty(meta.Genres.Items()),
		Tags:      nilIfEmpty(meta.Tags.Items()),

		Website: strings.TrimSpace(meta.Website),
	}
	if hasPoster {
		m.Thumb = PosterFile
	}
	if id := strings.TrimSpace(meta.ID); id != "" {
		m.UniqueID = &uid{Type: "ifdb", Default: true, Value: id}
	}

	b, err := xml.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	// 约定：输出带 standalone="yes" 的 XML 头，便于与常见刮削器产物兼容。
	const header = `<?xml version="1.0" encoding="UTF-8" standalone="yes" ?>` + "\n"
	return append([]byte(header), b...), nil
}

func nilIfEmpty(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	return in
}
