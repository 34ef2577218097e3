package scan

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/John-Robertt/IFDB/internal/domain"
)

var (
	// 年份：19xx / 20xx，可带括号。
	yearRE = regexp.MustCompile(`[\(\[]?\b((?:19|20)\d{2})\b[\)\]]?`)
	// 第一个发布标签之后的内容都不是标题。
	releaseTagRE = regexp.MustCompile(`(?i)\b(2160p|1080p|720p|576p|480p|bluray|blu-ray|bdrip|brrip|web-?dl|webrip|dvdrip|hdtv|remux|x264|x265|h264|h265|hevc|10bit)\b`)
	// 多段文件的分段后缀，例如 "- CD1"、"disc 2"。"part" 常见于标题本身，不处理。
	partRE = regexp.MustCompile(`(?i)[\s\-]*\b(cd|disc|disk)\s*\d{1,2}$`)
)

const trimSet = " -_.,:;[](){}"

// UnmatchedError 表示无法从文件名或父目录得到标题。
type UnmatchedError struct {
	File string
}

func (e *UnmatchedError) Error() string {
	return "无法从文件名或父目录解析出标题：" + e.File
}

// Guess 从文件名推断搜索条件；文件名得不到标题时退回父目录名。
//
// 例："Star.Wars.Despecialized.Edition.(2014).1080p.mkv" => {"Star Wars Despecialized Edition", 2014}
func Guess(f domain.MediaFile) (domain.Query, error) {
	if q, ok := guessName(f.Base); ok {
		return q, nil
	}
	if f.AbsPath != "" {
		if q, ok := guessName(filepath.Base(filepath.Dir(f.AbsPath))); ok {
			return q, nil
		}
	}
	return domain.Query{}, &UnmatchedError{File: f.RelPath}
}

func guessName(s string) (domain.Query, bool) {
	s = strings.NewReplacer(".", " ", "_", " ").Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	if loc := releaseTagRE.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}

	year, cut := 0, len(s)
	// 取最后一个“前面仍有标题”的年份，兼容 "1917 2019"、"2001 A Space Odyssey (1968)"。
	for _, m := range yearRE.FindAllStringSubmatchIndex(s, -1) {
		if strings.Trim(s[:m[0]], trimSet) == "" {
			continue
		}
		year, _ = strconv.Atoi(s[m[2]:m[3]])
		cut = m[0]
	}
	s = s[:cut]

	s = partRE.ReplaceAllString(strings.Trim(s, trimSet), "")
	s = strings.Trim(s, trimSet)
	if s == "" {
		return domain.Query{}, false
	}
	return domain.NewQuery(s, year), true
}
