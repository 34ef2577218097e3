package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/John-Robertt/IFDB/internal/rank"
	"github.com/John-Robertt/IFDB/internal/title"
)

const (
	// ErrCodeNotFound 表示 --config 显式指定的文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

// 自动发现时按顺序尝试的文件名。
var discoverNames = []string{"ifdb.toml", "ifdb.json"}

const (
	DefaultCacheTTL = 7 * 24 * time.Hour
	// MaxRequestDelay 是 request_delay_ms 的上限（超出截断）。
	MaxRequestDelay = 30 * time.Second

	DefaultConcurrency = 2
	MaxConcurrency     = 8
)

// CLIArgs 是 CLI 可覆盖的配置项，并保留“是否显式指定”的信息。
type CLIArgs struct {
	ConfigPath string

	Debug    bool
	DebugSet bool

	BaseURL    string
	BaseURLSet bool

	NoCache bool
}

// FileConfig 对应 ifdb.toml / ifdb.json 的解析结构（两种格式字段名一致）。
type FileConfig struct {
	ShortenSW      bool         `json:"shorten_sw" toml:"shorten_sw"`
	ShortenLotR    bool         `json:"shorten_lotr" toml:"shorten_lotr"`
	Debug          bool         `json:"debug" toml:"debug"`
	LogFormat      string       `json:"log_format" toml:"log_format"`
	RequestDelayMS int          `json:"request_delay_ms" toml:"request_delay_ms"`
	CacheTTLHours  int          `json:"cache_ttl_hours" toml:"cache_ttl_hours"`
	CacheDir       string       `json:"cache_dir" toml:"cache_dir"`
	DBPath         string       `json:"db_path" toml:"db_path"`
	BaseURL        string       `json:"base_url" toml:"base_url"`
	Proxy          *ProxyConfig `json:"proxy" toml:"proxy"`
	ImageProxy     bool         `json:"image_proxy" toml:"image_proxy"`
	Scores         *ScoreConfig `json:"scores" toml:"scores"`
	Concurrency    int          `json:"concurrency" toml:"concurrency"`
	ExcludeDirs    []string     `json:"exclude_dirs" toml:"exclude_dirs"`
}

type ProxyConfig struct {
	URL string `json:"url" toml:"url"`
}

// ScoreConfig 允许覆盖打分阈值；为 0 的字段使用默认值。
type ScoreConfig struct {
	Initial int `json:"initial" toml:"initial"`
	Good    int `json:"good" toml:"good"`
	Ignore  int `json:"ignore" toml:"ignore"`
}

// Prefs 是每次 search/update 读取一次的偏好开关。
type Prefs struct {
	ShortenSW   bool
	ShortenLotR bool
	Debug       bool
}

// Flags 把偏好转成 title.Registry 使用的开关表。
func (p Prefs) Flags() map[string]bool {
	return map[string]bool{
		title.KeyStarWars: p.ShortenSW,
		title.KeyLotR:     p.ShortenLotR,
	}
}

// EffectiveConfig 是合并并规范化后的最终配置。
type EffectiveConfig struct {
	Source string // 实际读取的配置文件；未读取时为空

	Prefs     Prefs
	LogFormat string

	RequestDelay time.Duration
	CacheTTL     time.Duration
	CacheDir     string // 空表示不落盘缓存
	DBPath       string

	BaseURL    string
	ProxyURL   string
	ImageProxy bool

	Scores rank.Config

	// match 命令使用
	Concurrency int
	ExcludeDirs []string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则：
// 1) --config 指定：必须存在
// 2) 否则依次尝试 <cwd>/ifdb.toml、<cwd>/ifdb.json（都不存在则全部使用默认值）
//
// 相对路径（cache_dir / db_path）以配置文件所在目录为基准；没有配置文件时以 cwd 为基准。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	var (
		fc      FileConfig
		cfgPath string
	)
	if p := strings.TrimSpace(cli.ConfigPath); p != "" {
		cfgPath = absCleanFrom(cwdAbs, p)
		var exists bool
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
	} else {
		for _, name := range discoverNames {
			p := filepath.Join(cwdAbs, name)
			f, exists, e := readFileConfig(p)
			if e != nil {
				return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: p, Err: e}
			}
			if exists {
				fc, cfgPath = f, p
				break
			}
		}
	}

	base := cwdAbs
	if cfgPath != "" {
		base = filepath.Dir(cfgPath)
	}
	return merge(base, cli, fc, cfgPath)
}

func merge(base string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	invalid := func(err error) (EffectiveConfig, error) {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	debug := fc.Debug
	if cli.DebugSet {
		debug = cli.Debug
	}

	logFormat := strings.ToLower(strings.TrimSpace(fc.LogFormat))
	switch logFormat {
	case "":
		logFormat = "text"
	case "text", "json":
	default:
		return invalid(fmt.Errorf("log_format 只能是 text 或 json，实际是 %q", fc.LogFormat))
	}

	if fc.RequestDelayMS < 0 {
		return invalid(fmt.Errorf("request_delay_ms 不能为负数：%d", fc.RequestDelayMS))
	}
	delay := time.Duration(fc.RequestDelayMS) * time.Millisecond
	if delay > MaxRequestDelay {
		delay = MaxRequestDelay
	}

	ttl := DefaultCacheTTL
	if fc.CacheTTLHours < 0 {
		return invalid(fmt.Errorf("cache_ttl_hours 不能为负数：%d", fc.CacheTTLHours))
	}
	if fc.CacheTTLHours > 0 {
		ttl = time.Duration(fc.CacheTTLHours) * time.Hour
	}

	cacheDir := absCleanFrom(base, fc.CacheDir)
	if cacheDir == "" {
		cacheDir = filepath.Join(base, "cache")
	}
	if cli.NoCache {
		cacheDir = ""
	}
	dbPath := absCleanFrom(base, fc.DBPath)
	if dbPath == "" {
		dbPath = filepath.Join(base, "ifdb.db")
	}

	baseURL := strings.TrimSpace(fc.BaseURL)
	if cli.BaseURLSet {
		baseURL = strings.TrimSpace(cli.BaseURL)
	}
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return invalid(fmt.Errorf("base_url 无效：%q", baseURL))
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return invalid(fmt.Errorf("base_url 必须是 http/https：%q", baseURL))
		}
	}

	proxyURL := ""
	if fc.Proxy != nil {
		proxyURL = strings.TrimSpace(fc.Proxy.URL)
	}
	if proxyURL != "" {
		if _, err := url.Parse(proxyURL); err != nil {
			return invalid(fmt.Errorf("proxy.url 无效：%w", err))
		}
	}
	if fc.ImageProxy && proxyURL == "" {
		return invalid(errors.New("image_proxy=true 但 proxy.url 为空"))
	}

	scores, err := mergeScores(fc.Scores)
	if err != nil {
		return invalid(err)
	}

	concurrency := fc.Concurrency
	switch {
	case concurrency == 0:
		concurrency = DefaultConcurrency
	case concurrency < 0 || concurrency > MaxConcurrency:
		return invalid(fmt.Errorf("concurrency 必须在 1..%d 之间，实际是 %d", MaxConcurrency, fc.Concurrency))
	}
	excludeDirs := make([]string, 0, len(fc.ExcludeDirs))
	for _, d := range fc.ExcludeDirs {
		if d = strings.TrimSpace(d); d != "" {
			excludeDirs = append(excludeDirs, d)
		}
	}

	return EffectiveConfig{
		Source: cfgPath,
		Prefs: Prefs{
			ShortenSW:   fc.ShortenSW,
			ShortenLotR: fc.ShortenLotR,
			Debug:       debug,
		},
		LogFormat:    logFormat,
		RequestDelay: delay,
		CacheTTL:     ttl,
		CacheDir:     cacheDir,
		DBPath:       dbPath,
		BaseURL:      baseURL,
		ProxyURL:     proxyURL,
		ImageProxy:   fc.ImageProxy,
		Scores:       scores,
		Concurrency:  concurrency,
		ExcludeDirs:  excludeDirs,
	}, nil
}

func mergeScores(sc *ScoreConfig) (rank.Config, error) {
	cfg := rank.DefaultConfig()
	if sc == nil {
		return cfg, nil
	}
	if sc.Initial != 0 {
		cfg.InitialScore = sc.Initial
	}
	if sc.Good != 0 {
		cfg.GoodScore = sc.Good
	}
	if sc.Ignore != 0 {
		cfg.IgnoreScore = sc.Ignore
	}
	if cfg.IgnoreScore > cfg.GoodScore || cfg.GoodScore > cfg.InitialScore {
		return rank.Config{}, fmt.Errorf("scores 必须满足 ignore <= good <= initial，实际 %d/%d/%d",
			cfg.IgnoreScore, cfg.GoodScore, cfg.InitialScore)
	}
	return cfg, nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute；p 为空时返回空串。
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 按扩展名读取 TOML 或 JSON 配置。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(b, &fc)
	case ".json":
		err = json.Unmarshal(b, &fc)
	default:
		err = fmt.Errorf("不支持的配置文件格式：%q（只支持 .toml / .json）", filepath.Ext(path))
	}
	if err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
