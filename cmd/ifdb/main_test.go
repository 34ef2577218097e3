package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/John-Robertt/IFDB/internal/domain"
	"github.com/John-Robertt/IFDB/internal/store"
)

type cliEnv struct {
	root       string
	configPath string
	server     *httptest.Server
	hits       atomic.Int32
}

func setupCLITestEnv(t *testing.T) *cliEnv {
	t.Helper()
	env := &cliEnv{root: t.TempDir()}

	read := func(name string) []byte {
		b, err := os.ReadFile(filepath.Join("..", "..", "internal", "provider", "ifdb", "testdata", name))
		if err != nil {
			t.Fatalf("读取 fixture 失败：%v", err)
		}
		return b
	}
	listing, detail := read("listing.html"), read("detail.html")

	var poster bytes.Buffer
	if err := png.Encode(&poster, image.NewRGBA(image.Rect(0, 0, 8, 12))); err != nil {
		t.Fatalf("生成 png 失败：%v", err)
	}

	env.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.hits.Add(1)
		switch {
		case strings.HasPrefix(r.URL.Path, "/fanedit-search/search-results/"):
			_, _ = w.Write(listing)
		case r.URL.Path == "/" && r.URL.Query().Get("p") == "42":
			_, _ = w.Write(detail)
		case strings.HasSuffix(r.URL.Path, "/42.jpg"):
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(poster.Bytes())
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(env.server.Close)

	env.configPath = filepath.Join(env.root, "ifdb.toml")
	cfg := "shorten_sw = true\ndb_path = \"data/ifdb.db\"\ncache_dir = \"cache\"\n"
	if err := os.WriteFile(env.configPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("写入配置失败：%v", err)
	}
	return env
}

func (env *cliEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath, "--base-url", env.server.URL}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCLI_SearchNonTTYEmitsSingleJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, stderr, err := env.run(t, "search", "Star", "Wars", "Episode", "IV:", "Despecialized", "Edition")
	if err != nil {
		t.Fatalf("search 失败：%v\nstderr=%s", err, stderr)
	}

	var out domain.SearchOutcome
	if err := json.Unmarshal([]byte(stdout), &out); err != nil {
		t.Fatalf("stdout 不是合法的 SearchOutcome JSON：%v\nstdout=%q", err, stdout)
	}
	if len(out.Results) != 1 || out.Results[0].ID != "42" || out.Results[0].Score != 100 {
		t.Fatalf("结果不符合预期：%+v", out.Results)
	}
	if !strings.Contains(stderr, "完成：found=3") {
		t.Fatalf("stderr 缺少完成摘要：%q", stderr)
	}
}

func TestCLI_SearchManualNoResults(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := env.run(t, "search", "--manual", strings.Repeat("q", 90))
	if err != nil {
		t.Fatalf("search 失败：%v", err)
	}
	var out domain.SearchOutcome
	if err := json.Unmarshal([]byte(stdout), &out); err != nil {
		t.Fatalf("stdout 不是合法 JSON：%v", err)
	}
	if !out.NoResults || out.Results == nil || len(out.Results) != 0 {
		t.Fatalf("期望 no_results 与空数组：%+v", out)
	}
}

func TestCLI_UpdateWritesRecordAndSidecars(t *testing.T) {
	env := setupCLITestEnv(t)
	outDir := filepath.Join(env.root, "out")

	stdout, stderr, err := env.run(t, "update", "42", "--out", outDir)
	if err != nil {
		t.Fatalf("update 失败：%v\nstderr=%s", err, stderr)
	}
	var rec domain.FaneditMeta
	if err := json.Unmarshal([]byte(stdout), &rec); err != nil {
		t.Fatalf("stdout 不是合法的记录 JSON：%v\nstdout=%q", err, stdout)
	}
	if rec.Title != "SW Ep IV: Despecialized Edition" || rec.Year != 2014 {
		t.Fatalf("记录不符合预期：%+v", rec)
	}

	nfoBytes, err := os.ReadFile(filepath.Join(outDir, "movie.nfo"))
	if err != nil {
		t.Fatalf("缺少 movie.nfo：%v", err)
	}
	if !strings.Contains(string(nfoBytes), "<director>Harmy</director>") || !strings.Contains(string(nfoBytes), "<thumb>poster.jpg</thumb>") {
		t.Fatalf("NFO 内容不符合预期：%s", nfoBytes)
	}
	jpg, err := os.ReadFile(filepath.Join(outDir, "poster.jpg"))
	if err != nil || len(jpg) < 2 || jpg[0] != 0xFF || jpg[1] != 0xD8 {
		t.Fatalf("poster.jpg 应为 JPEG：err=%v", err)
	}

	// 记录已落库，show 可直接读取。
	st, err := store.Open(t.Context(), filepath.Join(env.root, "data", "ifdb.db"))
	if err != nil {
		t.Fatalf("打开记录库失败：%v", err)
	}
	got, ok, err := st.Get(t.Context(), "42")
	_ = st.Close()
	if err != nil || !ok || got.Title != rec.Title {
		t.Fatalf("记录未落库：ok=%v err=%v", ok, err)
	}

	stdout, _, err = env.run(t, "show", "42")
	if err != nil {
		t.Fatalf("show 失败：%v", err)
	}
	if !strings.Contains(stdout, `"title": "SW Ep IV: Despecialized Edition"`) {
		t.Fatalf("show 输出不符合预期：%s", stdout)
	}

	// 第二次 update：磁盘缓存命中详情页；已存在的 sidecar 不覆盖。
	before := env.hits.Load()
	if _, stderr, err := env.run(t, "update", "42", "--out", outDir); err != nil {
		t.Fatalf("第二次 update 失败：%v\nstderr=%s", err, stderr)
	}
	if after := env.hits.Load(); after != before {
		t.Fatalf("第二次 update 不应再发请求：before=%d after=%d", before, after)
	}
}

func TestCLI_UpdateThenSidecarsUseStoredPoster(t *testing.T) {
	env := setupCLITestEnv(t)
	outDir := filepath.Join(env.root, "out")

	if _, stderr, err := env.run(t, "update", "42"); err != nil {
		t.Fatalf("update 失败：%v\nstderr=%s", err, stderr)
	}
	before := env.hits.Load()
	if _, stderr, err := env.run(t, "update", "42", "--out", outDir); err != nil {
		t.Fatalf("带 --out 的 update 失败：%v\nstderr=%s", err, stderr)
	}
	if after := env.hits.Load(); after != before {
		t.Fatalf("海报字节已落库，不应再发请求：before=%d after=%d", before, after)
	}

	jpg, err := os.ReadFile(filepath.Join(outDir, "poster.jpg"))
	if err != nil || len(jpg) < 2 || jpg[0] != 0xFF || jpg[1] != 0xD8 {
		t.Fatalf("poster.jpg 应由已保存的海报生成：err=%v", err)
	}
	nfoBytes, err := os.ReadFile(filepath.Join(outDir, "movie.nfo"))
	if err != nil {
		t.Fatalf("缺少 movie.nfo：%v", err)
	}
	if !strings.Contains(string(nfoBytes), "<thumb>poster.jpg</thumb>") {
		t.Fatalf("NFO 应引用海报：%s", nfoBytes)
	}
}

func TestCLI_UpdateUnknownIDFails(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := env.run(t, "update", "999")
	if err == nil || !strings.Contains(err.Error(), "HTTP 404") {
		t.Fatalf("期望 404 说明，实际 %v", err)
	}

	_, _, err = env.run(t, "show", "999")
	if err == nil || !strings.Contains(err.Error(), "没有 id=999 的记录") {
		t.Fatalf("失败的 update 不应落库：%v", err)
	}
}

func TestCLI_ConfigNotFound(t *testing.T) {
	for _, args := range [][]string{{"list"}, {"update", "42"}} {
		cmd := newRootCommand()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "missing.toml")}, args...))
		err := cmd.Execute()
		if err == nil || !strings.Contains(err.Error(), "config_not_found") {
			t.Fatalf("%v：期望 config_not_found，实际 %v", args, err)
		}
	}
}

func TestCLI_MatchDirectoryReport(t *testing.T) {
	env := setupCLITestEnv(t)
	lib := filepath.Join(env.root, "library")
	for _, name := range []string{
		"Star.Wars.Episode.IV.Despecialized.Edition.2014.1080p.mkv",
		filepath.Join("samples", "Trailer.mkv"),
	} {
		p := filepath.Join(lib, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("创建目录失败：%v", err)
		}
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("写入文件失败：%v", err)
		}
	}

	stdout, stderr, err := env.run(t, "match", lib, "--exclude", "samples", "--workers", "1")
	if err != nil {
		t.Fatalf("match 失败：%v\nstderr=%s", err, stderr)
	}
	var rr domain.MatchReport
	if err := json.Unmarshal([]byte(stdout), &rr); err != nil {
		t.Fatalf("stdout 不是合法的 MatchReport JSON：%v\nstdout=%q", err, stdout)
	}
	if rr.Summary != (domain.MatchSummary{Matched: 1}) || len(rr.Items) != 1 {
		t.Fatalf("报告不符合预期：%+v", rr)
	}
	it := rr.Items[0]
	if it.Query != (domain.Query{Name: "Star Wars Episode IV Despecialized Edition", Year: 2014}) {
		t.Fatalf("query 不符合预期：%+v", it.Query)
	}
	if it.Best == nil || it.Best.ID != "42" || it.Best.Score != 99 {
		t.Fatalf("best 不符合预期：%+v", it.Best)
	}
	if !strings.Contains(stderr, "完成：matched=1") {
		t.Fatalf("stderr 缺少完成摘要：%q", stderr)
	}
}
