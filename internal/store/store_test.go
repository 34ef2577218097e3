package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/John-Robertt/IFDB/internal/domain"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "db", "ifdb.db"))
	if err != nil {
		t.Fatalf("Open 失败：%v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_PutGetMerge(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	if _, ok, err := s.Get(ctx, "42"); ok || err != nil {
		t.Fatalf("空库不应命中：ok=%v err=%v", ok, err)
	}

	rec := domain.FaneditMeta{ID: "42", Title: "T", Genres: domain.NewSet("Drama")}
	rec.AddPoster(domain.Poster{URL: "https://img.test/42.jpg", Data: []byte{1, 2}, Format: "jpeg", Width: 10, Height: 20})
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("Put 失败：%v", err)
	}

	got, ok, err := s.Get(ctx, "42")
	if err != nil || !ok {
		t.Fatalf("Get 失败：ok=%v err=%v", ok, err)
	}
	if got.Title != "T" {
		t.Fatalf("title 不一致：%q", got.Title)
	}
	if diff := cmp.Diff([]string{"Drama"}, got.Genres.Items()); diff != "" {
		t.Fatalf("genres 不一致 (-want +got):\n%s", diff)
	}
	p, ok := got.Posters["https://img.test/42.jpg"]
	if diff := cmp.Diff(domain.Poster{URL: "https://img.test/42.jpg", Data: []byte{1, 2}, Format: "jpeg", Width: 10, Height: 20}, p); !ok || diff != "" {
		t.Fatalf("海报应连同字节一起保存 (-want +got):\n%s", diff)
	}

	// 再次写入覆盖同一 id。
	got.Genres.Add("Sci-Fi")
	if err := s.Put(ctx, got); err != nil {
		t.Fatalf("Put 失败：%v", err)
	}
	again, _, _ := s.Get(ctx, "42")
	if diff := cmp.Diff([]string{"Drama", "Sci-Fi"}, again.Genres.Items()); diff != "" {
		t.Fatalf("覆盖写入后 genres 不一致 (-want +got):\n%s", diff)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List 失败：%v", err)
	}
	if len(list) != 1 || list[0].ID != "42" || list[0].UpdatedAt.IsZero() {
		t.Fatalf("List 不符合预期：%+v", list)
	}
}

func TestStore_PutRequiresID(t *testing.T) {
	s := openTemp(t)
	if err := s.Put(context.Background(), domain.FaneditMeta{}); err == nil {
		t.Fatalf("空 id 应报错")
	}
}

func TestStore_PosterWithoutDataKeepsStoredBytes(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	const u = "https://img.test/42.jpg"

	rec := domain.FaneditMeta{ID: "42"}
	rec.AddPoster(domain.Poster{URL: u, Data: []byte{9}, Format: "jpeg"})
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("Put 失败：%v", err)
	}

	// 再次写入时该条目没有字节：已保存的内容不应被清掉。
	rec.Posters[u] = domain.Poster{URL: u, Format: "jpeg"}
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("Put 失败：%v", err)
	}
	got, _, err := s.Get(ctx, "42")
	if err != nil {
		t.Fatalf("Get 失败：%v", err)
	}
	if !got.HasPoster(u) || got.Posters[u].Data[0] != 9 {
		t.Fatalf("海报字节丢失：%+v", got.Posters)
	}
}

func TestStore_ListRejectsBadTimestamp(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	if _, err := s.db.ExecContext(ctx, `INSERT INTO records (id, title, body, updated_at) VALUES ('1', 't', '{}', 'yesterday')`); err != nil {
		t.Fatalf("插入失败：%v", err)
	}
	if _, err := s.List(ctx); err == nil {
		t.Fatalf("updated_at 无法解析时应报错")
	}
}
