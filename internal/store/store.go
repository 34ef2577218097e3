// Package store 持久化累积的 FaneditMeta（sqlite），让多次 update 能按合并规则叠加。
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/John-Robertt/IFDB/internal/domain"
)

const schema = `CREATE TABLE IF NOT EXISTS records (
    id         TEXT PRIMARY KEY,
    title      TEXT NOT NULL,
    body       TEXT NOT NULL,
    updated_at TEXT NOT NULL
)`

const posterSchema = `CREATE TABLE IF NOT EXISTS posters (
    record_id TEXT NOT NULL,
    url       TEXT NOT NULL,
    data      BLOB NOT NULL,
    PRIMARY KEY (record_id, url)
)`

// Store 是记录表的薄封装。记录以 JSON 存入 records.body，海报字节单独存入 posters。
type Store struct {
	db   *sql.DB
	path string
}

// Open 打开（必要时创建）dbPath 处的数据库并建表。
func Open(ctx context.Context, dbPath string) (*Store, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, errors.New("db path 不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		schema,
		posterSchema,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", firstLine(stmt), err)
		}
	}
	return &Store{db: db, path: dbPath}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string { return s.path }

// Get 读取记录；不存在时 ok=false。
func (s *Store) Get(ctx context.Context, id string) (rec domain.FaneditMeta, ok bool, err error) {
	var body string
	err = s.db.QueryRowContext(ctx, `SELECT body FROM records WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.FaneditMeta{}, false, nil
	}
	if err != nil {
		return domain.FaneditMeta{}, false, fmt.Errorf("query record %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return domain.FaneditMeta{}, false, fmt.Errorf("decode record %s: %w", id, err)
	}
	if err := s.loadPosters(ctx, &rec); err != nil {
		return domain.FaneditMeta{}, false, err
	}
	return rec, true, nil
}

// loadPosters 把已保存的海报字节填回 rec.Posters（只填记录里登记过的 URL）。
func (s *Store) loadPosters(ctx context.Context, rec *domain.FaneditMeta) error {
	if len(rec.Posters) == 0 {
		return nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT url, data FROM posters WHERE record_id = ?`, rec.ID)
	if err != nil {
		return fmt.Errorf("query posters %s: %w", rec.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			u    string
			data []byte
		)
		if err := rows.Scan(&u, &data); err != nil {
			return fmt.Errorf("scan poster: %w", err)
		}
		if p, ok := rec.Posters[u]; ok {
			p.Data = data
			rec.Posters[u] = p
		}
	}
	return rows.Err()
}

// Put 以 rec.ID 为主键写入（覆盖）记录。
func (s *Store) Put(ctx context.Context, rec domain.FaneditMeta) error {
	if strings.TrimSpace(rec.ID) == "" {
		return errors.New("record id 不能为空")
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO records (id, title, body, updated_at) VALUES (?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET title = excluded.title, body = excluded.body, updated_at = excluded.updated_at`,
		rec.ID, rec.Title, string(body), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert record %s: %w", rec.ID, err)
	}
	// 没有字节的条目不覆盖已保存的内容。
	for u, p := range rec.Posters {
		if len(p.Data) == 0 {
			continue
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO posters (record_id, url, data) VALUES (?, ?, ?)
             ON CONFLICT(record_id, url) DO UPDATE SET data = excluded.data`,
			rec.ID, u, p.Data,
		)
		if err != nil {
			return fmt.Errorf("upsert poster %s: %w", u, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record %s: %w", rec.ID, err)
	}
	return nil
}

// Summary 是 List 返回的一行。
type Summary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updated_at"`
}

// List 按更新时间倒序列出全部记录。
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, updated_at FROM records ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sm Summary
			ts string
		)
		if err := rows.Scan(&sm.ID, &sm.Title, &ts); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		at, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse updated_at of %s: %w", sm.ID, err)
		}
		sm.UpdatedAt = at
		out = append(out, sm)
	}
	return out, rows.Err()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
