package migration

import (
	"context"
	"database/sql"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("インメモリDBの作成に失敗: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCollect(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"m/000002_second.up.sql":  {Data: []byte("SELECT 1;")},
		"m/000001_first.up.sql":   {Data: []byte("SELECT 1;")},
		"m/000001_first.down.sql": {Data: []byte("SELECT 1;")},
		"m/readme.md":             {Data: []byte("x")},
		"m/abc_bad.up.sql":        {Data: []byte("x")},
	}

	got, err := Collect(fsys, "m")
	if err != nil {
		t.Fatalf("収集に失敗: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("件数 = %d, want 2", len(got))
	}
	if got[0].Version != 1 || got[0].Name != "first" || got[0].Path != "m/000001_first.up.sql" {
		t.Errorf("1件目が不正: %+v", got[0])
	}
	if got[1].Version != 2 {
		t.Errorf("2件目のバージョン = %d, want 2", got[1].Version)
	}
}

func TestRun(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	fsys := fstest.MapFS{
		"m/000001_create.up.sql": {Data: []byte("CREATE TABLE items (id TEXT PRIMARY KEY);")},
		"m/000002_seed.up.sql":   {Data: []byte("INSERT INTO items (id) VALUES ('a');")},
	}

	t.Run("未適用のマイグレーションを順に適用する", func(t *testing.T) {
		t.Parallel()
		db := openTestDB(t)
		if err := Run(ctx, db, fsys, "m"); err != nil {
			t.Fatalf("マイグレーションに失敗: %v", err)
		}

		applied, err := AppliedVersions(ctx, db)
		if err != nil {
			t.Fatalf("適用済みバージョンの取得に失敗: %v", err)
		}
		if !applied[1] || !applied[2] {
			t.Errorf("適用済みバージョン = %v", applied)
		}
	})

	t.Run("2回目の実行では何も適用しない", func(t *testing.T) {
		t.Parallel()
		db := openTestDB(t)
		for range 2 {
			if err := Run(ctx, db, fsys, "m"); err != nil {
				t.Fatalf("マイグレーションに失敗: %v", err)
			}
		}

		var n int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM items").Scan(&n); err != nil {
			t.Fatalf("件数の取得に失敗: %v", err)
		}
		if n != 1 {
			t.Errorf("件数 = %d, want 1", n)
		}
	})

	t.Run("不正なSQLはエラーになり記録しない", func(t *testing.T) {
		t.Parallel()
		db := openTestDB(t)
		bad := fstest.MapFS{"m/000001_bad.up.sql": {Data: []byte("CREATE TABLE")}}
		if err := Run(ctx, db, bad, "m"); err == nil {
			t.Fatal("エラーが返らなかった")
		}
		applied, err := AppliedVersions(ctx, db)
		if err != nil {
			t.Fatalf("適用済みバージョンの取得に失敗: %v", err)
		}
		if len(applied) != 0 {
			t.Errorf("適用済みバージョン = %v, want empty", applied)
		}
	})
}
