package storage

import (
	"bytes"
	"errors"
	"testing"
)

// testDB runs the behaviour every DB implementation shares.
func testDB(t *testing.T, db DB) {
	t.Helper()

	binary := make([]byte, 256)
	for i := range binary {
		binary[i] = byte(i)
	}
	puts := []struct {
		key, value []byte
	}{
		{[]byte("series/1"), []byte("first")},
		{[]byte("series/1"), []byte("second")},
		{[]byte("empty"), []byte{}},
		{[]byte{0x00, 0x01, 0xff}, binary},
		{[]byte("sale/a"), []byte("1")},
		{[]byte("sale/b"), []byte("2")},
		{[]byte("sale/c"), []byte("3")},
		{[]byte("salt"), []byte("x")},
	}
	for _, p := range puts {
		if err := db.Put(p.key, p.value); err != nil {
			t.Fatalf("Put(%q): %v", p.key, err)
		}
	}

	t.Run("Get", func(t *testing.T) {
		tests := []struct {
			key  []byte
			want []byte
		}{
			{[]byte("series/1"), []byte("second")},
			{[]byte("empty"), []byte{}},
			{[]byte{0x00, 0x01, 0xff}, binary},
		}
		for _, tt := range tests {
			got, err := db.Get(tt.key)
			if err != nil {
				t.Fatalf("Get(%q): %v", tt.key, err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.want)
			}
		}
		if _, err := db.Get([]byte("missing")); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get(missing) err = %v, want ErrNotFound", err)
		}
	})

	t.Run("Has", func(t *testing.T) {
		if ok, err := db.Has([]byte("series/1")); err != nil || !ok {
			t.Errorf("Has(series/1) = (%v, %v)", ok, err)
		}
		if ok, err := db.Has([]byte("missing")); err != nil || ok {
			t.Errorf("Has(missing) = (%v, %v)", ok, err)
		}
	})

	t.Run("ForEach", func(t *testing.T) {
		for prefix, want := range map[string]int{"sale/": 3, "sal": 4, "nothing/": 0} {
			var n int
			err := db.ForEach([]byte(prefix), func(_, _ []byte) error {
				n++
				return nil
			})
			if err != nil {
				t.Fatalf("ForEach(%q): %v", prefix, err)
			}
			if n != want {
				t.Errorf("ForEach(%q) visited %d keys, want %d", prefix, n, want)
			}
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := db.Delete([]byte("salt")); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := db.Get([]byte("salt")); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get after Delete err = %v, want ErrNotFound", err)
		}
		if err := db.Delete([]byte("never-existed")); err != nil {
			t.Errorf("Delete(missing) = %v, want nil", err)
		}
	})
}

func TestMemoryDB(t *testing.T) {
	db := NewMemory()
	defer db.Close()
	testDB(t, db)
}

func TestBadgerDB(t *testing.T) {
	dir := t.TempDir()
	db, err := NewBadger(dir)
	if err != nil {
		t.Fatalf("NewBadger() error: %v", err)
	}
	defer db.Close()
	testDB(t, db)
}

func TestBadgerDB_Persistence(t *testing.T) {
	dir := t.TempDir()

	// Write data.
	db1, err := NewBadger(dir)
	if err != nil {
		t.Fatalf("NewBadger() error: %v", err)
	}
	db1.Put([]byte("persist"), []byte("data"))
	db1.Close()

	// Reopen and read.
	db2, err := NewBadger(dir)
	if err != nil {
		t.Fatalf("NewBadger() reopen error: %v", err)
	}
	defer db2.Close()

	val, err := db2.Get([]byte("persist"))
	if err != nil {
		t.Fatalf("Get() after reopen error: %v", err)
	}
	if !bytes.Equal(val, []byte("data")) {
		t.Errorf("persisted value = %q, want %q", val, "data")
	}
}

// testBatch checks that a batch is invisible until Commit.
func testBatch(t *testing.T, db interface {
	DB
	Batcher
}) {
	t.Helper()
	db.Put([]byte("batch/old"), []byte("x"))

	b := db.NewBatch()
	b.Put([]byte("batch/a"), []byte("1"))
	b.Put([]byte("batch/b"), []byte("2"))
	b.Delete([]byte("batch/old"))

	if ok, _ := db.Has([]byte("batch/a")); ok {
		t.Fatal("batched write visible before Commit")
	}
	if err := b.Commit(); err != nil {
		t.Fatalf("Commit() error: %v", err)
	}

	for k, want := range map[string]string{"batch/a": "1", "batch/b": "2"} {
		got, err := db.Get([]byte(k))
		if err != nil {
			t.Fatalf("Get(%s) error: %v", k, err)
		}
		if string(got) != want {
			t.Errorf("Get(%s) = %q, want %q", k, got, want)
		}
	}
	if _, err := db.Get([]byte("batch/old")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(batch/old) err = %v, want ErrNotFound", err)
	}
}

func TestMemoryDB_Batch(t *testing.T) {
	testBatch(t, NewMemory())
}

func TestBadgerDB_Batch(t *testing.T) {
	db, err := NewBadger(t.TempDir())
	if err != nil {
		t.Fatalf("NewBadger() error: %v", err)
	}
	defer db.Close()
	testBatch(t, db)
}

func TestMemoryDB_ForEachOrdered(t *testing.T) {
	db := NewMemory()
	for _, k := range []string{"o/c", "o/a", "o/b"} {
		db.Put([]byte(k), nil)
	}
	var got []string
	db.ForEach([]byte("o/"), func(key, _ []byte) error {
		got = append(got, string(key))
		return nil
	})
	if len(got) != 3 || got[0] != "o/a" || got[1] != "o/b" || got[2] != "o/c" {
		t.Errorf("ForEach order = %v", got)
	}
}
