package polodb_test

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/vinicius-lino-figueiredo/polodb"
)

var sizes = [...]int{1, 10, 100, 1_000, 10_000}

func newBenchDB(b *testing.B, path string, size int) *polodb.Database {
	db, err := polodb.Open(path)
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = db.Close() })
	if err := db.CreateCollection("c"); err != nil {
		b.Fatal(err)
	}
	if err := db.StartTransaction(); err != nil {
		b.Fatal(err)
	}
	coll := db.Collection("c")
	for n := range size {
		if _, err := coll.InsertHost(M{"_id": n, "code": n}); err != nil {
			b.Fatal(err)
		}
	}
	if err := db.Commit(); err != nil {
		b.Fatal(err)
	}
	return db
}

func BenchmarkOpen(b *testing.B) {
	b.Run("InMemory=true", func(b *testing.B) {
		for b.Loop() {
			db, _ := polodb.Open(polodb.MemoryPath)
			_ = db.Close()
		}
	})

	b.Run("InMemory=false", func(b *testing.B) {
		file := filepath.Join(b.TempDir(), "file.db")
		for b.Loop() {
			db, _ := polodb.Open(file)
			_ = db.Close()
		}
	})
}

func BenchmarkInsert(b *testing.B) {
	b.Run("InMemory=true", func(b *testing.B) {
		coll := newBenchDB(b, polodb.MemoryPath, 0).Collection("c")
		for b.Loop() {
			_, _ = coll.InsertHost(M{"jo": "jo"})
		}
	})

	b.Run("InMemory=false", func(b *testing.B) {
		file := filepath.Join(b.TempDir(), "file.db")
		coll := newBenchDB(b, file, 0).Collection("c")
		for b.Loop() {
			_, _ = coll.InsertHost(M{"jo": "jo"})
		}
	})
}

func BenchmarkInsertBatch(b *testing.B) {
	for _, size := range sizes {
		b.Run(fmt.Sprintf("db=%d", size), func(b *testing.B) {
			db := newBenchDB(b, polodb.MemoryPath, 0)
			coll := db.Collection("c")
			for b.Loop() {
				if err := db.StartTransaction(); err != nil {
					b.FailNow()
				}
				for n := range size {
					if _, err := coll.InsertHost(M{"part": n + 1}); err != nil {
						b.FailNow()
					}
				}
				if err := db.Rollback(); err != nil {
					b.FailNow()
				}
			}

			perItem := float64(b.Elapsed().Nanoseconds()) / float64(b.N*size)
			b.ReportMetric(perItem, "ns/item")
		})
	}
}

func BenchmarkFind(b *testing.B) {
	for _, size := range sizes {
		b.Run(fmt.Sprintf("db=%d", size), func(b *testing.B) {
			coll := newBenchDB(b, polodb.MemoryPath, size).Collection("c")

			b.Run("Existing", func(b *testing.B) {
				for b.Loop() {
					if _, err := coll.Find(M{"code": rand.Intn(size)}); err != nil {
						b.FailNow()
					}
				}
			})

			b.Run("NonExisting", func(b *testing.B) {
				m := M{"code": size + 12}
				for b.Loop() {
					if _, err := coll.Find(m); err != nil {
						b.FailNow()
					}
				}
			})
		})
	}
}

func BenchmarkFindByID(b *testing.B) {
	for _, size := range sizes {
		b.Run(fmt.Sprintf("db=%d", size), func(b *testing.B) {
			coll := newBenchDB(b, polodb.MemoryPath, size).Collection("c")
			for b.Loop() {
				b.StopTimer()
				id := rand.Intn(size)
				b.StartTimer()
				if _, err := coll.Find(M{"_id": id}); err != nil {
					b.FailNow()
				}
			}
		})
	}
}

func BenchmarkCount(b *testing.B) {
	for _, size := range sizes {
		b.Run(fmt.Sprintf("db=%d", size), func(b *testing.B) {
			coll := newBenchDB(b, polodb.MemoryPath, size).Collection("c")
			q := M{"code": M{"$lt": size / 2}}
			for b.Loop() {
				if _, err := coll.Count(q); err != nil {
					b.FailNow()
				}
			}
		})
	}
}

func BenchmarkUpdate(b *testing.B) {
	for _, size := range sizes {
		b.Run(fmt.Sprintf("db=%d", size), func(b *testing.B) {
			coll := newBenchDB(b, polodb.MemoryPath, size).Collection("c")
			for b.Loop() {
				q := M{"_id": rand.Intn(size)}
				if _, err := coll.Update(q, M{"$inc": M{"code": 1}}); err != nil {
					b.FailNow()
				}
			}
		})
	}
}

func BenchmarkCompact(b *testing.B) {
	for _, size := range sizes {
		b.Run(fmt.Sprintf("db=%d", size), func(b *testing.B) {
			file := filepath.Join(b.TempDir(), "file.db")
			db := newBenchDB(b, file, size)
			for b.Loop() {
				if err := db.Compact(); err != nil {
					b.FailNow()
				}
			}
		})
	}
}
