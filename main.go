package main

import (
	"encoding/binary"
	"errors"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"larch/btree"
	"larch/common"
	"larch/config"
	"larch/heap"
)

// sample tuple: int64 key, float64 payload, 64-byte string payload
const (
	recordSize   = 80
	keyOffset    = 0
	doubleOffset = 8
	stringOffset = 16
)

func main() {
	cfg := config.Default()
	if len(os.Args) > 1 {
		c, err := config.Load(os.Args[1])
		if err != nil {
			log.Fatalf("cannot load config %v: %v", os.Args[1], err)
		}
		cfg = c
	}

	relation := filepath.Join(cfg.Workdir, cfg.Relation.Name)
	size := cfg.Relation.Size
	poolSize := cfg.Buffer.PoolSize

	log.Printf("leaf capacity: %v, internal capacity: %v", btree.LeafCapacity, btree.InternalCapacity)

	forward := make([]int64, size)
	backward := make([]int64, size)
	for i := 0; i < size; i++ {
		forward[i] = int64(i)
		backward[i] = int64(size - 1 - i)
	}
	shuffled := rand.Perm(size)
	random := make([]int64, size)
	for i, v := range shuffled {
		random[i] = int64(v)
	}

	for _, run := range []struct {
		title string
		keys  []int64
	}{
		{"forward", forward},
		{"backward", backward},
		{"random", random},
	} {
		log.Printf("---- %v insertion order ----", run.title)
		exercise(relation, poolSize, run.keys)
	}

	rangeKeys := make([]int64, 0, 1001)
	for i := -500; i <= 500; i++ {
		rangeKeys = append(rangeKeys, int64(i))
	}
	log.Printf("---- negative key range ----")
	buildRelation(relation, rangeKeys)
	ix := mustOpen(relation, poolSize)
	check(ix, -3, btree.GT, 3, btree.LT, 5)
	check(ix, -300, btree.GTE, 300, btree.LTE, 601)
	check(ix, -1, btree.GTE, 0, btree.LT, 1)
	teardown(ix, relation)

	log.Printf("---- empty relation ----")
	buildRelation(relation, nil)
	ix = mustOpen(relation, poolSize)
	check(ix, 25, btree.GT, 40, btree.LT, 0)
	check(ix, -3, btree.GT, 3, btree.LT, 0)
	check(ix, 3000, btree.GTE, 4000, btree.LT, 0)
	teardown(ix, relation)

	log.Printf("all scans passed")
}

func exercise(relation string, poolSize int, keys []int64) {
	buildRelation(relation, keys)
	ix := mustOpen(relation, poolSize)

	check(ix, 25, btree.GT, 40, btree.LT, 14)
	check(ix, 20, btree.GTE, 35, btree.LTE, 16)
	check(ix, -3, btree.GT, 3, btree.LT, 3)
	check(ix, 996, btree.GT, 1001, btree.LT, 4)
	check(ix, 0, btree.GT, 1, btree.LT, 0)
	check(ix, 300, btree.GT, 400, btree.LT, 99)
	check(ix, 3000, btree.GTE, 4000, btree.LT, 1000)

	teardown(ix, relation)
}

func buildRelation(name string, keys []int64) {
	common.Remove(name)

	rel, err := heap.Create(name, recordSize, 16)
	if err != nil {
		log.Fatalf("cannot create relation: %v", err)
	}

	record := make([]byte, recordSize)
	for _, k := range keys {
		binary.BigEndian.PutUint64(record[keyOffset:], uint64(k))
		binary.BigEndian.PutUint64(record[doubleOffset:], math.Float64bits(float64(k)))
		copy(record[stringOffset:], []byte("string record"))
		if _, err := rel.Insert(record); err != nil {
			log.Fatalf("cannot insert record: %v", err)
		}
	}

	if err := rel.Close(); err != nil {
		log.Fatalf("cannot close relation: %v", err)
	}
}

func mustOpen(relation string, poolSize int) *btree.Index {
	ix, err := btree.Open(relation, keyOffset, btree.Integer, poolSize)
	if err != nil {
		log.Fatalf("cannot open index: %v", err)
	}
	return ix
}

// check runs one range scan and compares the number of yielded rids with want.
func check(ix *btree.Index, lowVal int64, lowOp btree.Operator, highVal int64, highOp btree.Operator, want int) {
	got := 0

	err := ix.StartScan(lowVal, lowOp, highVal, highOp)
	if errors.Is(err, btree.ErrNoSuchKeyFound) {
		if got != want {
			log.Fatalf("scan (%v, %v): got 0 rids, want %v", lowVal, highVal, want)
		}
		log.Printf("scan (%v, %v): empty, ok", lowVal, highVal)
		return
	}
	if err != nil {
		log.Fatalf("startScan failed: %v", err)
	}

	for {
		_, err := ix.ScanNext()
		if errors.Is(err, btree.ErrIndexScanCompleted) {
			break
		}
		if err != nil {
			log.Fatalf("scanNext failed: %v", err)
		}
		got++
	}

	if err := ix.EndScan(); err != nil {
		log.Fatalf("endScan failed: %v", err)
	}

	if got != want {
		log.Fatalf("scan (%v, %v): got %v rids, want %v", lowVal, highVal, got, want)
	}
	log.Printf("scan (%v, %v): %v rids, ok", lowVal, highVal, got)
}

func teardown(ix *btree.Index, relation string) {
	name := ix.Name()
	if err := ix.Close(); err != nil {
		log.Fatalf("cannot close index: %v", err)
	}
	common.Remove(name)
	common.Remove(relation)
}
