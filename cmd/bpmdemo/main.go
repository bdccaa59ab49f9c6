package main

import (
	"flag"
	"fmt"
	"log"

	"cs174bufferpool/buffer"
	"cs174bufferpool/common"
	"cs174bufferpool/disk"
)

func main() {
	dbFile := flag.String("db", "bpmdemo.db", "backing file for the disk manager")
	poolSize := flag.Int("pool-size", 32, "number of frames in the buffer pool")
	k := flag.Int("k", 2, "LRU-K depth")
	pages := flag.Int("pages", 50, "number of pages to allocate and write")
	flag.Parse()

	dm, err := disk.NewDiskManager(*dbFile)
	common.PanicIfErr(err)
	defer dm.Close()

	bpm := buffer.NewBufferPoolManager(*poolSize, *k, dm, nil)

	for i := 0; i < *pages; i++ {
		f, pid, ok := bpm.NewPage()
		if !ok {
			log.Fatalf("pool exhausted after %d pages", i)
		}

		msg := fmt.Sprintf("page %d\n", pid)
		copy(f.Data, msg)

		bpm.UnpinPage(pid, true)
	}

	bpm.FlushAllPages()
	fmt.Printf("wrote %d pages to %s\n", *pages, *dbFile)
}
