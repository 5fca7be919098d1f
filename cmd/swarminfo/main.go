// Command swarminfo prints the header and per-column coordinate statistics
// of a swarm checkpoint file.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"picswarm/checkpoint"
)

func main() {
	file := flag.String("file", "", "Checkpoint file to inspect")
	chunkRows := flag.Int("chunk-rows", checkpoint.DefaultChunkRows, "Rows read per chunk")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	r, err := checkpoint.OpenReader(*file)
	if err != nil {
		log.Fatalf("opening checkpoint: %v", err)
	}
	defer r.Close()

	hdr := r.Header()
	fmt.Printf("file:     %s\n", *file)
	fmt.Printf("dataset:  %s\n", hdr.Dataset)
	fmt.Printf("rows:     %d\n", hdr.Rows)
	fmt.Printf("columns:  %d\n", hdr.Cols)
	fmt.Printf("elem:     float%d\n", hdr.ElemSize*8)

	cols := make([][]float64, hdr.Cols)
	for start := int64(0); start < hdr.Rows; start += int64(*chunkRows) {
		n := int64(*chunkRows)
		if start+n > hdr.Rows {
			n = hdr.Rows - start
		}
		rows, err := r.ReadRows(start, n)
		if err != nil {
			log.Fatalf("reading rows: %v", err)
		}
		for _, row := range rows {
			for a, x := range row {
				cols[a] = append(cols[a], x)
			}
		}
	}

	for a, col := range cols {
		if len(col) == 0 {
			fmt.Printf("axis %d:   (empty)\n", a)
			continue
		}
		mean := stat.Mean(col, nil)
		std := 0.0
		if len(col) > 1 {
			std = stat.StdDev(col, nil)
		}
		fmt.Printf("axis %d:   min=%.6g max=%.6g mean=%.6g std=%.6g\n",
			a, floats.Min(col), floats.Max(col), mean, std)
	}

	if rows, err := checkpoint.ReadManifest(*file); err == nil {
		fmt.Println("manifest:")
		for _, m := range rows {
			fmt.Printf("  rank %d: offset=%d count=%d\n", m.Rank, m.Offset, m.Count)
		}
	}
}
