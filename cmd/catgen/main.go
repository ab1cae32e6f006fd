// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Command catgen writes a synthetic supplier catalog in the column layout the
// rules mapper expects by default. Useful for exercising partitioning and
// load against a real sink.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"
)

var header = []string{
	"SKU", "ProductName", "ShortDescription", "LongDescription", "Price", "Cost",
	"UOM", "ItemDescription", "MfrItemCode", "MfrItemID", "ItemCode", "ImageFile",
}

var nouns = []string{
	"Gauze Pad", "Nitrile Glove", "Alcohol Wipe", "Syringe", "Tongue Depressor",
	"Exam Table Paper", "Cotton Swab", "Bandage Roll", "Face Mask", "Sharps Container",
	"Thermometer Cover", "Specimen Cup", "Suture Kit", "Scalpel Blade", "Ice Pack",
}

var adjectives = []string{
	"Sterile", "Latex-Free", "Disposable", "Non-Woven", "Powder-Free",
	"Hypoallergenic", "Pediatric", "Heavy Duty", "Absorbent", "Single Use",
}

var units = []string{"EA", "BX", "CS", "PK", "DZ"}

var (
	rowCount       = flag.Int("rows", 1000, "number of data rows to write")
	outFile        = flag.String("out", "", "output file (default stdout)")
	malformedEvery = flag.Int("malformed-every", 0, "write an unparseable price every N rows; 0 disables")
	seed           = flag.Uint64("seed", 1, "random seed")
)

func init() {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
}

// catalogRows returns an iterator over n synthetic rows.
func catalogRows(n, malformed int, rng *rand.Rand) iter.Seq[[]string] {
	return func(yield func([]string) bool) {
		for i := range n {
			noun := nouns[rng.IntN(len(nouns))]
			adj := adjectives[rng.IntN(len(adjectives))]
			uom := units[rng.IntN(len(units))]
			mfrID := fmt.Sprintf("M%06d", i+1)
			cost := 0.5 + rng.Float64()*200
			price := fmt.Sprintf("%.2f", cost*1.35)
			if malformed > 0 && (i+1)%malformed == 0 {
				price = "call for pricing"
			}
			row := []string{
				fmt.Sprintf("%s-%s", mfrID, uom),
				adj + " " + noun,
				fmt.Sprintf("%s %s, %s", adj, strings.ToLower(noun), uom),
				fmt.Sprintf("%s %s packaged per %s for clinical use.", adj, strings.ToLower(noun), uom),
				price,
				fmt.Sprintf("%.2f", cost),
				uom,
				strings.ToUpper(adj + " " + noun),
				fmt.Sprintf("C%05d", rng.IntN(100000)),
				mfrID,
				fmt.Sprintf("I%07d", i+1),
				strings.ToLower(mfrID) + ".jpg",
			}
			if !yield(row) {
				return
			}
		}
	}
}

// writeCatalog writes the header and every row as TSV.
func writeCatalog(w io.Writer, rows iter.Seq[[]string]) (int, error) {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(header, "\t") + "\n"); err != nil {
		return 0, err
	}
	written := 0
	for row := range rows {
		if _, err := bw.WriteString(strings.Join(row, "\t") + "\n"); err != nil {
			return written, err
		}
		written++
	}
	return written, bw.Flush()
}

func main() {
	flag.Parse()

	var w io.Writer = os.Stdout
	if *outFile != "" {
		f, err := os.Create(*outFile)
		if err != nil {
			slog.Error("failed to create output", "path", *outFile, "err", err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	n, err := writeCatalog(w, catalogRows(*rowCount, *malformedEvery, rng))
	if err != nil {
		slog.Error("failed to write catalog", "err", err)
		os.Exit(1)
	}
	slog.Info("catalog written", "rows", n, "path", *outFile)
}
