package main

// dataset_gen.go generates deterministic (key, hash) pair datasets for
// standalone benchmarking of texcache outside `go test`. It emits
// newline-separated "khi:klo:hhi:hlo" hex tuples.
//
// Usage:
//   go run ./tools/dataset_gen -n 1000000 -dist=zipf -seed=42 -out pairs.txt
//
// Flags:
//   -n       number of pairs to generate (default 1e6)
//   -dist    distribution of the hash half: "uniform" or "zipf" (default uniform)
//   -zipfs   Zipf s parameter (>1)  (default 1.2)
//   -zipfv   Zipf v parameter (>=1) (default 1.0)
//   -seed    RNG seed (default current time)
//   -out     output file (default stdout)
//
// Zipf skew is applied to the hash half only, simulating content reuse
// across distinct logical keys — the scenario texcache's fallback table and
// at-most-one-builder protocol are meant to exploit.
//
// © 2025 texcache authors. MIT License.

import (
    "bufio"
    "flag"
    "fmt"
    "math/rand"
    "os"
    "time"
)

func main() {
    var (
        n       = flag.Int("n", 1_000_000, "number of pairs to generate")
        dist    = flag.String("dist", "uniform", "hash distribution: uniform or zipf")
        zipfS   = flag.Float64("zipfs", 1.2, "zipf s parameter (>1)")
        zipfV   = flag.Float64("zipfv", 1.0, "zipf v parameter (>=1)")
        seedVal = flag.Int64("seed", time.Now().UnixNano(), "PRNG seed")
        outPath = flag.String("out", "", "output file (default stdout)")
    )
    flag.Parse()

    rnd := rand.New(rand.NewSource(*seedVal))

    var hashGen func() uint64
    switch *dist {
    case "uniform":
        hashGen = rnd.Uint64
    case "zipf":
        if *zipfS <= 1.0 || *zipfV < 1.0 {
            fmt.Fprintln(os.Stderr, "zipfs must be >1 and zipfv >=1")
            os.Exit(1)
        }
        z := rand.NewZipf(rnd, *zipfS, *zipfV, ^uint64(0)>>16)
        hashGen = z.Uint64
    default:
        fmt.Fprintln(os.Stderr, "unknown dist:", *dist)
        os.Exit(1)
    }

    var out *os.File
    var err error
    if *outPath == "" {
        out = os.Stdout
    } else {
        out, err = os.Create(*outPath)
        if err != nil {
            fmt.Fprintln(os.Stderr, "cannot create file:", err)
            os.Exit(1)
        }
        defer out.Close()
    }

    w := bufio.NewWriterSize(out, 1<<20)
    defer w.Flush()

    for i := 0; i < *n; i++ {
        khi, klo := rnd.Uint64(), rnd.Uint64()
        hhi, hlo := uint64(0), hashGen()
        fmt.Fprintf(w, "%016x:%016x:%016x:%016x\n", khi, klo, hhi, hlo)
    }
}
