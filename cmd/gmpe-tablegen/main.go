// Command gmpe-tablegen converts a text grid dump into a surface table
// resource, or prints an existing resource back in the dump format.
//
// Usage:
//
//	gmpe-tablegen -in Wcrust_rjb_med.txt -out tables/Wcrust_rjb_med.db
//	gmpe-tablegen -dump tables/Wcrust_rjb_med.db
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/groundmotion/internal/gridstore"
	"github.com/banshee-data/groundmotion/internal/monitoring"
	"github.com/banshee-data/groundmotion/internal/version"
)

var (
	inPath      = flag.String("in", "-", "Grid dump to read (- for stdin)")
	outPath     = flag.String("out", "", "Surface table resource to write")
	dumpPath    = flag.String("dump", "", "Print this resource in the dump format and exit")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

var logf = monitoring.Component("tablegen")

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("gmpe-tablegen"))
		return
	}
	if *dumpPath != "" {
		if err := dump(*dumpPath, os.Stdout); err != nil {
			log.Fatalf("gmpe-tablegen: %v", err)
		}
		return
	}
	if *outPath == "" {
		log.Fatal("-out is required")
	}

	in := io.Reader(os.Stdin)
	if *inPath != "-" {
		f, err := os.Open(filepath.Clean(*inPath))
		if err != nil {
			log.Fatalf("Failed to open dump: %v", err)
		}
		defer f.Close()
		in = f
	}
	if err := generate(in, *outPath); err != nil {
		log.Fatalf("gmpe-tablegen: %v", err)
	}
}

// generate parses a dump and writes it as the resource at out. A missing
// name defaults to the resource's base name.
func generate(in io.Reader, out string) error {
	t, err := parseDump(in, strings.TrimSuffix(filepath.Base(out), filepath.Ext(out)))
	if err != nil {
		return fmt.Errorf("parse dump: %w", err)
	}
	id, err := gridstore.Write(out, t)
	if err != nil {
		return err
	}
	logf("wrote %s (%d imts, id %s)", out, len(t.IMTs()), id)
	return nil
}

func dump(path string, w io.Writer) error {
	t, err := gridstore.Load(path)
	if err != nil {
		return err
	}
	return writeDump(w, t)
}
