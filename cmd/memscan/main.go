// Command memscan attaches to a process, scans for a wildcard byte pattern,
// and prints each match with surrounding memory context.
package main

import (
	"flag"
	"fmt"
	"os"

	"memprobe/hexdump"
	"memprobe/pattern"
	"memprobe/probe"
	"memprobe/probe/region"
	"memprobe/probe_linux"
	"memprobe/scan"
	"memprobe/session"
)

func main() {
	pidFlag := flag.Int("pid", 0, "Process ID to attach to")
	nameFlag := flag.String("name", "", "Process name to attach to (instead of --pid)")
	patternFlag := flag.String("pattern", "", "Pattern to scan for, e.g. '48 8B ?? E9'")
	moduleFlag := flag.String("module", "", "Restrict the scan to one module")
	contextFlag := flag.Int("context", 16, "Context bytes shown around each match")
	maxFlag := flag.Int("max", 16, "Maximum matches to print (0 for all)")
	flag.Parse()

	if *patternFlag == "" {
		fmt.Println("Error: --pattern is required")
		flag.Usage()
		os.Exit(1)
	}
	if *pidFlag == 0 && *nameFlag == "" {
		fmt.Println("Error: one of --pid or --name is required")
		flag.Usage()
		os.Exit(1)
	}

	pat, err := pattern.Parse(*patternFlag)
	if err != nil {
		fmt.Printf("Error parsing pattern: %v\n", err)
		os.Exit(1)
	}

	sess := session.New(probe_linux.NewAccess())
	defer sess.Close()

	if *pidFlag != 0 {
		err = sess.Attach(probe.ProcessID(*pidFlag))
	} else {
		err = sess.AttachName(*nameFlag)
	}
	if err != nil {
		fmt.Printf("Error attaching: %v\n", err)
		os.Exit(1)
	}

	scope := scan.ProcessScope()
	if *moduleFlag != "" {
		scope = scan.ModuleScope(*moduleFlag)
	}

	matches, err := sess.ScanPattern(*patternFlag, scope)
	if err != nil {
		fmt.Printf("Error scanning: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Found %d matches for %s\n", len(matches), pat)

	h, err := sess.Handle()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	var cat region.Catalog
	if regions, err := h.Regions(); err == nil {
		cat = region.NewCatalog(regions)
	}

	for i, addr := range matches {
		if *maxFlag > 0 && i >= *maxFlag {
			fmt.Printf("... %d more matches\n", len(matches)-i)
			break
		}

		fmt.Printf("\nMatch at %s:\n", addr)
		printContext(h, &cat, addr, pat.Len(), *contextFlag)
	}
}

// printContext dumps the bytes around a match, clipped to the containing
// region so the read never strays into unmapped memory.
func printContext(h probe.Handle, cat *region.Catalog, addr probe.Address, patLen, context int) {
	r, ok := cat.Find(uint64(addr))
	if !ok {
		return
	}

	start := uint64(addr) - uint64(context)
	if start < r.Base {
		start = r.Base
	}
	end := uint64(addr) + uint64(patLen) + uint64(context)
	if end > r.End() {
		end = r.End()
	}

	data, err := h.ReadBytes(probe.Address(start), probe.Size(end-start))
	if err != nil {
		fmt.Printf("  (context unreadable: %v)\n", err)
		return
	}

	matchOff := uint64(addr) - start
	options := hexdump.DefaultOptions()
	options.BaseAddress = probe.Address(start)
	options.Highlight = data[matchOff : matchOff+uint64(patLen)]
	options.Catalog = cat

	hexdump.DumpTo(os.Stdout, data, options)
}
