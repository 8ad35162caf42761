// Command memsnap dumps the readable memory of a process to a snapshot
// directory that can later be scanned offline.
package main

import (
	"flag"
	"fmt"
	"os"

	"memprobe/probe"
	"memprobe/probe_linux"
	"memprobe/session"
	"memprobe/snapshot"
)

func main() {
	pidFlag := flag.Int("pid", 0, "Process ID to attach to")
	nameFlag := flag.String("name", "", "Process name to attach to (instead of --pid)")
	outputFlag := flag.String("output", "", "Output directory for the snapshot")
	verifyFlag := flag.Bool("verify", false, "Load the snapshot back after saving")
	flag.Parse()

	if *outputFlag == "" {
		fmt.Println("Error: --output is required")
		flag.Usage()
		os.Exit(1)
	}
	if *pidFlag == 0 && *nameFlag == "" {
		fmt.Println("Error: one of --pid or --name is required")
		flag.Usage()
		os.Exit(1)
	}

	sess := session.New(probe_linux.NewAccess())
	defer sess.Close()

	var err error
	if *pidFlag != 0 {
		err = sess.Attach(probe.ProcessID(*pidFlag))
	} else {
		err = sess.AttachName(*nameFlag)
	}
	if err != nil {
		fmt.Printf("Error attaching: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Saving snapshot to %s...\n", *outputFlag)
	if err := sess.SaveSnapshot(*outputFlag); err != nil {
		fmt.Printf("Error saving snapshot: %v\n", err)
		os.Exit(1)
	}

	if *verifyFlag {
		snap, err := snapshot.Load(*outputFlag)
		if err != nil {
			fmt.Printf("Error loading snapshot back: %v\n", err)
			os.Exit(1)
		}
		defer snap.Close()

		regions, err := snap.Regions()
		if err != nil {
			fmt.Printf("Error reading snapshot regions: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Verified: %d regions loaded from %s\n", len(regions), *outputFlag)
	}

	fmt.Println("Snapshot saved successfully.")
}
