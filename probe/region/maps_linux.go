//go:build linux

package region

import (
	"fmt"
	"os"
)

// ReadProcessMaps reads and parses /proc/[pid]/maps for a process.
func ReadProcessMaps(pid int) ([]Region, error) {
	file, err := os.Open(fmt.Sprintf("/proc/%d/maps", pid))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParseMaps(file)
}
