package region

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// ParseMaps parses memory regions in /proc/[pid]/maps format. Malformed
// lines are skipped rather than failing the whole enumeration, since the
// kernel can append rows while we read.
func ParseMaps(r io.Reader) ([]Region, error) {
	var regions []Region

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		// Parse address range (e.g., "00400000-0040b000")
		addrRange := strings.Split(fields[0], "-")
		if len(addrRange) != 2 {
			continue
		}

		startAddr, err := strconv.ParseUint(addrRange[0], 16, 64)
		if err != nil {
			continue
		}

		endAddr, err := strconv.ParseUint(addrRange[1], 16, 64)
		if err != nil {
			continue
		}
		if endAddr <= startAddr {
			continue
		}

		// The pathname column is optional and may contain spaces; everything
		// after the inode column belongs to it.
		path := ""
		if len(fields) >= 6 {
			path = strings.Join(fields[5:], " ")
		}

		regions = append(regions, Region{
			Base:  startAddr,
			Size:  endAddr - startAddr,
			Perms: fields[1],
			Path:  path,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return regions, nil
}
