// Package snapshot saves the readable memory of a process to a directory and
// loads it back as an offline probe.Handle, so scans and typed reads can run
// against captured state without the live process.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	gops "github.com/shirou/gopsutil/v3/process"

	"memprobe/probe"
	"memprobe/probe/region"
)

// Regions larger than this are skipped when saving; huge anonymous mappings
// are almost always sparse and dominate dump size.
const maxRegionSize = 256 * 1024 * 1024

const (
	metadataFile = "metadata.json"
	regionsFile  = "regions.json"
)

type metadata struct {
	PID  probe.ProcessID `json:"pid"`
	Name string          `json:"name"`
}

// Save dumps all readable regions of the process to a directory: metadata,
// the region list, and one blob file per region. Regions that fail to read
// are skipped so a partially readable process still produces a usable dump.
func Save(h probe.Handle, dirname string) error {
	log := logger.NewLogger(coloransi.Color(coloransi.ColorTeal, coloransi.ColorOrange, fmt.Sprintf("snapshot-%d", h.PID())))

	if err := os.MkdirAll(dirname, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	meta := metadata{PID: h.PID()}
	if p, err := gops.NewProcess(int32(h.PID())); err == nil {
		if name, err := p.Name(); err == nil {
			meta.Name = name
		}
	}

	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dirname, metadataFile), metaJSON, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	regions, err := h.Regions()
	if err != nil {
		return fmt.Errorf("failed to enumerate regions: %w", err)
	}

	log.Infoln("Saving", len(regions), "regions to", dirname)

	var saved []region.Region
	errorCount := 0

	for _, r := range regions {
		if !r.IsReadable() {
			continue
		}
		if r.Size > maxRegionSize {
			log.Infoln("Skipping large region at", fmt.Sprintf("%x", r.Base), "(size:", r.Size/1024/1024, "MB)")
			continue
		}

		data, err := h.ReadBytes(probe.Address(r.Base), probe.Size(r.Size))
		if err != nil {
			log.Debugln("Failed to read region at", fmt.Sprintf("%x", r.Base), err)
			errorCount++
			continue
		}

		filename := filepath.Join(dirname, blobName(r))
		if err := os.WriteFile(filename, data, 0644); err != nil {
			return fmt.Errorf("failed to write region blob: %w", err)
		}
		saved = append(saved, r)
	}

	regionsJSON, err := json.MarshalIndent(saved, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal region list: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dirname, regionsFile), regionsJSON, 0644); err != nil {
		return fmt.Errorf("failed to write region list: %w", err)
	}

	log.Infoln("Snapshot saved:", len(saved), "regions,", errorCount, "read errors")
	return nil
}

func blobName(r region.Region) string {
	return fmt.Sprintf("blob_0x%x_%d.bin", r.Base, r.Size)
}

// Snapshot is a loaded process dump. It implements probe.Handle, so the scan
// engine and structview readers work against it unchanged.
type Snapshot struct {
	pid     probe.ProcessID
	name    string
	regions []region.Region
	blobs   map[uint64][]byte
}

// Load reads a snapshot directory written by Save.
func Load(dirname string) (*Snapshot, error) {
	metaJSON, err := os.ReadFile(filepath.Join(dirname, metadataFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	var meta metadata
	if err := json.Unmarshal(metaJSON, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}

	regionsJSON, err := os.ReadFile(filepath.Join(dirname, regionsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read region list: %w", err)
	}
	var regions []region.Region
	if err := json.Unmarshal(regionsJSON, &regions); err != nil {
		return nil, fmt.Errorf("failed to parse region list: %w", err)
	}

	s := &Snapshot{
		pid:     meta.PID,
		name:    meta.Name,
		regions: regions,
		blobs:   make(map[uint64][]byte, len(regions)),
	}

	for _, r := range regions {
		data, err := os.ReadFile(filepath.Join(dirname, blobName(r)))
		if err != nil {
			return nil, fmt.Errorf("failed to read region blob: %w", err)
		}
		if uint64(len(data)) != r.Size {
			return nil, fmt.Errorf("region blob at %x is %d bytes, expected %d", r.Base, len(data), r.Size)
		}
		s.blobs[r.Base] = data
	}

	return s, nil
}

// Name returns the recorded process name.
func (s *Snapshot) Name() string {
	return s.name
}

func (s *Snapshot) PID() probe.ProcessID {
	return s.pid
}

// Alive always reports true; a snapshot never goes away.
func (s *Snapshot) Alive() bool {
	return s.blobs != nil
}

func (s *Snapshot) ReadBytes(addr probe.Address, size probe.Size) ([]byte, error) {
	if s.blobs == nil {
		return nil, fmt.Errorf("snapshot closed: %w", probe.ErrProcessGone)
	}
	for _, r := range s.regions {
		if !r.Contains(uint64(addr), uint64(size)) {
			continue
		}
		off := uint64(addr) - r.Base
		out := make([]byte, size)
		copy(out, s.blobs[r.Base][off:off+uint64(size)])
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s size %d", probe.ErrOutOfRegion, addr, size)
}

// WriteBytes is not supported; a snapshot is immutable captured state.
func (s *Snapshot) WriteBytes(addr probe.Address, data []byte) error {
	return fmt.Errorf("snapshot is read-only: %w", probe.ErrAccessDenied)
}

func (s *Snapshot) Regions() ([]region.Region, error) {
	if s.blobs == nil {
		return nil, fmt.Errorf("snapshot closed: %w", probe.ErrProcessGone)
	}
	out := make([]region.Region, len(s.regions))
	copy(out, s.regions)
	return out, nil
}

func (s *Snapshot) Modules() ([]region.Module, error) {
	regions, err := s.Regions()
	if err != nil {
		return nil, err
	}
	return region.ModulesFromRegions(regions), nil
}

func (s *Snapshot) Close() error {
	s.blobs = nil
	s.regions = nil
	return nil
}
