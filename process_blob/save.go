package process_blob

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Moonlight-Companies/gologger/logger"

	"emuram/process"
)

// MaxBlobSize is the largest region Save will write
const MaxBlobSize = 100 * 1024 * 1024

// SaveStats summarises a Save call
type SaveStats struct {
	Saved       int
	NotReadable int
	TooLarge    int
	ReadErrors  int
}

// Save writes the metadata, memory map and every readable region of proc to
// dirname in the layout Load understands.
func Save(proc process.Process, name, dirname string, log *logger.Logger) (SaveStats, error) {
	var stats SaveStats

	if !proc.IsOpen() {
		return stats, process.ErrProcessNotOpen
	}

	if err := os.MkdirAll(dirname, 0755); err != nil {
		return stats, fmt.Errorf("failed to create directory: %w", err)
	}

	log.Infoln("Saving process", proc.GetPID(), "to directory:", dirname)

	metadata := Metadata{
		PID:  proc.GetPID(),
		Name: name,
	}
	if lister, ok := proc.(process.ModuleLister); ok {
		modules, err := lister.Modules()
		if err != nil {
			log.Warn("module list unavailable:", err)
		}
		metadata.Modules = modules
	}

	if err := writeJSON(filepath.Join(dirname, metadataFile), metadata); err != nil {
		return stats, err
	}

	ranges, err := proc.MemoryRanges()
	if err != nil {
		return stats, fmt.Errorf("failed to read memory map: %w", err)
	}

	if err := writeJSON(filepath.Join(dirname, memoryMapFile), ranges); err != nil {
		return stats, err
	}

	for _, region := range ranges {
		if !region.IsReadable() {
			stats.NotReadable++
			continue
		}

		if region.Size > MaxBlobSize {
			log.Infoln("Skipping large region at", fmt.Sprintf("%x", region.Address),
				"(size:", region.Size/1024/1024, "MB)")
			stats.TooLarge++
			continue
		}

		data, err := proc.ReadMemory(process.Address(region.Address), process.ProcessMemorySize(region.Size))
		if err != nil {
			log.Debugln("Failed to read memory region at", fmt.Sprintf("%x", region.Address), ":", err)
			stats.ReadErrors++
			continue
		}

		if err := os.WriteFile(filepath.Join(dirname, blobFileName(region)), data, 0644); err != nil {
			return stats, fmt.Errorf("failed to write region 0x%x: %w", region.Address, err)
		}
		stats.Saved++
	}

	log.Infoln("Process dump saved:", stats.Saved, "regions saved,", stats.ReadErrors, "read errors")
	return stats, nil
}

func writeJSON(filename string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(filename), err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(filename), err)
	}
	return nil
}
