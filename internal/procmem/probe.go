// Package procmem reports the resident memory of the current process.
package procmem

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/process"
)

const bytesPerMB = 1024 * 1024

// Probe reads the resident set size of one process
type Probe struct {
	proc *process.Process
}

// NewProbe creates a probe for the running process
func NewProbe() (*Probe, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("failed to inspect process: %w", err)
	}
	return &Probe{proc: proc}, nil
}

// ResidentMB returns the resident set size in MB
func (p *Probe) ResidentMB() (float64, error) {
	info, err := p.proc.MemoryInfo()
	if err != nil {
		return 0, fmt.Errorf("failed to read memory info: %w", err)
	}
	return float64(info.RSS) / bytesPerMB, nil
}
