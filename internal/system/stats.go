package system

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
)

// Report содержит итоги запуска CLI.
type Report struct {
	Build         string
	Input         string
	Exports       int
	Reconstructed int
	Failed        int
	Total         time.Duration
	Slowest       time.Duration
	Pool          PoolStats
}

// MemoryUsage возвращает занятую и общую память системы в MiB.
func MemoryUsage() (used, total uint64, err error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, 0, err
	}
	return vm.Used >> 20, vm.Total >> 20, nil
}

// Print печатает отчет о производительности.
func (r Report) Print(w io.Writer) {
	memLine := "n/a"
	if used, total, err := MemoryUsage(); err == nil {
		memLine = fmt.Sprintf("%d/%d MiB", used, total)
	}

	perExport := 0.0
	if r.Exports > 0 {
		perExport = r.Total.Seconds() / float64(r.Exports)
	}

	fmt.Fprintf(w,
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Exports: %d (reconstructed: %d, failed: %d)\n"+
			"Total Time: %.2fs\n"+
			"Per Export: %.3fs\n"+
			"Slowest: %.3fs\n"+
			"Buffers: %d requested, %d allocated\n"+
			"Memory: %s\n"+
			"----------------------------\n",
		r.Build, r.Exports, r.Reconstructed, r.Failed, r.Total.Seconds(), perExport, r.Slowest.Seconds(), r.Pool.Gets, r.Pool.Allocs, memLine,
	)
}

// AppendLog дописывает строку с итогами в benchmark.log.
func (r Report) AppendLog(path string, now time.Time) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = fmt.Fprintf(f, "[%s] Build: %s | Input: %s | Exports: %d | Reconstructed: %d | Failed: %d | Total: %.2fs\n",
		now.Format("2006-01-02 15:04:05"), r.Build, r.Input, r.Exports, r.Reconstructed, r.Failed, r.Total.Seconds())
	return err
}
