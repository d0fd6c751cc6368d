package metrics

import (
	"github.com/shirou/gopsutil/v3/process"

	"github.com/lesys-monitor/lesys/internal/logger"
)

// Terminate asks every pid to exit. Failures, including processes that are
// already gone, are logged at debug level and otherwise ignored.
func Terminate(pids []int32, log logger.Logger) {
	log = logger.OrNoop(log)
	for _, pid := range pids {
		p, err := process.NewProcess(pid)
		if err != nil {
			log.Debug("terminate %d: %v", pid, err)
			continue
		}
		if err := p.Terminate(); err != nil {
			log.Debug("terminate %d: %v", pid, err)
		}
	}
}
