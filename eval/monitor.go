package eval

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/afg1/bqeval/core"
)

// Monitor provides hooks to observe a sweep.
// QueryDone may be called concurrently when parallelism is above 1.
type Monitor interface {
	StartCell(params core.SearchParams, queries int)
	QueryDone(params core.SearchParams, found bool, latency time.Duration, err error)
	FinishCell(result core.CellResult)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) StartCell(_ core.SearchParams, _ int)                            {}
func (n *noopMonitor) QueryDone(_ core.SearchParams, _ bool, _ time.Duration, _ error) {}
func (n *noopMonitor) FinishCell(_ core.CellResult)                                    {}

// WriterMonitor prints one line per finished cell.
type WriterMonitor struct {
	w     io.Writer
	total int
	mu    sync.Mutex
	done  int
}

// NewWriterMonitor creates a monitor that writes to w. total is the number of
// cells expected in the sweep and is only used for display.
func NewWriterMonitor(w io.Writer, total int) *WriterMonitor {
	return &WriterMonitor{w: w, total: total}
}

func (m *WriterMonitor) StartCell(_ core.SearchParams, _ int) {}

func (m *WriterMonitor) QueryDone(_ core.SearchParams, _ bool, _ time.Duration, _ error) {}

func (m *WriterMonitor) FinishCell(result core.CellResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.done++
	fmt.Fprintf(m.w, "[%d/%d] %s accuracy=%.3f mean=%s errors=%d\n",
		m.done, m.total, result.Params, result.Accuracy, result.MeanLatency, result.Errors)
}
