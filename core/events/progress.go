package events

import (
	"time"

	"github.com/kilianp07/conformance/core/model"
)

// Progress is the union of the run progress events.
type Progress interface {
	isProgress()
}

// RunStarted is published before the first group of a case is scheduled.
type RunStarted struct {
	RunID  string
	Case   string
	Groups int
}

// GroupDone is published when a group has been stored.
type GroupDone struct {
	Case    string
	Key     model.GroupKey
	Status  model.Status
	Done    int
	Total   int
	Elapsed time.Duration
}

// RunFinished is published once all scheduled groups are done.
type RunFinished struct {
	RunID    string
	Case     string
	Counts   map[model.Status]int
	Duration time.Duration
	Err      error
}

func (RunStarted) isProgress()  {}
func (GroupDone) isProgress()   {}
func (RunFinished) isProgress() {}
