package app

import (
	"time"

	"github.com/kilianp07/conformance/core/events"
	"github.com/kilianp07/conformance/core/logger"
)

// LogProgress logs progress events until the bus is closed. Group events
// are logged every step groups and on the last one.
func LogProgress(ch <-chan events.Progress, log logger.Logger, step int) {
	if step <= 0 {
		step = 100
	}
	for ev := range ch {
		switch e := ev.(type) {
		case events.RunStarted:
			log.Infof("case %s: scoring %d groups", e.Case, e.Groups)
		case events.GroupDone:
			if e.Done%step == 0 || e.Done == e.Total {
				log.Infof("case %s: %d/%d groups done in %s", e.Case, e.Done, e.Total, e.Elapsed.Round(time.Millisecond))
			}
		case events.RunFinished:
			if e.Err != nil {
				log.Errorf("case %s finished with error after %s: %v", e.Case, e.Duration, e.Err)
				continue
			}
			log.Infof("case %s finished in %s: %v", e.Case, e.Duration, e.Counts)
		}
	}
}
