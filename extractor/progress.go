package extractor

import (
	"fmt"

	"github.com/RyanBlaney/sonido-mood/logging"
)

// Checkpoint is a coarse progress value in percent.
type Checkpoint int

const (
	CheckpointLoaded    Checkpoint = 20 // signal validated and conditioned
	CheckpointTempo     Checkpoint = 40
	CheckpointSpectral  Checkpoint = 60 // centroid, bandwidth, contrast, rolloff
	CheckpointAssembled Checkpoint = 80 // timbre, chroma, energy; vector built
	CheckpointComplete  Checkpoint = 100
)

// Observer receives progress checkpoints. Observers are optional and cannot
// affect the result.
type Observer interface {
	Progress(Checkpoint)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Checkpoint)

func (f ObserverFunc) Progress(c Checkpoint) { f(c) }

// Notify delivers c to observer, if any. A panicking observer is logged and
// otherwise ignored.
func Notify(observer Observer, c Checkpoint, logger logging.Logger) {
	if observer == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Progress observer panicked", logging.Fields{
				"checkpoint": int(c),
				"panic":      fmt.Sprint(r),
			})
		}
	}()
	observer.Progress(c)
}
