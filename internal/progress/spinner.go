package progress

import (
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Spinner is an indeterminate activity indicator for operations without a
// known total, such as waiting on a model reply.
type Spinner struct {
	bar  *progressbar.ProgressBar
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// StartSpinner begins animating a spinner with the given label. In CI it
// stays quiet. Call Stop when the operation finishes.
func StartSpinner(label string) *Spinner {
	s := &Spinner{stop: make(chan struct{}), done: make(chan struct{})}
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		close(s.done)
		return s
	}
	s.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(label),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	go s.run()
	return s
}

func (s *Spinner) run() {
	defer close(s.done)
	ticker := time.NewTicker(120 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			_ = s.bar.Add(1)
		}
	}
}

// Stop halts the animation and clears the spinner line. Safe to call more
// than once.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		close(s.stop)
		<-s.done
		if s.bar != nil {
			_ = s.bar.Finish()
		}
	})
}
