// internal/vault/autosave.go
package vault

import (
	"sync"
	"time"

	"draftvault/internal/document"
)

// autoSaver owns the single recurring autosave timer. It has its own lock
// so StopAutoSave can wait for an in-flight tick without holding the engine
// mutex the tick needs.
type autoSaver struct {
	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// ElementsProvider supplies the live element collection on each tick.
type ElementsProvider func() []document.Element

// StartAutoSave arms the recurring autosave timer. Only one timer runs per
// vault; starting a new one stops any previous timer first. Ticks that see
// an empty collection are skipped.
func (v *Vault) StartAutoSave(provider ElementsProvider, interval time.Duration, author Author) {
	v.StopAutoSave()

	if interval <= 0 {
		interval = v.cfg.AutoSaveInterval
	}

	stop := make(chan struct{})
	done := make(chan struct{})

	v.saver.mu.Lock()
	v.saver.stop = stop
	v.saver.done = done
	v.saver.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				v.met.AutoSaveTicksTotal.Inc()
				elements := provider()
				if len(elements) == 0 {
					continue
				}
				if _, err := v.CreateVersion(elements, CreateOptions{
					IsAutoSave: true,
					Author:     author,
				}); err != nil {
					v.log.Error().Err(err).Msg("autosave failed")
				}
			}
		}
	}()

	v.log.Info().Dur("interval", interval).Msg("autosave started")
}

// StopAutoSave disarms the timer. By the time it returns the timer
// goroutine has fully exited, so no further ticks fire. Safe to call at any
// time, including when no timer is running.
func (v *Vault) StopAutoSave() {
	v.saver.mu.Lock()
	defer v.saver.mu.Unlock()

	if v.saver.stop == nil {
		return
	}
	close(v.saver.stop)
	<-v.saver.done
	v.saver.stop = nil
	v.saver.done = nil

	v.log.Info().Msg("autosave stopped")
}
