// Package speech implements the sequential speech-output collaborator: an
// explicit FIFO of utterances played one at a time over a Voice. Cancel drops
// everything immediately; cancelled utterances never fire their callbacks.
package speech

import (
	"context"
	"errors"
	"sync"
)

// ErrEngineClosed is returned when speaking through a closed engine.
var ErrEngineClosed = errors.New("speech engine closed")

// Utterance is a single piece of speech with optional lifecycle callbacks.
type Utterance struct {
	Text    string
	OnStart func()
	OnEnd   func()
}

// Engine is the speech-output surface consumed by the narration scheduler.
type Engine interface {
	Speak(u Utterance) error
	Cancel()
	Pause()
	Resume()
	IsSpeaking() bool
	IsPaused() bool
	Close() error
}

// Voice produces actual audio. Say blocks until the utterance finished playing
// or ctx was cancelled.
type Voice interface {
	Say(ctx context.Context, text string) error
	Pause()
	Resume()
}

// Queue serializes utterances over a Voice. Only one utterance plays at a
// time; the rest wait in FIFO order.
type Queue struct {
	voice Voice

	mu       sync.Mutex
	wake     chan struct{}
	pending  []Utterance
	speaking bool
	paused   bool
	closed   bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewQueue starts the playback worker for the given voice.
func NewQueue(voice Voice) *Queue {
	q := &Queue{
		voice: voice,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	go q.loop()
	return q
}

// Speak enqueues an utterance.
func (q *Queue) Speak(u Utterance) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrEngineClosed
	}
	q.pending = append(q.pending, u)
	q.mu.Unlock()

	q.notify()
	return nil
}

// Cancel drops all queued utterances and stops the one currently playing. The
// cancelled utterances do not fire OnEnd.
func (q *Queue) Cancel() {
	q.mu.Lock()
	q.pending = nil
	q.paused = false
	cancel := q.cancel
	q.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if q.voice != nil {
		q.voice.Resume()
	}
}

// Pause pauses the voice if something is playing.
func (q *Queue) Pause() {
	q.mu.Lock()
	if !q.speaking || q.paused {
		q.mu.Unlock()
		return
	}
	q.paused = true
	q.mu.Unlock()
	q.voice.Pause()
}

// Resume resumes a paused voice.
func (q *Queue) Resume() {
	q.mu.Lock()
	if !q.paused {
		q.mu.Unlock()
		return
	}
	q.paused = false
	q.mu.Unlock()
	q.voice.Resume()
}

// IsSpeaking reports whether an utterance is currently playing.
func (q *Queue) IsSpeaking() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.speaking
}

// IsPaused reports whether playback is paused.
func (q *Queue) IsPaused() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.paused
}

// Close cancels playback and stops the worker.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.pending = nil
	cancel := q.cancel
	q.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	q.notify()
	<-q.done
	return nil
}

func (q *Queue) notify() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) loop() {
	defer close(q.done)

	for range q.wake {
		for {
			q.mu.Lock()
			if q.closed {
				q.mu.Unlock()
				return
			}
			if len(q.pending) == 0 {
				q.mu.Unlock()
				break
			}
			u := q.pending[0]
			q.pending = q.pending[1:]
			ctx, cancel := context.WithCancel(context.Background())
			q.cancel = cancel
			q.speaking = true
			q.mu.Unlock()

			if u.OnStart != nil {
				u.OnStart()
			}
			_ = q.voice.Say(ctx, u.Text)
			cancelled := ctx.Err() != nil

			q.mu.Lock()
			q.speaking = false
			q.cancel = nil
			q.mu.Unlock()
			cancel()

			// A cancelled utterance was abandoned on purpose; its end
			// callback must stay silent so stale runs cannot advance state.
			// Voice errors still count as "ended" so sessions never stall.
			if !cancelled && u.OnEnd != nil {
				u.OnEnd()
			}
		}
	}
}
