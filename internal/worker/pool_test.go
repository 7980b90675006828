package worker

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunsTask(t *testing.T) {
	p := NewPool(2, nil)
	defer p.Close()

	if err := p.TrySubmit("compute", func() (any, error) {
		return 42, nil
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	select {
	case res := <-p.Results():
		if res.Key != "compute" || res.Err != nil || res.Value != 42 {
			t.Fatalf("result = %+v", res)
		}
	case <-time.After(time.Second):
		t.Fatal("no result")
	}
}

func TestPoolRejectsDuplicateKey(t *testing.T) {
	p := NewPool(2, nil)
	defer p.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	var runs atomic.Int32

	if err := p.TrySubmit("solver", func() (any, error) {
		runs.Add(1)
		close(started)
		<-release
		return nil, nil
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	<-started

	if err := p.TrySubmit("solver", func() (any, error) {
		runs.Add(1)
		return nil, nil
	}); !errors.Is(err, ErrBusy) {
		t.Fatalf("duplicate submit: %v, want ErrBusy", err)
	}
	if !p.Busy("solver") {
		t.Fatal("key not reported busy")
	}

	// A different key is unaffected.
	if err := p.TrySubmit("compute", func() (any, error) {
		return nil, nil
	}); err != nil {
		t.Fatalf("other key: %v", err)
	}

	close(release)
	for i := 0; i < 2; i++ {
		select {
		case <-p.Results():
		case <-time.After(time.Second):
			t.Fatal("missing result")
		}
	}
	if runs.Load() != 1 {
		t.Fatalf("rejected task ran: runs = %d", runs.Load())
	}

	// Once the result is delivered the key is free again.
	if err := p.TrySubmit("solver", func() (any, error) {
		return nil, nil
	}); err != nil {
		t.Fatalf("resubmit after completion: %v", err)
	}
	<-p.Results()
}

func TestPoolDeliversTaskError(t *testing.T) {
	p := NewPool(1, nil)
	defer p.Close()

	boom := errors.New("backend crashed")
	if err := p.TrySubmit("compute", func() (any, error) {
		return nil, boom
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	res := <-p.Results()
	if !errors.Is(res.Err, boom) {
		t.Fatalf("err = %v", res.Err)
	}
}

func TestPoolCloseRejectsSubmissions(t *testing.T) {
	p := NewPool(1, nil)
	p.Close()
	if err := p.TrySubmit("compute", func() (any, error) { return nil, nil }); err == nil {
		t.Fatal("submit accepted after close")
	}
	// Results channel is closed after drain.
	if _, ok := <-p.Results(); ok {
		t.Fatal("unexpected result")
	}
}

func TestPoolCloseWithUnreadResults(t *testing.T) {
	p := NewPool(2, nil)
	for _, key := range []string{"compute", "solve", "save", "load"} {
		if err := p.TrySubmit(key, func() (any, error) { return nil, nil }); err != nil {
			t.Fatalf("submit %s: %v", key, err)
		}
	}

	// With nobody reading Results, workers fill the buffer and block;
	// Close must still shut the pool down.
	closed := make(chan struct{})
	go func() {
		p.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("close hung with unread results")
	}
}
