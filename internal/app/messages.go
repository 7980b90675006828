package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea/v2"

	"github.com/aprsa/phoebe-lab/internal/types"
	"github.com/aprsa/phoebe-lab/internal/worker"
)

const requestTimeout = 15 * time.Second

// Task keys for the worker pool. One outstanding task per key; a second
// submission while the first is in flight is rejected, not queued.
const (
	taskCompute = "compute"
	taskSolve   = "solve"
	taskSave    = "save"
	taskLoad    = "load"
	taskNew     = "new"
)

type taskResultMsg struct {
	result worker.Result
}

type sessionsLoadedMsg struct {
	sessions map[string]types.SessionInfo
	err      error
}

type reconnectedMsg struct {
	err error
}

// waitForTaskCmd blocks on the pool's result channel and redelivers the
// outcome as a message. Update re-arms it after every delivery so exactly
// one reader drains the channel.
func waitForTaskCmd(results <-chan worker.Result) tea.Cmd {
	return func() tea.Msg {
		res, ok := <-results
		if !ok {
			return nil
		}
		return taskResultMsg{result: res}
	}
}

func fetchSessionsCmd(api RemoteAPI) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		sessions, err := api.GetSessions(ctx)
		return sessionsLoadedMsg{sessions: sessions, err: err}
	}
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}
