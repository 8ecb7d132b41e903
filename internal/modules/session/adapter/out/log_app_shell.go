package out

import (
	"context"
	"fmt"
	"io"
	"sync"

	sessionout "companion/internal/modules/session/port/out"

	hclog "github.com/hashicorp/go-hclog"
)

// LogAppShell stands in for the host UI in a terminal: tab switches are
// tracked and logged, notifications are printed to out.
type LogAppShell struct {
	mu        sync.Mutex
	logger    hclog.Logger
	out       io.Writer
	permitted bool
	tab       string
}

func NewLogAppShell(logger hclog.Logger, out io.Writer, notificationsPermitted bool) *LogAppShell {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if out == nil {
		out = io.Discard
	}
	return &LogAppShell{logger: logger.Named("shell"), out: out, permitted: notificationsPermitted}
}

var _ sessionout.AppShell = (*LogAppShell)(nil)

func (s *LogAppShell) SetCurrentTab(_ context.Context, tab string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tab == tab {
		return
	}
	s.logger.Debug("switch tab", "from", s.tab, "to", tab)
	s.tab = tab
}

func (s *LogAppShell) CurrentTab() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tab
}

func (s *LogAppShell) NotificationsPermitted() bool {
	return s.permitted
}

func (s *LogAppShell) Notify(_ context.Context, title, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Info("notify", "title", title)
	if _, err := fmt.Fprintf(s.out, "[%s] %s\n", title, body); err != nil {
		return fmt.Errorf("write notification: %w", err)
	}
	return nil
}
