package idle

import (
	"sync"
	"time"
)

// State of one monitored session.
type State int

const (
	// Active: the user is considered present; activity signals rearm the
	// idle countdown.
	Active State = iota
	// WarningShown: the warning dialog is up. Ambient activity no longer
	// counts; only an explicit Confirm returns to Active. Ambient mouse
	// movement must not silently keep a sensitive admin session alive.
	WarningShown
	// LoggedOut: the countdown expired and the forced logout fired.
	LoggedOut
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case WarningShown:
		return "warning"
	case LoggedOut:
		return "logged_out"
	default:
		return "unknown"
	}
}

// Hooks are the monitor's side effects. OnLogout is where the caller ends
// the session and clears local credentials. Hooks run without the monitor
// lock held.
type Hooks struct {
	// OnWarning fires on Active→WarningShown with the time left until
	// forced logout.
	OnWarning func(remaining time.Duration)
	// OnCountdown fires roughly once per second while the warning is shown.
	OnCountdown func(remaining time.Duration)
	// OnLogout fires on WarningShown→LoggedOut.
	OnLogout func()
}

// Monitor drives the Active → WarningShown → LoggedOut state machine for a
// single authenticated session. One warning timer, one logout timer and a
// 1 Hz countdown timer live and die together: Confirm and Stop cancel all
// of them, so a stale countdown can never fire against a session that was
// already ended through another path.
type Monitor struct {
	clock   Clock
	timeout time.Duration
	lead    time.Duration
	hooks   Hooks

	mu       sync.Mutex
	state    State
	stopped  bool
	gen      uint64
	logoutAt time.Time

	warnTimer   Timer
	logoutTimer Timer
	tickTimer   Timer
}

// New builds a monitor. timeout is the full inactivity window; lead is how
// long before forced logout the warning appears (timeout > lead > 0).
func New(clock Clock, timeout, lead time.Duration, hooks Hooks) *Monitor {
	if clock == nil {
		clock = SystemClock()
	}
	return &Monitor{clock: clock, timeout: timeout, lead: lead, hooks: hooks, state: Active}
}

// Start arms the idle countdown. Call once, after login.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	m.state = Active
	m.armWarnLocked()
}

// Activity records a user-activity signal (pointer, key, scroll, touch).
// It rearms the idle countdown only while Active; once the warning is up,
// signals are ignored until an explicit Confirm.
func (m *Monitor) Activity() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped || m.state != Active {
		return
	}
	m.armWarnLocked()
}

// Confirm is the explicit "continue session" action on the warning dialog.
// It cancels the pending logout and countdown and rearms the idle window.
func (m *Monitor) Confirm() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped || m.state != WarningShown {
		return
	}
	m.cancelTimersLocked()
	m.state = Active
	m.armWarnLocked()
}

// Stop tears the monitor down, cancelling all pending timers without firing
// any hooks. Safe to call from any state and more than once; must be called
// whenever the session ends through another path (explicit logout, account
// suspension) so no stale timer fires a redundant second logout.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	m.cancelTimersLocked()
}

// State returns the current machine state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// armWarnLocked (re)arms the single warning timer, invalidating whatever
// was pending before.
func (m *Monitor) armWarnLocked() {
	m.cancelTimersLocked()
	gen := m.gen
	m.warnTimer = m.clock.AfterFunc(m.timeout-m.lead, func() { m.warn(gen) })
}

// cancelTimersLocked stops all three timers together and invalidates any
// callback already in flight.
func (m *Monitor) cancelTimersLocked() {
	m.gen++
	if m.warnTimer != nil {
		m.warnTimer.Stop()
		m.warnTimer = nil
	}
	if m.logoutTimer != nil {
		m.logoutTimer.Stop()
		m.logoutTimer = nil
	}
	if m.tickTimer != nil {
		m.tickTimer.Stop()
		m.tickTimer = nil
	}
}

func (m *Monitor) warn(gen uint64) {
	m.mu.Lock()
	if m.stopped || gen != m.gen || m.state != Active {
		m.mu.Unlock()
		return
	}
	m.state = WarningShown
	m.logoutAt = m.clock.Now().Add(m.lead)
	m.logoutTimer = m.clock.AfterFunc(m.lead, func() { m.logout(gen) })
	m.tickTimer = m.clock.AfterFunc(time.Second, func() { m.tick(gen) })
	onWarning := m.hooks.OnWarning
	remaining := m.lead
	m.mu.Unlock()

	if onWarning != nil {
		onWarning(remaining)
	}
}

func (m *Monitor) tick(gen uint64) {
	m.mu.Lock()
	if m.stopped || gen != m.gen || m.state != WarningShown {
		m.mu.Unlock()
		return
	}
	remaining := m.logoutAt.Sub(m.clock.Now())
	if remaining > 0 {
		m.tickTimer = m.clock.AfterFunc(time.Second, func() { m.tick(gen) })
	}
	onCountdown := m.hooks.OnCountdown
	m.mu.Unlock()

	if onCountdown != nil && remaining >= 0 {
		onCountdown(remaining)
	}
}

func (m *Monitor) logout(gen uint64) {
	m.mu.Lock()
	if m.stopped || gen != m.gen || m.state != WarningShown {
		m.mu.Unlock()
		return
	}
	m.state = LoggedOut
	m.cancelTimersLocked()
	onLogout := m.hooks.OnLogout
	m.mu.Unlock()

	if onLogout != nil {
		onLogout()
	}
}
