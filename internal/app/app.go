// Package app is the Bubble Tea root model: routing, key handling and
// the glue between the client layer and the views. Views never touch
// the network; fetches go through the cache and come back as messages.
package app

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/eovidiu/personal-q-tui/internal/auth"
	"github.com/eovidiu/personal-q-tui/internal/cache"
	"github.com/eovidiu/personal-q-tui/internal/client"
	"github.com/eovidiu/personal-q-tui/internal/config"
	"github.com/eovidiu/personal-q-tui/internal/theme"
	"github.com/eovidiu/personal-q-tui/internal/views/activities"
	"github.com/eovidiu/personal-q-tui/internal/views/agentform"
	"github.com/eovidiu/personal-q-tui/internal/views/agents"
	"github.com/eovidiu/personal-q-tui/internal/views/detail"
	"github.com/eovidiu/personal-q-tui/internal/views/login"
	"github.com/eovidiu/personal-q-tui/internal/views/overview"
	"github.com/eovidiu/personal-q-tui/internal/views/settings"
	"github.com/eovidiu/personal-q-tui/internal/views/statusbar"
	"github.com/eovidiu/personal-q-tui/internal/views/taskform"
	"github.com/eovidiu/personal-q-tui/internal/views/tasks"
)

const (
	requestTimeout = 15 * time.Second
	gaugeFrame     = time.Second / 30
)

// Route identifies a main screen.
type Route int

const (
	RouteOverview Route = iota
	RouteAgents
	RouteTasks
	RouteActivities
	RouteSettings
	numRoutes
)

var tabLabels = []string{"Overview", "Agents", "Tasks", "Activity", "Settings"}

// Overlay identifies the modal layer covering the active route.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayDetail
	OverlayAgentForm
	OverlayTaskForm
	OverlayConfirm
)

// Deps bundles the client layer the UI runs on. main wires these and
// binds the synchronizer to the auth manager before starting the
// program.
type Deps struct {
	API    *client.Client
	Events *client.EventClient
	Auth   *auth.Manager
	Cache  *cache.Cache
	Sync   *cache.Synchronizer
	Config *config.Config
	Demo   bool
}

type confirmState struct {
	prompt string
	action tea.Cmd
}

// Model is the root TUI model.
type Model struct {
	deps Deps
	keys KeyMap
	br   *bridge

	width  int
	height int

	route   Route
	overlay Overlay

	authState auth.State
	wasAuthed bool
	loginURL  string
	callback  *auth.CallbackServer

	status   statusbar.Model
	login    login.Model
	overview overview.Model
	agents   agents.Model
	tasks    tasks.Model
	acts     activities.Model
	detail   detail.Model
	form     agentform.Model
	taskForm taskform.Model
	settings settings.Model

	confirm      *confirmState
	notice       string
	noticeIsErr  bool
	submitting   bool
	gaugeRunning bool
}

// New builds the root model and hooks the client layer callbacks into
// the message loop.
func New(deps Deps) Model {
	br := newBridge()
	deps.Auth.OnChange(func(st auth.State) {
		br.emit(AuthChangedMsg{State: st})
	})
	deps.Cache.OnChange(func(string) {
		br.emit(CacheDirtyMsg{})
	})
	deps.Events.OnStateChange(func(st client.ConnState) {
		br.emit(FeedStateMsg{State: st})
	})

	ui := deps.Config.UI
	m := Model{
		deps:     deps,
		keys:     DefaultKeyMap(),
		br:       br,
		status:   statusbar.New(tabLabels),
		login:    login.New(),
		overview: overview.New(),
		agents:   agents.New(ui.PageSize),
		tasks:    tasks.New(ui.PageSize),
		acts:     activities.New(ui.ActivityPageSize),
		detail:   detail.New(),
		settings: settings.New(),
	}
	m.status.Demo = deps.Demo
	return m
}

// Init arms the bridge and resumes any configured session.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.br.wait(), m.bootstrapCmd(), m.login.Focus())
}

// bootstrapCmd restores a session at startup: a configured token goes
// through SetToken, otherwise a cookie probe decides.
func (m Model) bootstrapCmd() tea.Cmd {
	deps := m.deps
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if t := deps.Config.API.Token; t != "" {
			return LoginOutcomeMsg{Err: deps.Auth.SetToken(ctx, t)}
		}
		deps.Auth.VerifySession(ctx)
		return LoginOutcomeMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case AuthChangedMsg:
		return m.handleAuthChanged(msg.State)

	case FeedStateMsg:
		m.status.FeedState = string(msg.State)
		return m, m.br.wait()

	case CacheDirtyMsg:
		refresh := m.refreshRoute()
		return m, tea.Batch(m.br.wait(), refresh)

	case LoginOutcomeMsg:
		m.login.Loading = false
		if msg.Err != nil && m.login.ErrorMsg == "" {
			m.login.ErrorMsg = msg.Err.Error()
		}
		return m, nil

	case gaugeTickMsg:
		if m.overview.Step() {
			return m, gaugeTick()
		}
		m.gaugeRunning = false
		return m, nil

	case AgentsLoadedMsg:
		if msg.Key != cache.AgentListKey(m.agents.Filter()) {
			return m, nil
		}
		if msg.Err != nil {
			m.agents.Loading = false
			m.setNotice("load agents", msg.Err)
			return m, nil
		}
		m.agents.SetList(msg.List)
		return m, nil

	case TasksLoadedMsg:
		if msg.Key != cache.TaskListKey(m.tasks.Filter()) {
			return m, nil
		}
		if msg.Err != nil {
			m.tasks.Loading = false
			m.setNotice("load tasks", msg.Err)
			return m, nil
		}
		m.tasks.SetList(msg.List)
		return m, nil

	case ActivitiesLoadedMsg:
		if msg.Key != cache.ActivityListKey(m.acts.Filter()) {
			return m, nil
		}
		if msg.Err != nil {
			m.acts.Loading = false
			m.setNotice("load activity", msg.Err)
			return m, nil
		}
		m.acts.SetList(msg.List)
		return m, nil

	case OverviewLoadedMsg:
		if msg.Err != nil {
			m.overview.Loading = false
			m.setNotice("load dashboard", msg.Err)
			return m, nil
		}
		if m.overview.SetMetrics(msg.Metrics, msg.Memory) && !m.gaugeRunning {
			m.gaugeRunning = true
			return m, gaugeTick()
		}
		return m, nil

	case APIKeysLoadedMsg:
		if msg.Err != nil {
			m.settings.Loading = false
			m.setNotice("load settings", msg.Err)
			return m, nil
		}
		m.settings.SetKeys(msg.Keys)
		return m, nil

	case AgentDetailMsg:
		if msg.Err != nil {
			m.setNotice("load agent", msg.Err)
			return m, nil
		}
		if m.overlay == OverlayDetail {
			m.detail.SetAgent(msg.Agent)
			if msg.Metrics != nil {
				m.detail.SetMetrics(msg.Metrics)
			}
		}
		return m, nil

	case ConnTestMsg:
		m.settings.SetTestResult(msg.Result, msg.Err)
		return m, nil

	case ActionDoneMsg:
		return m.handleActionDone(msg)
	}

	return m.routeOtherMsg(msg)
}

// routeOtherMsg forwards ticks and blinks to whichever component owns
// a focused input right now.
func (m Model) routeOtherMsg(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case !m.authState.IsAuthenticated:
		m.login, cmd = m.login.Update(msg)
	case m.overlay == OverlayAgentForm:
		m.form, cmd = m.form.Update(msg)
	case m.overlay == OverlayTaskForm:
		m.taskForm, cmd = m.taskForm.Update(msg)
	case m.route == RouteSettings && m.settings.FormOpen():
		m.settings, cmd = m.settings.UpdateForm(msg)
	case m.route == RouteAgents && m.agents.Searching():
		_, cmd = m.agents.UpdateSearch(msg)
	}
	return m, cmd
}

func (m *Model) resize(w, h int) {
	m.width = w
	m.height = h
	body := h - 5
	if body < 8 {
		body = 8
	}

	m.status.Width = w
	m.login.Width, m.login.Height = w, h
	m.overview.Width, m.overview.Height = w, body
	m.agents.Width, m.agents.Height = w, body
	m.tasks.Width, m.tasks.Height = w, body
	m.acts.Width, m.acts.Height = w, body
	m.detail.Width, m.detail.Height = w, h
	m.settings.Width, m.settings.Height = w, body
}

func (m Model) handleAuthChanged(st auth.State) (tea.Model, tea.Cmd) {
	prev := m.authState
	m.authState = st
	cmds := []tea.Cmd{m.br.wait()}

	m.login.Loading = st.IsLoading
	m.login.ErrorMsg = st.Error
	if st.IsLoading && !prev.IsLoading {
		cmds = append(cmds, m.login.SpinnerTick())
	}

	if st.User != nil {
		m.status.UserEmail = st.User.Email
	} else {
		m.status.UserEmail = ""
	}

	if st.IsAuthenticated && !m.wasAuthed {
		m.wasAuthed = true
		cmds = append(cmds, m.closeCallback(), m.refreshRoute())
	}
	if !st.IsAuthenticated {
		if m.wasAuthed {
			m.wasAuthed = false
			m.route = RouteOverview
			m.status.ActiveTab = 0
			m.overlay = OverlayNone
			m.confirm = nil
		}
		if m.callback == nil && !st.IsLoading {
			cmds = append(cmds, m.openCallback())
		}
	}

	return m, tea.Batch(cmds...)
}

// openCallback brings up the loopback listener for the OAuth redirect
// and starts waiting for its outcome.
func (m *Model) openCallback() tea.Cmd {
	m.loginURL = m.deps.Auth.Login()
	m.login.LoginURL = m.loginURL

	cb := auth.NewCallbackServer(m.deps.Auth)
	addr, err := cb.Start(m.deps.Config.OAuth.CallbackPort)
	if err != nil {
		addr, err = cb.Start(0)
	}
	if err != nil {
		m.login.CallbackAddr = ""
		return m.login.Focus()
	}
	m.callback = cb
	m.login.CallbackAddr = addr

	waitDone := func() tea.Msg {
		return LoginOutcomeMsg{Err: <-cb.Done()}
	}
	return tea.Batch(m.login.Focus(), waitDone)
}

func (m *Model) closeCallback() tea.Cmd {
	if m.callback == nil {
		return nil
	}
	cb := m.callback
	m.callback = nil
	m.login.CallbackAddr = ""
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		cb.Shutdown(ctx)
		return nil
	}
}

func (m Model) handleActionDone(msg ActionDoneMsg) (tea.Model, tea.Cmd) {
	m.submitting = false
	if msg.Err != nil {
		switch {
		case m.overlay == OverlayAgentForm:
			m.form.SetError(msg.Err.Error())
		case m.overlay == OverlayTaskForm:
			m.taskForm.SetError(msg.Err.Error())
		case m.settings.FormOpen():
			m.settings.SetFormError(msg.Err.Error())
		default:
			m.setNotice(msg.Action, msg.Err)
		}
		return m, nil
	}

	if m.overlay == OverlayAgentForm || m.overlay == OverlayTaskForm {
		m.overlay = OverlayNone
	}
	if m.settings.FormOpen() {
		m.settings.CloseForm()
	}
	m.notice = "✓ " + msg.Action
	m.noticeIsErr = false
	return m, nil
}

func (m *Model) setNotice(action string, err error) {
	m.notice = "✗ " + action + ": " + err.Error()
	m.noticeIsErr = true
}

// --- keys ---

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if !m.authState.IsAuthenticated {
		return m.handleLoginKey(msg)
	}

	m.notice = ""

	switch m.overlay {
	case OverlayAgentForm:
		return m.handleAgentFormKey(msg)
	case OverlayTaskForm:
		return m.handleTaskFormKey(msg)
	case OverlayConfirm:
		return m.handleConfirmKey(msg)
	case OverlayDetail:
		return m.handleDetailKey(msg)
	}

	if m.route == RouteSettings && m.settings.FormOpen() {
		return m.handleSettingsFormKey(msg)
	}
	if m.route == RouteAgents && m.agents.Searching() {
		changed, cmd := m.agents.UpdateSearch(msg)
		if changed {
			fetch := m.fetchAgents()
			return m, tea.Batch(cmd, fetch)
		}
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Overview):
		return m.gotoRoute(RouteOverview)
	case key.Matches(msg, m.keys.Agents):
		return m.gotoRoute(RouteAgents)
	case key.Matches(msg, m.keys.Tasks):
		return m.gotoRoute(RouteTasks)
	case key.Matches(msg, m.keys.Activities):
		return m.gotoRoute(RouteActivities)
	case key.Matches(msg, m.keys.Settings):
		return m.gotoRoute(RouteSettings)
	case key.Matches(msg, m.keys.Tab):
		return m.gotoRoute((m.route + 1) % numRoutes)
	case key.Matches(msg, m.keys.Logout):
		return m, m.logoutCmd()
	case key.Matches(msg, m.keys.Refresh):
		m.invalidateRoute()
		refresh := m.refreshRoute()
		return m, refresh
	}

	switch m.route {
	case RouteAgents:
		return m.handleAgentsKey(msg)
	case RouteTasks:
		return m.handleTasksKey(msg)
	case RouteActivities:
		return m.handleActivitiesKey(msg)
	case RouteSettings:
		return m.handleSettingsKey(msg)
	}
	return m, nil
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		token := m.login.TakeToken()
		if token == "" {
			return m, nil
		}
		return m, m.submitTokenCmd(token)
	case "ctrl+o":
		if m.loginURL != "" && m.deps.Config.OAuth.OpenBrowser {
			return m, openBrowserCmd(m.loginURL)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.login, cmd = m.login.Update(msg)
	return m, cmd
}

func (m Model) handleAgentsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.agents.CursorUp()
	case key.Matches(msg, m.keys.Down):
		m.agents.CursorDown()
	case key.Matches(msg, m.keys.Enter):
		if a := m.agents.Selected(); a != nil {
			m.detail.SetAgent(*a)
			m.overlay = OverlayDetail
			return m, m.fetchDetail(a.ID)
		}
	case key.Matches(msg, m.keys.New):
		m.form = agentform.NewCreate()
		m.overlay = OverlayAgentForm
	case key.Matches(msg, m.keys.Edit):
		if a := m.agents.Selected(); a != nil {
			m.form = agentform.NewEdit(*a)
			m.overlay = OverlayAgentForm
		}
	case key.Matches(msg, m.keys.Delete):
		if a := m.agents.Selected(); a != nil {
			m.confirm = &confirmState{
				prompt: "Delete agent " + a.Name + "?",
				action: m.deleteAgentCmd(a.ID, a.Name),
			}
			m.overlay = OverlayConfirm
		}
	case key.Matches(msg, m.keys.Pause):
		if a := m.agents.Selected(); a != nil {
			return m, m.toggleAgentCmd(*a)
		}
	case key.Matches(msg, m.keys.Filter):
		m.agents.CycleStatus()
		fetch := m.fetchAgents()
		return m, fetch
	case key.Matches(msg, m.keys.Search):
		focus := m.agents.StartSearch()
		return m, focus
	case key.Matches(msg, m.keys.Left):
		if m.agents.PrevPage() {
			fetch := m.fetchAgents()
			return m, fetch
		}
	case key.Matches(msg, m.keys.Right):
		if m.agents.NextPage() {
			fetch := m.fetchAgents()
			return m, fetch
		}
	}
	return m, nil
}

func (m Model) handleTasksKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.tasks.CursorUp()
	case key.Matches(msg, m.keys.Down):
		m.tasks.CursorDown()
	case key.Matches(msg, m.keys.New):
		m.taskForm = taskform.New(m.tasks.AgentScope())
		m.overlay = OverlayTaskForm
	case key.Matches(msg, m.keys.Cancel):
		if t := m.tasks.Selected(); t != nil &&
			(t.Status == client.TaskPending || t.Status == client.TaskRunning) {
			return m, m.cancelTaskCmd(*t)
		}
	case key.Matches(msg, m.keys.Retry):
		if t := m.tasks.Selected(); t != nil &&
			(t.Status == client.TaskFailed || t.Status == client.TaskCancelled) {
			return m, m.retryTaskCmd(*t)
		}
	case key.Matches(msg, m.keys.Escape):
		if m.tasks.AgentScope() != "" {
			m.tasks.SetAgentScope("")
			fetch := m.fetchTasks()
			return m, fetch
		}
	case key.Matches(msg, m.keys.Filter):
		m.tasks.CycleStatus()
		fetch := m.fetchTasks()
		return m, fetch
	case key.Matches(msg, m.keys.Left):
		if m.tasks.PrevPage() {
			fetch := m.fetchTasks()
			return m, fetch
		}
	case key.Matches(msg, m.keys.Right):
		if m.tasks.NextPage() {
			fetch := m.fetchTasks()
			return m, fetch
		}
	}
	return m, nil
}

func (m Model) handleActivitiesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.acts.ScrollUp()
	case key.Matches(msg, m.keys.Down):
		m.acts.ScrollDown()
	case key.Matches(msg, m.keys.Left):
		if m.acts.PrevPage() {
			fetch := m.fetchActivities()
			return m, fetch
		}
	case key.Matches(msg, m.keys.Right):
		if m.acts.NextPage() {
			fetch := m.fetchActivities()
			return m, fetch
		}
	}
	return m, nil
}

func (m Model) handleSettingsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.settings.CursorUp()
	case key.Matches(msg, m.keys.Down):
		m.settings.CursorDown()
	case key.Matches(msg, m.keys.New):
		focus := m.settings.OpenForm(nil)
		return m, focus
	case key.Matches(msg, m.keys.Edit), key.Matches(msg, m.keys.Enter):
		if k := m.settings.Selected(); k != nil {
			focus := m.settings.OpenForm(k)
			return m, focus
		}
	case key.Matches(msg, m.keys.Delete):
		if k := m.settings.Selected(); k != nil {
			m.confirm = &confirmState{
				prompt: "Delete credentials for " + k.ServiceName + "?",
				action: m.deleteKeyCmd(k.ServiceName),
			}
			m.overlay = OverlayConfirm
		}
	case key.Matches(msg, m.keys.Test):
		if k := m.settings.Selected(); k != nil {
			m.settings.SetTesting(k.ServiceName)
			return m, m.testConnCmd(k.ServiceName)
		}
	}
	return m, nil
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Quit):
		m.overlay = OverlayNone
	case key.Matches(msg, m.keys.Up):
		m.detail.ScrollUp()
	case key.Matches(msg, m.keys.Down):
		m.detail.ScrollDown()
	case key.Matches(msg, m.keys.New):
		if a := m.detail.Agent(); a != nil {
			m.taskForm = taskform.New(a.ID)
			m.overlay = OverlayTaskForm
		}
	case key.Matches(msg, m.keys.ViewTasks):
		if a := m.detail.Agent(); a != nil {
			m.overlay = OverlayNone
			m.route = RouteTasks
			m.status.ActiveTab = int(RouteTasks)
			m.tasks.SetAgentScope(a.ID)
			fetch := m.fetchTasks()
			return m, fetch
		}
	case key.Matches(msg, m.keys.Edit):
		if a := m.detail.Agent(); a != nil {
			m.form = agentform.NewEdit(*a)
			m.overlay = OverlayAgentForm
		}
	case key.Matches(msg, m.keys.Delete):
		if a := m.detail.Agent(); a != nil {
			m.confirm = &confirmState{
				prompt: "Delete agent " + a.Name + "?",
				action: m.deleteAgentCmd(a.ID, a.Name),
			}
			m.overlay = OverlayConfirm
		}
	}
	return m, nil
}

func (m Model) handleAgentFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.overlay = OverlayNone
		return m, nil
	case "enter":
		if m.submitting {
			return m, nil
		}
		create, update, err := m.form.Submit()
		if err != nil {
			m.form.SetError(err.Error())
			return m, nil
		}
		m.submitting = true
		if create != nil {
			return m, m.createAgentCmd(*create)
		}
		return m, m.updateAgentCmd(m.form.Editing().ID, *update)
	}
	var cmd tea.Cmd
	m.form, cmd = m.form.Update(msg)
	return m, cmd
}

func (m Model) handleTaskFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.overlay = OverlayNone
		return m, nil
	case "enter":
		if m.submitting {
			return m, nil
		}
		create, err := m.taskForm.Submit()
		if err != nil {
			m.taskForm.SetError(err.Error())
			return m, nil
		}
		m.submitting = true
		return m, m.createTaskCmd(*create)
	}
	var cmd tea.Cmd
	m.taskForm, cmd = m.taskForm.Update(msg)
	return m, cmd
}

func (m Model) handleSettingsFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.settings.CloseForm()
		return m, nil
	case "enter":
		if m.submitting {
			return m, nil
		}
		up, err := m.settings.SubmitForm()
		if err != nil {
			m.settings.SetFormError(err.Error())
			return m, nil
		}
		m.submitting = true
		return m, m.upsertKeyCmd(*up)
	}
	var cmd tea.Cmd
	m.settings, cmd = m.settings.UpdateForm(msg)
	return m, cmd
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		var action tea.Cmd
		if m.confirm != nil {
			action = m.confirm.action
		}
		m.confirm = nil
		m.overlay = OverlayNone
		return m, action
	case "n", "esc":
		m.confirm = nil
		m.overlay = OverlayNone
	}
	return m, nil
}

func (m Model) gotoRoute(r Route) (tea.Model, tea.Cmd) {
	m.route = r
	m.status.ActiveTab = int(r)
	m.notice = ""
	refresh := m.refreshRoute()
	return m, refresh
}

// --- data commands ---

// refreshRoute re-reads whatever the active screen shows. Fresh cache
// entries answer from memory, so this is cheap to call on every wake.
func (m *Model) refreshRoute() tea.Cmd {
	var cmds []tea.Cmd
	switch m.route {
	case RouteOverview:
		m.overview.Loading = true
		cmds = append(cmds, m.fetchOverview())
	case RouteAgents:
		cmds = append(cmds, m.fetchAgents())
	case RouteTasks:
		cmds = append(cmds, m.fetchTasks())
	case RouteActivities:
		cmds = append(cmds, m.fetchActivities())
	case RouteSettings:
		cmds = append(cmds, m.fetchKeys())
	}
	if m.overlay == OverlayDetail {
		if a := m.detail.Agent(); a != nil {
			cmds = append(cmds, m.fetchDetail(a.ID))
		}
	}
	return tea.Batch(cmds...)
}

// invalidateRoute forces the next read of the active screen onto the
// network.
func (m *Model) invalidateRoute() {
	c := m.deps.Cache
	switch m.route {
	case RouteOverview:
		c.Invalidate(cache.KeyDashboardMetrics)
		c.Invalidate(cache.KeyMemoryMetrics)
	case RouteAgents:
		c.Invalidate(cache.AgentListKey(m.agents.Filter()))
	case RouteTasks:
		c.Invalidate(cache.TaskListKey(m.tasks.Filter()))
	case RouteActivities:
		c.Invalidate(cache.ActivityListKey(m.acts.Filter()))
	case RouteSettings:
		c.Invalidate(cache.KeyAPIKeys)
	}
	if m.overlay == OverlayDetail {
		if a := m.detail.Agent(); a != nil {
			c.Invalidate(cache.AgentKey(a.ID))
			c.Invalidate(cache.AgentMetricsKey(a.ID))
		}
	}
}

func (m *Model) fetchAgents() tea.Cmd {
	m.agents.Loading = true
	deps := m.deps
	filter := m.agents.Filter()
	key := cache.AgentListKey(filter)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		list, err := cache.Fetch(ctx, deps.Cache, key,
			func(ctx context.Context) (*client.AgentList, error) {
				return deps.API.ListAgents(ctx, filter)
			})
		return AgentsLoadedMsg{Key: key, List: list, Err: err}
	}
}

func (m *Model) fetchTasks() tea.Cmd {
	m.tasks.Loading = true
	deps := m.deps
	filter := m.tasks.Filter()
	key := cache.TaskListKey(filter)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		list, err := cache.Fetch(ctx, deps.Cache, key,
			func(ctx context.Context) (*client.TaskList, error) {
				return deps.API.ListTasks(ctx, filter)
			})
		return TasksLoadedMsg{Key: key, List: list, Err: err}
	}
}

func (m *Model) fetchActivities() tea.Cmd {
	m.acts.Loading = true
	deps := m.deps
	filter := m.acts.Filter()
	key := cache.ActivityListKey(filter)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		list, err := cache.Fetch(ctx, deps.Cache, key,
			func(ctx context.Context) (*client.ActivityList, error) {
				return deps.API.ListActivities(ctx, filter)
			})
		return ActivitiesLoadedMsg{Key: key, List: list, Err: err}
	}
}

func (m *Model) fetchOverview() tea.Cmd {
	deps := m.deps
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		dm, err := cache.Fetch(ctx, deps.Cache, cache.KeyDashboardMetrics,
			func(ctx context.Context) (*client.DashboardMetrics, error) {
				return deps.API.GetDashboardMetrics(ctx)
			})
		if err != nil {
			return OverviewLoadedMsg{Err: err}
		}
		mm, err := cache.Fetch(ctx, deps.Cache, cache.KeyMemoryMetrics,
			func(ctx context.Context) (*client.MemoryMetrics, error) {
				return deps.API.GetMemoryMetrics(ctx)
			})
		if err != nil {
			mm = nil
		}
		return OverviewLoadedMsg{Metrics: dm, Memory: mm}
	}
}

func (m *Model) fetchKeys() tea.Cmd {
	m.settings.Loading = true
	deps := m.deps
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		keys, err := cache.Fetch(ctx, deps.Cache, cache.KeyAPIKeys,
			func(ctx context.Context) ([]client.APIKey, error) {
				return deps.API.ListAPIKeys(ctx)
			})
		return APIKeysLoadedMsg{Keys: keys, Err: err}
	}
}

func (m *Model) fetchDetail(id string) tea.Cmd {
	deps := m.deps
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		ag, err := cache.Fetch(ctx, deps.Cache, cache.AgentKey(id),
			func(ctx context.Context) (client.Agent, error) {
				a, err := deps.API.GetAgent(ctx, id)
				if err != nil {
					return client.Agent{}, err
				}
				return *a, nil
			})
		if err != nil {
			return AgentDetailMsg{Err: err}
		}
		met, err := cache.Fetch(ctx, deps.Cache, cache.AgentMetricsKey(id),
			func(ctx context.Context) (*client.AgentMetrics, error) {
				return deps.API.GetAgentMetrics(ctx, id)
			})
		if err != nil {
			met = nil
		}
		return AgentDetailMsg{Agent: ag, Metrics: met}
	}
}

// --- mutation commands ---

func (m Model) submitTokenCmd(token string) tea.Cmd {
	deps := m.deps
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return LoginOutcomeMsg{Err: deps.Auth.SetToken(ctx, token)}
	}
}

func (m Model) logoutCmd() tea.Cmd {
	deps := m.deps
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		deps.Auth.Logout(ctx)
		return nil
	}
}

func (m Model) createAgentCmd(in client.AgentCreate) tea.Cmd {
	deps := m.deps
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		a, err := deps.API.CreateAgent(ctx, in)
		if err == nil {
			deps.Cache.Overwrite(cache.AgentKey(a.ID), *a)
			deps.Cache.AgentMutated()
		}
		return ActionDoneMsg{Action: "created " + in.Name, Err: err}
	}
}

func (m Model) updateAgentCmd(id string, in client.AgentUpdate) tea.Cmd {
	deps := m.deps
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		a, err := deps.API.UpdateAgent(ctx, id, in)
		if err == nil {
			deps.Cache.Overwrite(cache.AgentKey(a.ID), *a)
			deps.Cache.AgentMutated()
		}
		return ActionDoneMsg{Action: "updated agent", Err: err}
	}
}

func (m Model) deleteAgentCmd(id, name string) tea.Cmd {
	deps := m.deps
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		err := deps.API.DeleteAgent(ctx, id)
		if err == nil {
			deps.Cache.AgentRemoved(id)
		}
		return ActionDoneMsg{Action: "deleted " + name, Err: err}
	}
}

// toggleAgentCmd pauses an active agent and wakes anything else.
func (m Model) toggleAgentCmd(a client.Agent) tea.Cmd {
	deps := m.deps
	target := client.AgentActive
	verb := "resumed "
	if a.Status == client.AgentActive {
		target = client.AgentPaused
		verb = "paused "
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		updated, err := deps.API.UpdateAgentStatus(ctx, a.ID, target)
		if err == nil {
			deps.Cache.Overwrite(cache.AgentKey(updated.ID), *updated)
			deps.Cache.AgentMutated()
		}
		return ActionDoneMsg{Action: verb + a.Name, Err: err}
	}
}

func (m Model) createTaskCmd(in client.TaskCreate) tea.Cmd {
	deps := m.deps
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		_, err := deps.API.CreateTask(ctx, in)
		if err == nil {
			deps.Cache.TaskMutated(in.AgentID)
		}
		return ActionDoneMsg{Action: "queued " + in.Title, Err: err}
	}
}

func (m Model) cancelTaskCmd(t client.Task) tea.Cmd {
	deps := m.deps
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		_, err := deps.API.CancelTask(ctx, t.ID)
		if err == nil {
			deps.Cache.TaskMutated(t.AgentID)
		}
		return ActionDoneMsg{Action: "cancelled task", Err: err}
	}
}

func (m Model) retryTaskCmd(t client.Task) tea.Cmd {
	deps := m.deps
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		_, err := deps.API.RetryTask(ctx, t.ID)
		if err == nil {
			deps.Cache.TaskMutated(t.AgentID)
		}
		return ActionDoneMsg{Action: "retried task", Err: err}
	}
}

func (m Model) upsertKeyCmd(in client.APIKeyUpsert) tea.Cmd {
	deps := m.deps
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		_, err := deps.API.UpsertAPIKey(ctx, in)
		if err == nil {
			deps.Cache.Invalidate(cache.KeyAPIKeys)
		}
		return ActionDoneMsg{Action: "saved " + in.ServiceName, Err: err}
	}
}

func (m Model) deleteKeyCmd(service string) tea.Cmd {
	deps := m.deps
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		err := deps.API.DeleteAPIKey(ctx, service)
		if err == nil {
			deps.Cache.Invalidate(cache.KeyAPIKeys)
		}
		return ActionDoneMsg{Action: "removed " + service, Err: err}
	}
}

func (m Model) testConnCmd(service string) tea.Cmd {
	deps := m.deps
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		res, err := deps.API.TestConnection(ctx, service)
		return ConnTestMsg{Service: service, Result: res, Err: err}
	}
}

func gaugeTick() tea.Cmd {
	return tea.Tick(gaugeFrame, func(time.Time) tea.Msg {
		return gaugeTickMsg{}
	})
}

// openBrowserCmd hands the login URL to the OS default browser.
func openBrowserCmd(url string) tea.Cmd {
	return func() tea.Msg {
		var cmd *exec.Cmd
		switch runtime.GOOS {
		case "darwin":
			cmd = exec.Command("open", url)
		case "windows":
			cmd = exec.Command("cmd", "/c", "start", "", url)
		default:
			cmd = exec.Command("xdg-open", url)
		}
		if err := cmd.Start(); err != nil {
			return LoginOutcomeMsg{Err: fmt.Errorf("open browser: %w", err)}
		}
		return nil
	}
}

// --- view ---

func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}
	if !m.authState.IsAuthenticated {
		return m.login.View()
	}

	var overlay string
	switch m.overlay {
	case OverlayDetail:
		overlay = m.detail.View()
	case OverlayAgentForm:
		overlay = m.form.View()
	case OverlayTaskForm:
		overlay = m.taskForm.View()
	case OverlayConfirm:
		overlay = m.renderConfirm()
	}
	if overlay != "" {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, overlay)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.status.View(),
		m.routeBody(),
		m.footer(),
	)
}

func (m Model) routeBody() string {
	switch m.route {
	case RouteOverview:
		return m.overview.View()
	case RouteAgents:
		return m.agents.View()
	case RouteTasks:
		return m.tasks.View()
	case RouteActivities:
		return m.acts.View()
	case RouteSettings:
		return m.settings.View()
	}
	return ""
}

func (m Model) renderConfirm() string {
	prompt := ""
	if m.confirm != nil {
		prompt = m.confirm.prompt
	}
	body := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Foreground(theme.ColorBright).Bold(true).Render(prompt),
		"",
		theme.StyleDimmed.Render("y confirm  n cancel"),
	)
	return theme.StyleBorder.BorderForeground(theme.ColorDanger).Padding(1, 3).Render(body)
}

func (m Model) footer() string {
	var help string
	switch m.route {
	case RouteOverview:
		help = "1-5 views  tab next  r refresh  L logout  q quit"
	case RouteAgents:
		help = "enter detail  n new  e edit  d delete  p pause  f filter  / search  ←/→ page  r refresh  q quit"
	case RouteTasks:
		help = "n new  c cancel  R retry  f filter  ←/→ page  r refresh  q quit"
		if m.tasks.AgentScope() != "" {
			help = "esc all agents  " + help
		}
	case RouteActivities:
		help = "↑/↓ scroll  ←/→ page  r refresh  q quit"
	case RouteSettings:
		help = "n add  enter edit  d delete  t test  r refresh  q quit"
	}

	lines := theme.StyleDimmed.Render(" " + help)
	if m.notice != "" {
		style := lipgloss.NewStyle().Foreground(theme.ColorHealthy)
		if m.noticeIsErr {
			style = theme.StyleError
		}
		lines = style.Render(" "+m.notice) + "\n" + lines
	}
	return lines
}
