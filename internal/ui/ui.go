package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/dvx/internal/models"
	"github.com/desertthunder/dvx/internal/services"
	"github.com/desertthunder/dvx/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	FolderListView ViewState = iota
	PreviewView
	ConfirmView
	SyncView
	ResultView
)

// Model represents the TUI application state.
type Model struct {
	ctx           context.Context
	view          ViewState
	svc           services.Service
	engine        *tasks.GalleryEngine
	baseOpts      tasks.SyncOpts // destination, top-n, and age window from config
	width         int
	height        int
	folderList    list.Model
	folders       []models.Folder
	selectionList list.Model
	plan          *tasks.SyncPlanResult
	sourceID      string
	sourceName    string
	progressChan  chan tasks.ProgressUpdate
	progress      tasks.ProgressUpdate
	result        *tasks.SyncRunResult
	err           error
	help          help.Model
	keys          keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
//
// baseOpts carries the configured destination folder, ranking size, and age
// window; the source folder is chosen interactively.
func NewModel(ctx context.Context, svc services.Service, engine *tasks.GalleryEngine, baseOpts tasks.SyncOpts) *Model {
	return &Model{
		ctx:      ctx,
		view:     FolderListView,
		svc:      svc,
		engine:   engine,
		baseOpts: baseOpts,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init initializes the TUI by fetching gallery folders.
func (m *Model) Init() tea.Cmd {
	return m.fetchFolders()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.folderList.Width() == 0 {
			m.folderList.SetSize(msg.Width-4, msg.Height-8)
		}
		if m.selectionList.Width() == 0 {
			m.selectionList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case FolderListView:
			return m.handleFolderListKeys(msg)
		case PreviewView:
			return m.handlePreviewKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case foldersFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.folders = msg.folders

		items := make([]list.Item, 0, len(msg.folders)+1)
		items = append(items, folderItem{folder: models.Folder{ID: scanAllID, Name: "All folders"}})
		for _, folder := range msg.folders {
			if folder.Name == m.baseOpts.DestFolder || folder.ID == m.baseOpts.DestFolder {
				continue
			}
			items = append(items, folderItem{folder: folder})
		}
		m.folderList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.folderList.Title = "Gallery Folders"
		m.folderList.SetSize(m.width-4, m.height-8)
		return m, nil

	case planComputedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.view = FolderListView
			return m, nil
		}
		m.plan = msg.plan

		items := make([]list.Item, len(msg.plan.Selection))
		for i, deviation := range msg.plan.Selection {
			items[i] = deviationItem{rank: i + 1, deviation: deviation}
		}
		m.selectionList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.selectionList.Title = fmt.Sprintf("Top %d by favourites", len(msg.plan.Selection))
		m.selectionList.SetSize(m.width-4, m.height-8)
		m.view = PreviewView
		return m, nil

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case syncCompleteMsg:
		m.result = msg.result
		m.err = msg.err
		m.view = ResultView
		m.progressChan = nil
		return m, nil
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case FolderListView:
		return m.renderFolderList()
	case PreviewView:
		return m.renderPreview()
	case ConfirmView:
		return m.renderConfirm()
	case SyncView:
		return m.renderSync()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleFolderListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "enter":
		selected := m.folderList.SelectedItem()
		if selected != nil {
			if item, ok := selected.(folderItem); ok {
				m.sourceID = item.folder.ID
				m.sourceName = item.folder.Name
				return m, m.computePlan(item.folder.ID)
			}
		}
	}

	var cmd tea.Cmd
	m.folderList, cmd = m.folderList.Update(msg)
	return m, cmd
}

func (m *Model) handlePreviewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = FolderListView
		return m, nil
	case "enter":
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.selectionList, cmd = m.selectionList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "n":
		m.view = PreviewView
		return m, nil
	case "y":
		m.view = SyncView
		return m, m.startSync()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		m.view = FolderListView
		m.plan = nil
		m.result = nil
		m.err = nil
		return m, nil
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case FolderListView:
		m.folderList, cmd = m.folderList.Update(msg)
	case PreviewView:
		m.selectionList, cmd = m.selectionList.Update(msg)
	}
	return m, cmd
}

func (m *Model) fetchFolders() tea.Cmd {
	return func() tea.Msg {
		folders, err := m.svc.Folders(m.ctx)
		return foldersFetchedMsg{folders: folders, err: err}
	}
}

// opts builds the engine options for a chosen source folder id; scanAllID
// means every folder.
func (m *Model) opts(sourceID string) tasks.SyncOpts {
	opts := m.baseOpts
	opts.SourceFolder = sourceID
	return opts
}

func (m *Model) computePlan(sourceID string) tea.Cmd {
	return func() tea.Msg {
		plan, err := m.engine.Plan(m.ctx, nil, m.opts(sourceID))
		return planComputedMsg{plan: plan, err: err}
	}
}

func (m *Model) startSync() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	progress := m.progressChan
	opts := m.opts(m.sourceID)

	go func() {
		result, err := m.engine.Run(m.ctx, progress, opts)
		m.result = result
		m.err = err
		close(progress)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if m.progressChan == nil {
			return syncCompleteMsg{result: m.result, err: m.err}
		}

		update, ok := <-m.progressChan
		if !ok {
			return syncCompleteMsg{result: m.result, err: m.err}
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderFolderList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.folderList.View(), helpView)
}

func (m *Model) renderPreview() string {
	syncKey := key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "sync"),
	)
	helpKeys := []key.Binding{syncKey, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	summary := ""
	if m.plan != nil {
		summary = styles.help.Render(fmt.Sprintf(
			"%d to add, %d to remove in '%s'",
			len(m.plan.Plan.ToAdd), len(m.plan.Plan.ToRemove), m.plan.DestFolder.Name,
		))
	}
	return fmt.Sprintf("%s\n%s\n\n%s", m.selectionList.View(), summary, helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Update '%s'?", m.plan.DestFolder.Name))
	info := fmt.Sprintf(
		"\nSource: %s\nSelected: %d deviations\nAdd: %d\nRemove: %d\n",
		m.sourceName,
		len(m.plan.Selection),
		len(m.plan.Plan.ToAdd),
		len(m.plan.Plan.ToRemove),
	)

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderSync() string {
	title := styles.title.Render("Syncing Gallery")

	var phase string
	switch m.progress.Phase {
	case tasks.FetchFolders, tasks.ScanSource:
		phase = fmt.Sprintf("Scanning folders (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.ApplyAdds:
		phase = fmt.Sprintf("Adding deviations (batch %d/%d)", m.progress.Step, m.progress.Total)
	case tasks.ApplyRemovals:
		phase = fmt.Sprintf("Removing deviations (batch %d/%d)", m.progress.Step, m.progress.Total)
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, m.progress.Message)
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Sync failed: %v\n\nPress r to retry, q to quit", m.err))
	}

	if m.result == nil {
		return styles.err.Render("No result available\n\nPress r to retry, q to quit")
	}

	title := styles.ok.Render("✓ Sync Complete!")
	info := fmt.Sprintf(
		"\nDestination: %s\nAdded: %d\nRemoved: %d\nNo-ops: %d",
		m.result.Plan.DestFolder.Name,
		m.result.Added,
		m.result.Removed,
		m.result.NoOps,
	)

	var unchanged string
	if m.result.Plan.Plan.InSync() {
		unchanged = fmt.Sprintf("\n\n%s", styles.warn.Render("Gallery was already up to date."))
	}

	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, unchanged, helpView)
}
