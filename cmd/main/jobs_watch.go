package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"greenroom/internal/auth"
	"greenroom/pkg/models"
)

var jobsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the job queue live",
	Long:  `Show the active jobs and refresh until interrupted (q or ctrl+c to quit).`,
	RunE:  runJobsWatch,
}

func runJobsWatch(cmd *cobra.Command, args []string) error {
	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	user, err := auth.EnsureLocalUser(rt.repos)
	if err != nil {
		return err
	}

	interval, _ := cmd.Flags().GetDuration("interval")
	if interval <= 0 {
		interval = rt.cfg.PollInterval
	}

	model := newWatchModel(rt, user.ID, interval)
	_, err = tea.NewProgram(model).Run()
	return err
}

type jobsLoadedMsg struct {
	jobs   []*models.Job
	counts map[string]int64
	err    error
}

type watchTickMsg struct{}

type watchModel struct {
	rt       *runtime
	userID   int64
	interval time.Duration

	spinner spinner.Model
	jobs    []*models.Job
	counts  map[string]int64
	err     error
}

func newWatchModel(rt *runtime, userID int64, interval time.Duration) watchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = headerStyle

	return watchModel{
		rt:       rt,
		userID:   userID,
		interval: interval,
		spinner:  sp,
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadJobs)
}

func (m watchModel) loadJobs() tea.Msg {
	// The watch shows every active job across both pools, not only the
	// pollable research tools: an operator wants the whole queue.
	jobs, err := m.rt.repos.Jobs.ListActive(m.userID, nil)
	if err != nil {
		return jobsLoadedMsg{err: err}
	}

	counts, err := m.rt.repos.Jobs.CountByStatus()
	if err != nil {
		return jobsLoadedMsg{err: err}
	}

	return jobsLoadedMsg{jobs: jobs, counts: counts}
}

func (m watchModel) scheduleTick() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		return watchTickMsg{}
	})
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case watchTickMsg:
		return m, m.loadJobs

	case jobsLoadedMsg:
		m.jobs = msg.jobs
		m.counts = msg.counts
		m.err = msg.err
		return m, m.scheduleTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m watchModel) View() string {
	s := fmt.Sprintf("%s %s\n\n", m.spinner.View(), headerStyle.Render("Greenroom job queue"))

	if m.err != nil {
		s += errorStyle.Render("Error: "+m.err.Error()) + "\n"
		return s
	}

	if len(m.counts) > 0 {
		s += mutedStyle.Render(fmt.Sprintf("queued: %d  search_queued: %d  running: %d  search_running: %d  succeeded: %d  failed: %d",
			m.counts[models.JobStatusQueued],
			m.counts[models.JobStatusSearchQueued],
			m.counts[models.JobStatusRunning],
			m.counts[models.JobStatusSearchRunning],
			m.counts[models.JobStatusSucceeded],
			m.counts[models.JobStatusFailed],
		)) + "\n\n"
	}

	if len(m.jobs) == 0 {
		s += mutedStyle.Render("No active jobs.") + "\n"
	}
	for _, job := range m.jobs {
		s += fmt.Sprintf("  %s  %-18s %-16s %s\n",
			job.ID[:8],
			job.Type,
			statusStyle(job.Status).Render(job.Status),
			mutedStyle.Render(time.Since(job.CreatedAt).Round(time.Second).String()+" ago"),
		)
	}

	s += "\n" + mutedStyle.Render("q to quit") + "\n"
	return s
}
