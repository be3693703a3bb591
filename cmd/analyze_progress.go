package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/bnema/beright/internal/application"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type analysisProgressMsg application.Progress

type analysisDoneMsg struct {
	err error
}

type analysisSpinnerModel struct {
	spinner  spinner.Model
	label    string
	fraction float64
	run      tea.Cmd
	err      error
	done     bool
}

func newAnalysisSpinnerModel(run tea.Cmd) analysisSpinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return analysisSpinnerModel{
		spinner: s,
		label:   "Starting analysis...",
		run:     run,
	}
}

func (m analysisSpinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.run)
}

func (m analysisSpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case analysisProgressMsg:
		m.label = msg.Label
		m.fraction = msg.Fraction
		return m, nil
	case analysisDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m analysisSpinnerModel) View() string {
	if m.done {
		return ""
	}

	return fmt.Sprintf("%s %3.0f%% %s", m.spinner.View(), m.fraction*100, m.label)
}

// runAnalysisSpinner shows stage progress while run executes. run receives
// a callback that forwards orchestrator progress to the spinner.
func runAnalysisSpinner(ctx context.Context, output io.Writer, run func(context.Context, application.ProgressFunc) error) error {
	var p *tea.Program

	runCmd := func() tea.Msg {
		return analysisDoneMsg{err: run(ctx, func(progress application.Progress) {
			p.Send(analysisProgressMsg(progress))
		})}
	}

	p = tea.NewProgram(
		newAnalysisSpinnerModel(runCmd),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	result, ok := finalModel.(analysisSpinnerModel)
	if !ok {
		return fmt.Errorf("unexpected final spinner model type %T", finalModel)
	}

	return result.err
}
