package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasi-host/errors"
	"github.com/wippyai/wasi-host/guest"
	"github.com/wippyai/wasi-host/oneshot"
	"github.com/wippyai/wasi-host/pool"
	"github.com/wippyai/wasi-host/runtime"
	"github.com/wippyai/wasi-host/terminal"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	outputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444"))
)

// chromeRows is the height taken by everything except the output pane.
const chromeRows = 12

type interactiveModel struct {
	err      error
	ctx      context.Context
	rt       *runtime.Runtime
	ec       pool.ExecContext
	job      job
	output   viewport.Model
	screen   strings.Builder
	result   string
	funcs    []funcInfo
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
	loaded   bool
}

type funcInfo struct {
	name    string
	params  []api.ValueType
	results []api.ValueType
}

type modelState int

const (
	stateSelectFunc modelState = iota
	stateInputArgs
	stateShowResult
)

type loadedMsg struct {
	err   error
	ec    pool.ExecContext
	funcs []funcInfo
}

type callResultMsg struct {
	err    error
	result string
}

type terminalMsg struct {
	cmd    terminal.Command
	closed bool
}

func newInteractiveModel(ctx context.Context, rt *runtime.Runtime, j job) *interactiveModel {
	return &interactiveModel{
		ctx:    ctx,
		rt:     rt,
		job:    j,
		output: viewport.New(80, 10),
		state:  stateSelectFunc,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return tea.Batch(m.loadModule, m.nextCommand)
}

// nextCommand drains one command from the render channel.
func (m *interactiveModel) nextCommand() tea.Msg {
	cmd, err := m.rt.Terminal().Recv(m.ctx)
	if err != nil {
		return terminalMsg{closed: true}
	}
	return terminalMsg{cmd: cmd}
}

// loadModule instantiates the module on its guest thread and lists exports.
func (m *interactiveModel) loadModule() tea.Msg {
	ec, err := m.job.execContext(m.ctx, m.rt)
	if err != nil {
		return loadedMsg{err: err}
	}

	funcs, err := onThread(m.ctx, m.rt, ec, func(_ context.Context, th *guest.Thread) ([]funcInfo, error) {
		defs := th.Module().ExportedFunctionDefinitions()
		out := make([]funcInfo, 0, len(defs))
		for name, def := range defs {
			out = append(out, funcInfo{name: name, params: def.ParamTypes(), results: def.ResultTypes()})
		}
		return out, nil
	})
	if err != nil {
		return loadedMsg{err: err}
	}
	sort.Slice(funcs, func(i, j int) bool { return funcs[i].name < funcs[j].name })
	return loadedMsg{ec: ec, funcs: funcs}
}

// onThread runs fn on the guest worker that owns ec.ThreadID.
func onThread[T any](ctx context.Context, rt *runtime.Runtime, ec pool.ExecContext, fn func(context.Context, *guest.Thread) (T, error)) (T, error) {
	tx, fut := oneshot.NewFuture[T]()
	err := rt.TaskManager().SpawnGuest(pool.GuestTask{
		Context: ec,
		Run: func(ctx context.Context, th pool.GuestThread) {
			t, ok := th.(*guest.Thread)
			if !ok {
				_ = tx.Send(oneshot.Result[T]{Err: errors.InvalidInput(errors.PhaseGuest, "thread is not a wasm guest thread")})
				return
			}
			v, err := fn(ctx, t)
			_ = tx.Send(oneshot.Result[T]{Value: v, Err: err})
		},
		Drop: tx.Close,
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return fut.Await(ctx)
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state != stateInputArgs || msg.String() == "ctrl+c" {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.funcs)-1 {
				m.selected++
			}

		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.output, cmd = m.output.Update(msg)
			return m, cmd

		case "enter":
			switch m.state {
			case stateSelectFunc:
				if len(m.funcs) == 0 {
					return m, nil
				}
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callFunction
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callFunction

			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectFunc
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}
		}

	case tea.WindowSizeMsg:
		m.output.Width = msg.Width - 2
		m.output.Height = max(msg.Height-chromeRows-len(m.funcs), 3)
		m.rt.TTY().SetCols(uint32(max(m.output.Width, 1)))
		m.rt.TTY().SetRows(uint32(m.output.Height))

	case terminalMsg:
		if msg.closed {
			return m, nil
		}
		m.appendOutput(msg.cmd)
		return m, m.nextCommand

	case loadedMsg:
		m.loaded = true
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.ec = msg.ec
		m.funcs = msg.funcs

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) appendOutput(cmd terminal.Command) {
	switch cmd.Kind {
	case terminal.CommandCls:
		m.screen.Reset()
	default:
		m.screen.WriteString(strings.ReplaceAll(cmd.Text, "\r\n", "\n"))
	}
	m.output.SetContent(m.screen.String())
	m.output.GotoBottom()
}

func (m *interactiveModel) prepareInputs() {
	f := m.funcs[m.selected]
	m.inputs = make([]textinput.Model, len(f.params))
	for i, p := range f.params {
		ti := textinput.New()
		ti.Placeholder = api.ValueTypeName(p)
		ti.Prompt = fmt.Sprintf("arg%d: ", i)
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) callFunction() tea.Msg {
	f := m.funcs[m.selected]
	params := make([]uint64, len(m.inputs))
	for i, input := range m.inputs {
		v, err := encodeArg(input.Value(), f.params[i])
		if err != nil {
			return callResultMsg{err: fmt.Errorf("arg%d: %w", i, err)}
		}
		params[i] = v
	}

	res, err := onThread(m.ctx, m.rt, m.ec, func(ctx context.Context, th *guest.Thread) ([]uint64, error) {
		return th.Call(ctx, f.name, params...)
	})
	if err != nil {
		if stderrors.Is(err, errors.ErrDelivery) {
			err = fmt.Errorf("guest thread %d is gone: %w", m.ec.ThreadID, err)
		}
		return callResultMsg{err: err}
	}

	parts := make([]string, len(res))
	for i, v := range res {
		parts[i] = decodeResult(v, f.results[i])
	}
	if len(parts) == 0 {
		return callResultMsg{result: "(no results)"}
	}
	return callResultMsg{result: strings.Join(parts, ", ")}
}

func encodeArg(value string, t api.ValueType) (uint64, error) {
	switch t {
	case api.ValueTypeI32:
		v, err := strconv.ParseInt(value, 0, 32)
		return api.EncodeI32(int32(v)), err
	case api.ValueTypeI64:
		v, err := strconv.ParseInt(value, 0, 64)
		return api.EncodeI64(v), err
	case api.ValueTypeF32:
		v, err := strconv.ParseFloat(value, 32)
		return api.EncodeF32(float32(v)), err
	case api.ValueTypeF64:
		v, err := strconv.ParseFloat(value, 64)
		return api.EncodeF64(v), err
	default:
		return 0, fmt.Errorf("unsupported parameter type %s", api.ValueTypeName(t))
	}
}

func decodeResult(v uint64, t api.ValueType) string {
	switch t {
	case api.ValueTypeI32:
		return strconv.FormatInt(int64(api.DecodeI32(v)), 10)
	case api.ValueTypeI64:
		return strconv.FormatInt(int64(v), 10)
	case api.ValueTypeF32:
		return strconv.FormatFloat(float64(api.DecodeF32(v)), 'g', -1, 32)
	case api.ValueTypeF64:
		return strconv.FormatFloat(math.Float64frombits(v), 'g', -1, 64)
	default:
		return fmt.Sprintf("0x%x", v)
	}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if !m.loaded {
		return "Loading module..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("WASI Host"))
	b.WriteString(" ")
	b.WriteString(m.ec.Args[0])
	b.WriteString(fmt.Sprintf("  thread %d", m.ec.ThreadID))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		b.WriteString("Select a function to call:\n\n")
		for i, f := range m.funcs {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + f.name))
				b.WriteString(formatSignature(f))
			} else {
				b.WriteString("  " + funcStyle.Render(f.name) + formatSignature(f))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • pgup/pgdown scroll • q quit"))

	case stateInputArgs:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(f.name)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(api.ValueTypeName(f.params[i])))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(f.name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	b.WriteString("\n")
	b.WriteString(outputStyle.Render(m.output.View()))
	return b.String()
}

func formatSignature(f funcInfo) string {
	params := make([]string, len(f.params))
	for i, p := range f.params {
		params[i] = typeStyle.Render(api.ValueTypeName(p))
	}
	result := ""
	if len(f.results) > 0 {
		rs := make([]string, len(f.results))
		for i, r := range f.results {
			rs[i] = api.ValueTypeName(r)
		}
		result = " -> " + typeStyle.Render(strings.Join(rs, ", "))
	}
	return "(" + strings.Join(params, ", ") + ")" + result
}

func runInteractive(ctx context.Context, rt *runtime.Runtime, j job) error {
	defer rt.Close(context.Background())

	p := tea.NewProgram(newInteractiveModel(ctx, rt, j), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if stderrors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
