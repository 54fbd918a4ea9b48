// Package debugtui is the teacher's bubbletea/lipgloss inspector
// (cpu/debugger.go), adapted from a standalone Cpu-stepping toy into an
// inspector over a jitdrv.Driver: it single-steps the guest one 6502
// instruction at a time (always via the interpreter, so every step is
// visible regardless of what the JIT has compiled), and additionally
// surfaces code-cache occupancy, which the teacher's model had no
// equivalent of.
package debugtui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/davecgh/go-spew/spew"

	"sixtyfive/cache"
	"sixtyfive/cpu"
	"sixtyfive/disasm"
	"sixtyfive/interp"
)

// pageWidth is how many bytes renderPage shows per line, matching the
// teacher's layout.
const pageWidth = 16

type model struct {
	hal   *cpu.Hal
	cache *cache.Cache

	prevPC  uint16
	decoded disasm.DisassembledInstruction
	err     error
}

// New returns a bubbletea program stepping hal one instruction at a time,
// with cache occupancy drawn from c.
func New(hal *cpu.Hal, c *cache.Cache) *tea.Program {
	return tea.NewProgram(model{hal: hal, cache: c})
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case " ", "j":
			m.prevPC = m.hal.PC
			ins, err := interp.Step(m.hal)
			m.decoded = ins
			if err != nil {
				m.err = err
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

// renderPage renders one 16-byte page as a line, highlighting the byte at
// the current PC, the way the teacher's model.renderPage does.
func (m model) renderPage(start uint16) string {
	s := fmt.Sprintf("%04x | ", start)
	for i := 0; i < pageWidth; i++ {
		addr := start + uint16(i)
		b := m.hal.Bus.Read(addr)
		if addr == m.hal.PC {
			s += fmt.Sprintf("[%02x] ", b)
		} else {
			s += fmt.Sprintf(" %02x  ", b)
		}
	}
	return s
}

func (m model) status() string {
	return fmt.Sprintf("\nPC: %04x (%04x)\n%s\n", m.hal.PC, m.prevPC, m.hal)
}

func (m model) pageTable() string {
	header := "page | "
	for b := 0; b < pageWidth; b++ {
		header += fmt.Sprintf("  %01x  ", b)
	}

	base := m.hal.PC &^ 0xFF
	pages := []string{header}
	for i := 0; i < 5; i++ {
		pages = append(pages, m.renderPage(base+uint16(i*pageWidth)))
	}
	return strings.Join(pages, "\n")
}

func (m model) cacheStatus() string {
	if m.cache == nil {
		return ""
	}
	return fmt.Sprintf("cache: %d/%d entries, %d pending invalidation",
		m.cache.Len(), m.cache.Capacity(), m.cache.PendingInvalidation())
}

func (m model) View() string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		lipgloss.JoinHorizontal(
			lipgloss.Top,
			m.pageTable(),
			m.status(),
		),
		m.cacheStatus(),
		"",
		spew.Sdump(m.decoded),
	)
}
