// Package trace produces one debug line per 6502 instruction: a register
// snapshot, a caller-supplied peripheral-status string, and asterisks on
// whatever changed since the previous line. It is the sink a debug build
// wires to cpu.Hal.SetDebugHook (§4.A); in a release build nothing calls
// SetDebugHook and the hook stays the Hal's no-op default.
package trace

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Snapshot is the register state a Logger diffs between lines. Periph is an
// arbitrary caller-supplied string (e.g. "NMI pending", "ppu=vblank") that
// participates in the diff like any other field.
type Snapshot struct {
	A, X, Y, SP byte
	P           byte
	PC          uint16
	Periph      string
}

// Config selects which fields a Logger prints and whether it keeps a
// running cycle count. The zero Config shows only the PC.
type Config struct {
	ShowA        bool `yaml:"show_a"`
	ShowX        bool `yaml:"show_x"`
	ShowY        bool `yaml:"show_y"`
	ShowSP       bool `yaml:"show_sp"`
	ShowFlags    bool `yaml:"show_flags"`
	ShowPeriph   bool `yaml:"show_periph"`
	ShowCycles   bool `yaml:"show_cycles"`
	AllRegisters bool `yaml:"-"`
}

// DefaultConfig shows every field but the cycle count.
func DefaultConfig() Config {
	return Config{ShowA: true, ShowX: true, ShowY: true, ShowSP: true, ShowFlags: true, ShowPeriph: true}
}

// LoadConfig reads a YAML filter file as described in SPEC_FULL's trace
// section. A missing or empty file is not an error — DefaultConfig is used.
// Otherwise the file's settings replace the defaults: a field the file does
// not name is off.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if len(raw) == 0 {
		return cfg, nil
	}
	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return cfg, err
	}
	return fileCfg, nil
}

// Logger writes one line per Log call to Out, marking fields that changed
// since the previous call with a trailing '*'.
type Logger struct {
	Out    io.Writer
	Cfg    Config
	prev   Snapshot
	cycle  uint64
	primed bool
}

// NewLogger returns a Logger writing to out under cfg.
func NewLogger(out io.Writer, cfg Config) *Logger {
	return &Logger{Out: out, Cfg: cfg}
}

// Log formats snap against the previous snapshot and writes the resulting
// line to l.Out.
func (l *Logger) Log(snap Snapshot) {
	fmt.Fprintln(l.Out, l.render(snap))
	l.prev = snap
	l.primed = true
	l.cycle++
}

// Hook returns a func(string) suitable for cpu.Hal.SetDebugHook: it treats
// the hook's text as the Periph field of a snapshot whose registers are
// supplied by snapshot.
func (l *Logger) Hook(snapshot func() Snapshot) func(string) {
	return func(text string) {
		snap := snapshot()
		snap.Periph = text
		l.Log(snap)
	}
}

func (l *Logger) render(snap Snapshot) string {
	s := fmt.Sprintf("%04X:", snap.PC)
	if l.Cfg.ShowA {
		s += " A=" + byteField(snap.A, l.prev.A, l.primed)
	}
	if l.Cfg.ShowX {
		s += " X=" + byteField(snap.X, l.prev.X, l.primed)
	}
	if l.Cfg.ShowY {
		s += " Y=" + byteField(snap.Y, l.prev.Y, l.primed)
	}
	if l.Cfg.ShowSP {
		s += " SP=" + byteField(snap.SP, l.prev.SP, l.primed)
	}
	if l.Cfg.ShowFlags {
		s += " P=" + byteField(snap.P, l.prev.P, l.primed)
	}
	if l.Cfg.ShowCycles {
		s += fmt.Sprintf(" cyc=%d", l.cycle)
	}
	if l.Cfg.ShowPeriph && snap.Periph != "" {
		mark := ""
		if l.primed && snap.Periph != l.prev.Periph {
			mark = "*"
		}
		s += " " + snap.Periph + mark
	}
	return s
}

func byteField(cur, prev byte, primed bool) string {
	s := fmt.Sprintf("%02X", cur)
	if primed && cur != prev {
		s += "*"
	}
	return s
}
