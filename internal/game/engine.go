package game

import (
	"fmt"
	"sort"
	"sync"
)

// Marks and terminal results shared by all engines.
const (
	MarkX = "X"
	MarkO = "O"
	Draw  = "D"
)

// Engine defines the rules of one board game over an opaque string board.
type Engine interface {
	Name() string
	InitialBoard() string
	// LegalMoves lists the cells the mark on turn may play.
	LegalMoves(board string) []int
	// Apply plays mark at cell and returns the new board.
	Apply(board string, cell int, mark string) (string, error)
	// Winner returns MarkX, MarkO or Draw once the board is terminal.
	Winner(board string) (string, bool)
}

// AIEngine is implemented by engines that ship a computer opponent.
type AIEngine interface {
	Engine
	ChooseMove(board string, mark string, level string) int
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Engine)
)

// Register adds an engine to the registry. Later registrations for the same
// name win, which lets tests swap in fakes.
func Register(e Engine) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[e.Name()] = e
}

// Get returns the engine for a game name.
func Get(name string) (Engine, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	e, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown game %q", name)
	}
	return e, nil
}

// Names lists registered games in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Opponent flips a mark.
func Opponent(mark string) string {
	if mark == MarkX {
		return MarkO
	}
	return MarkX
}
