package game

import "fmt"

// XO is the built-in 3x3 alignment game. The board is nine characters,
// '.' for empty cells, row by row.
type XO struct{}

const xoEmptyBoard = "........."

var xoWinLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

func (XO) Name() string         { return "xo" }
func (XO) InitialBoard() string { return xoEmptyBoard }

func (XO) LegalMoves(board string) []int {
	moves := make([]int, 0, 9)
	for i, ch := range board {
		if ch == '.' {
			moves = append(moves, i)
		}
	}
	return moves
}

func (XO) Apply(board string, cell int, mark string) (string, error) {
	if cell < 0 || cell > 8 {
		return "", fmt.Errorf("cell %d out of range", cell)
	}
	if board[cell] != '.' {
		return "", fmt.Errorf("cell %d already taken", cell)
	}
	return board[:cell] + mark + board[cell+1:], nil
}

func (XO) Winner(board string) (string, bool) {
	for _, line := range xoWinLines {
		a, b, c := line[0], line[1], line[2]
		if board[a] != '.' && board[a] == board[b] && board[b] == board[c] {
			return string(board[a]), true
		}
	}
	for _, ch := range board {
		if ch == '.' {
			return "", false
		}
	}
	return Draw, true
}

// AI levels.
const (
	LevelEasy   = "easy"
	LevelNormal = "normal"
	LevelHard   = "hard"
)

// ChooseMove picks a move for mark at the given difficulty.
func (e XO) ChooseMove(board string, mark string, level string) int {
	switch level {
	case LevelEasy:
		return e.LegalMoves(board)[0]
	case LevelHard:
		return e.minimaxMove(board, mark)
	default:
		return e.heuristicMove(board, mark)
	}
}

// heuristicMove: win if possible, block the opponent, take center, then a
// corner, then anything.
func (e XO) heuristicMove(board string, mark string) int {
	opp := Opponent(mark)
	moves := e.LegalMoves(board)
	for _, m := range moves {
		b, _ := e.Apply(board, m, mark)
		if w, done := e.Winner(b); done && w == mark {
			return m
		}
	}
	for _, m := range moves {
		b, _ := e.Apply(board, m, opp)
		if w, done := e.Winner(b); done && w == opp {
			return m
		}
	}
	if board[4] == '.' {
		return 4
	}
	for _, m := range []int{0, 2, 6, 8} {
		if board[m] == '.' {
			return m
		}
	}
	return moves[0]
}

func (e XO) minimaxMove(board string, mark string) int {
	opp := Opponent(mark)
	bestMove := -1
	bestVal := -999
	for _, m := range e.LegalMoves(board) {
		b, _ := e.Apply(board, m, mark)
		val := e.minimax(b, opp, mark)
		if val > bestVal {
			bestVal = val
			bestMove = m
		}
	}
	if bestMove < 0 {
		return e.LegalMoves(board)[0]
	}
	return bestMove
}

func (e XO) minimax(board string, turn, me string) int {
	if w, done := e.Winner(board); done {
		switch w {
		case me:
			return 10
		case Draw:
			return 0
		default:
			return -10
		}
	}
	if turn == me {
		best := -999
		for _, m := range e.LegalMoves(board) {
			b, _ := e.Apply(board, m, me)
			if v := e.minimax(b, Opponent(me), me); v > best {
				best = v
			}
		}
		return best
	}
	best := 999
	for _, m := range e.LegalMoves(board) {
		b, _ := e.Apply(board, m, turn)
		if v := e.minimax(b, me, me); v < best {
			best = v
		}
	}
	return best
}

func init() {
	Register(XO{})
}
