// Package engine implements the chess search and evaluation engine.
package engine

import (
	"time"

	"github.com/x4A81/chesscore/internal/board"
	"github.com/x4A81/chesscore/internal/book"
)

// SearchInfo reports the progress of a search after each completed depth,
// in the shape a UCI front end forwards as an "info" line.
type SearchInfo struct {
	Depth    int
	SelDepth int
	Score    int
	Nodes    uint64
	Time     time.Duration
	PV       []board.Move
	HashFull int // Permille of hash table used
}

// SearchLimits constrains a single search.
type SearchLimits struct {
	Depth    int           // Maximum depth (0 = no limit)
	Nodes    uint64        // Maximum nodes (0 = no limit)
	MoveTime time.Duration // Time for this move (0 = no limit)
	Infinite bool          // Search until stopped
}

// Difficulty is a coarse strength knob for non-UCI callers.
type Difficulty int

const (
	Easy   Difficulty = iota // ~2-3 ply
	Medium                   // ~6-7 ply
	Hard                     // maximum strength, time-limited
)

// DifficultySettings maps a difficulty to the search limits it runs under.
var DifficultySettings = map[Difficulty]SearchLimits{
	Easy:   {Depth: 3, MoveTime: 500 * time.Millisecond},
	Medium: {Depth: 7, MoveTime: 2 * time.Second},
	Hard:   {Depth: 40, MoveTime: 10 * time.Second},
}

// Engine drives one Searcher through iterative deepening. It is
// single-threaded by design: one position, one search at a time, with the
// only cross-goroutine communication being the Stop signal a UCI command
// reader sends while a search is in flight.
type Engine struct {
	tt       *TranspositionTable
	searcher *Searcher

	difficulty Difficulty
	book       *book.Book

	rootPosHashes []uint64

	// OnInfo, if set, is invoked once per completed iterative-deepening
	// depth with the current best line. Search itself never writes to
	// stdout; that belongs to the UCI layer.
	OnInfo func(SearchInfo)
}

// NewEngine creates a new engine with a transposition table of the given
// size in megabytes.
func NewEngine(ttSizeMB int) *Engine {
	tt := NewTranspositionTable(ttSizeMB)
	return &Engine{
		tt:         tt,
		searcher:   NewSearcher(tt),
		difficulty: Medium,
	}
}

// SetDifficulty sets the engine's strength for Search (non-UCI callers).
func (e *Engine) SetDifficulty(d Difficulty) {
	e.difficulty = d
}

// LoadBook loads an opening book from a Polyglot file.
func (e *Engine) LoadBook(filename string) error {
	b, err := book.LoadPolyglot(filename)
	if err != nil {
		return err
	}
	e.book = b
	return nil
}

// SetBook installs an already-loaded opening book.
func (e *Engine) SetBook(b *book.Book) {
	e.book = b
}

// HasBook reports whether an opening book is loaded.
func (e *Engine) HasBook() bool {
	return e.book != nil
}

// BookMoves returns every book move known for pos, heaviest weight first,
// for UCI's "bookmoves" debug command.
func (e *Engine) BookMoves(pos *board.Position) []book.BookEntry {
	return e.book.ProbeAll(pos)
}

// SetPositionHistory supplies the Zobrist hashes of positions already
// played in the game, oldest first, so the search can detect repetition
// draws that span its root. Call this before each Search/SearchWithLimits.
func (e *Engine) SetPositionHistory(hashes []uint64) {
	e.rootPosHashes = make([]uint64, len(hashes))
	copy(e.rootPosHashes, hashes)
	e.searcher.SetHistory(e.rootPosHashes)
}

// Search finds the best move for pos under the engine's configured
// difficulty.
func (e *Engine) Search(pos *board.Position) board.Move {
	return e.SearchWithLimits(pos, DifficultySettings[e.difficulty])
}

// SearchWithLimits finds the best move for pos under fixed limits
// (depth/nodes/movetime), with no UCI time-control calculation.
func (e *Engine) SearchWithLimits(pos *board.Position, limits SearchLimits) board.Move {
	return e.iterate(pos, limits, nil)
}

// SearchWithUCILimits finds the best move using full UCI time controls
// (wtime/btime/winc/binc/movestogo), deriving an optimum/maximum budget
// via TimeManager before the first depth starts.
func (e *Engine) SearchWithUCILimits(pos *board.Position, limits UCILimits, ply int) board.Move {
	tm := NewTimeManager()
	tm.Init(limits, pos.SideToMove, ply)

	sl := SearchLimits{Depth: limits.Depth, Nodes: limits.Nodes, Infinite: limits.Infinite}
	return e.iterate(pos, sl, tm)
}

// iterate runs iterative deepening with aspiration windows, reporting
// progress through OnInfo after each depth and stopping when limits, tm
// (if supplied) or an external Stop is satisfied.
func (e *Engine) iterate(pos *board.Position, limits SearchLimits, tm *TimeManager) board.Move {
	if e.book != nil {
		if move, ok := e.book.Probe(pos); ok {
			return move
		}
	}

	e.searcher.Reset()
	e.tt.NewSearch()

	startTime := time.Now()

	maxDepth := MaxPly
	if limits.Depth > 0 && limits.Depth < maxDepth {
		maxDepth = limits.Depth
	}

	var deadline time.Time
	if limits.MoveTime > 0 {
		deadline = startTime.Add(limits.MoveTime)
	}

	var bestMove, lastBestMove board.Move
	var bestScore int
	var stabilityCount, instabilityCount int
	prevScore := 0

	for depth := 1; depth <= maxDepth; depth++ {
		if e.searcher.IsStopped() {
			break
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			break
		}
		if tm != nil && tm.ShouldStop() {
			break
		}

		move, score := e.searchDepth(depth, pos, prevScore)
		if e.searcher.IsStopped() {
			break
		}

		if move != board.NoMove {
			if move == lastBestMove {
				stabilityCount++
				instabilityCount = 0
			} else {
				instabilityCount++
				stabilityCount = 0
			}
			lastBestMove = move
			bestMove = move
			bestScore = score
		}
		prevScore = score

		if e.OnInfo != nil {
			e.OnInfo(SearchInfo{
				Depth:    depth,
				SelDepth: e.searcher.SelDepth(),
				Score:    bestScore,
				Nodes:    e.searcher.Nodes(),
				Time:     time.Since(startTime),
				PV:       e.searcher.GetPV(),
				HashFull: e.tt.HashFull(),
			})
		}

		if bestScore > MateScore-100 || bestScore < -MateScore+100 {
			break
		}
		if limits.Nodes > 0 && e.searcher.Nodes() >= limits.Nodes {
			break
		}

		if tm != nil && tm.PastOptimum() {
			if instabilityCount >= 2 {
				tm.AdjustForInstability(instabilityCount)
			} else if stabilityCount >= 2 {
				tm.AdjustForStability(stabilityCount)
			}
			if stabilityCount >= 4 {
				break
			}
		}
	}

	e.searcher.Stop()
	return bestMove
}

// searchDepth runs one iterative-deepening depth, widening the aspiration
// window around the previous depth's score until the result lands inside
// it (or the window has opened up to the full range).
func (e *Engine) searchDepth(depth int, pos *board.Position, prevScore int) (board.Move, int) {
	if depth < 4 || prevScore == 0 {
		return e.searcher.SearchAspiration(pos, depth, -Infinity, Infinity)
	}

	window := 25
	alpha := prevScore - window
	beta := prevScore + window

	for {
		move, score := e.searcher.SearchAspiration(pos, depth, alpha, beta)
		if e.searcher.IsStopped() {
			return move, score
		}
		if score <= alpha {
			alpha -= window * 2
			if alpha < -Infinity {
				alpha = -Infinity
			}
		} else if score >= beta {
			beta += window * 2
			if beta > Infinity {
				beta = Infinity
			}
		} else {
			return move, score
		}
		if alpha <= -Infinity && beta >= Infinity {
			return e.searcher.SearchAspiration(pos, depth, -Infinity, Infinity)
		}
	}
}

// Stop requests the in-flight search (if any) unwind as soon as possible.
func (e *Engine) Stop() {
	e.searcher.Stop()
}

// Clear wipes the transposition table, move-ordering heuristics, and pawn
// hash cache, as if the engine were freshly started.
func (e *Engine) Clear() {
	e.tt.Clear()
	e.searcher.orderer.Clear()
	e.searcher.orderer.history = [2][64][64]int{}
	e.searcher.pawnTable.Clear()
}

// Perft counts the leaf nodes reachable from pos at the given depth, used
// by the UCI "go perft" debug command to validate move generation.
func (e *Engine) Perft(pos *board.Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}

	moves := pos.GenerateLegalMoves()
	if depth == 1 {
		return uint64(moves.Len())
	}

	var nodes uint64
	for i := 0; i < moves.Len(); i++ {
		move := moves.Get(i)
		pos.MakeMove(move)
		nodes += e.Perft(pos, depth-1)
		pos.UnmakeMove(move)
	}
	return nodes
}

// Evaluate returns the static evaluation of pos.
func (e *Engine) Evaluate(pos *board.Position) int {
	return Evaluate(pos)
}

// ScoreToString renders a centipawn/mate score the way UCI "info score"
// and debug output expect: "Mate in N" near a forced mate, otherwise
// pawns.centipawns.
func ScoreToString(score int) string {
	if score > MateScore-100 {
		mateIn := (MateScore - score + 1) / 2
		return "Mate in " + itoa(mateIn)
	}
	if score < -MateScore+100 {
		mateIn := (MateScore + score + 1) / 2
		return "Mated in " + itoa(mateIn)
	}

	sign := ""
	if score < 0 {
		sign = "-"
		score = -score
	}
	pawns := score / 100
	centipawns := score % 100
	pad := ""
	if centipawns < 10 {
		pad = "0"
	}
	return sign + itoa(pawns) + "." + pad + itoa(centipawns)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	if n < 0 {
		return "-" + itoa(-n)
	}
	s := ""
	for n > 0 {
		s = string('0'+byte(n%10)) + s
		n /= 10
	}
	return s
}
