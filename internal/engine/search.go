package engine

import (
	"sync/atomic"

	"github.com/x4A81/chesscore/internal/board"
)

// Search constants.
const (
	Infinity  = 30000
	MateScore = 29000
	MaxPly    = 128
)

// PVTable stores the principal variation collected at every ply of the
// current search, triangular-array style: pv.moves[ply][ply:pv.length[ply]]
// is the line from ply to the end of search.
type PVTable struct {
	length [MaxPly]int
	moves  [MaxPly][MaxPly]board.Move
}

// Searcher runs a single-threaded alpha-beta search against one position.
// It is not safe for concurrent use; the engine runs exactly one Searcher
// at a time and communicates a stop request through stopFlag, the only
// field other goroutines (the UCI command reader) touch directly.
type Searcher struct {
	pos       *board.Position
	tt        *TranspositionTable
	orderer   *MoveOrderer
	pawnTable *PawnTable

	nodes    uint64
	seldepth int
	stopFlag atomic.Bool

	pv PVTable

	// rootHistory holds the Zobrist hashes of positions played earlier in
	// the game (set by the engine before each search); path holds the
	// hashes of positions reached along the current search line. Together
	// they let isRepetition recognize a draw without replaying the whole
	// game on every node.
	rootHistory []uint64
	path        [MaxPly]uint64
}

// pawnTableSizeMB is small on purpose: pawn structure alone has far less
// entropy than the full position, so a 4MB table (262,144 entries) already
// holds a quarter of a million distinct pawn skeletons.
const pawnTableSizeMB = 4

// NewSearcher creates a new searcher sharing the given transposition table.
func NewSearcher(tt *TranspositionTable) *Searcher {
	return &Searcher{
		tt:        tt,
		orderer:   NewMoveOrderer(),
		pawnTable: NewPawnTable(pawnTableSizeMB),
	}
}

// Stop signals the search to unwind as soon as it next checks.
func (s *Searcher) Stop() {
	s.stopFlag.Store(true)
}

// Reset clears per-search state (but not the transposition table, which
// persists across searches until explicitly cleared).
func (s *Searcher) Reset() {
	s.stopFlag.Store(false)
	s.nodes = 0
	s.seldepth = 0
	s.orderer.Clear()
}

// Nodes returns the number of nodes visited by the most recent search.
func (s *Searcher) Nodes() uint64 {
	return s.nodes
}

// SelDepth returns the deepest ply reached by the most recent search,
// including quiescence and extensions.
func (s *Searcher) SelDepth() int {
	return s.seldepth
}

// SetHistory supplies the Zobrist hashes of positions already played in
// the game, oldest first, so repetition draws spanning the search root
// can be detected.
func (s *Searcher) SetHistory(hashes []uint64) {
	s.rootHistory = hashes
}

// Search runs a fixed-depth alpha-beta search from pos and returns the
// best move found along with its score, from the side to move's
// perspective. Iterative deepening, time control and PV reporting live in
// Engine; Search itself always walks the tree to exactly depth.
func (s *Searcher) Search(pos *board.Position, depth int) (board.Move, int) {
	return s.SearchAspiration(pos, depth, -Infinity, Infinity)
}

// SearchAspiration runs the search within a caller-supplied window, letting
// the engine's iterative-deepening loop retry with progressively wider
// windows when the result fails high or low.
func (s *Searcher) SearchAspiration(pos *board.Position, depth, alpha, beta int) (board.Move, int) {
	s.pos = pos.Copy()
	score := s.search(depth, 0, alpha, beta, true, true)

	var bestMove board.Move
	if s.pv.length[0] > 0 {
		bestMove = s.pv.moves[0][0]
	}
	return bestMove, score
}

// IsStopped reports whether the search has been asked to stop.
func (s *Searcher) IsStopped() bool {
	return s.stopFlag.Load()
}

// GetPV returns the principal variation from the most recent search,
// root move first.
func (s *Searcher) GetPV() []board.Move {
	pv := make([]board.Move, s.pv.length[0])
	copy(pv, s.pv.moves[0][:s.pv.length[0]])
	return pv
}

func (s *Searcher) updatePV(ply int, move board.Move) {
	s.pv.moves[ply][ply] = move
	for j := ply + 1; j < s.pv.length[ply+1]; j++ {
		s.pv.moves[ply][j] = s.pv.moves[ply+1][j]
	}
	s.pv.length[ply] = s.pv.length[ply+1]
}

// search implements negamax alpha-beta with the full interior-node
// feature stack: null-move pruning, razoring, futility pruning, late-move
// reductions and principal variation search.
func (s *Searcher) search(depth, ply int, alpha, beta int, pvNode, nullAllowed bool) int {
	s.nodes++
	if ply > s.seldepth {
		s.seldepth = ply
	}
	s.pv.length[ply] = ply

	if s.nodes&2047 == 0 && s.stopFlag.Load() {
		return 0
	}

	if ply > 0 {
		if s.isRepetition(ply) || s.pos.HalfMoveClock >= 100 || s.pos.IsInsufficientMaterial() {
			return 0
		}
		// Mate distance pruning: a mate already found closer to the root
		// can't be beaten by anything found deeper, so tighten the window.
		if alpha < -MateScore+ply {
			alpha = -MateScore + ply
		}
		if beta > MateScore-ply {
			beta = MateScore - ply
		}
		if alpha >= beta {
			return alpha
		}
	}

	inCheck := s.pos.InCheck()
	if inCheck {
		depth++
	}

	if depth <= 0 || ply >= MaxPly-1 {
		return s.quiescence(ply, alpha, beta)
	}

	var ttMove board.Move
	ttEntry, found := s.tt.Probe(s.pos.Hash)
	if found {
		ttMove = ttEntry.BestMove
		if int(ttEntry.Depth) >= depth {
			score := AdjustScoreFromTT(int(ttEntry.Score), ply)
			switch ttEntry.Flag {
			case TTExact:
				return score
			case TTLowerBound:
				if score > alpha {
					alpha = score
				}
			case TTUpperBound:
				if score < beta {
					beta = score
				}
			}
			if alpha >= beta {
				return score
			}
		}
	}

	staticEval := EvaluateCached(s.pos, s.pawnTable)

	// Razoring: if we are hopelessly behind static eval at shallow depth,
	// confirm with a quiescence search before trusting it.
	if !pvNode && !inCheck && depth <= 2 {
		razorMargin := 300 * depth
		if staticEval+razorMargin < alpha {
			score := s.quiescence(ply, alpha, beta)
			if score < alpha {
				return score
			}
		}
	}

	// Null-move pruning: pass the move and see if the opponent still
	// can't beat beta even with a free tempo. Skipped in check (no legal
	// null move), near the root of a PV line, and in pure pawn endgames
	// where zugzwang breaks the assumption.
	if nullAllowed && !pvNode && !inCheck && depth >= 3 &&
		staticEval >= beta && beta < MateScore-MaxPly && s.pos.HasNonPawnMaterial() {
		r := 3
		if depth > 6 {
			r = 4
		}
		undo := s.pos.MakeNullMove()
		s.path[ply] = s.pos.Hash
		score := -s.search(depth-1-r, ply+1, -beta, -beta+1, false, false)
		s.pos.UnmakeNullMove(undo)
		if s.stopFlag.Load() {
			return 0
		}
		if score >= beta {
			return beta
		}
	}

	// Futility pruning: at shallow depth, a quiet move that can't close
	// the gap to alpha even with a generous margin isn't worth searching.
	futilityPrune := false
	if !pvNode && !inCheck && depth <= 3 {
		futilityMargin := [...]int{0, 150, 300, 500}
		if staticEval+futilityMargin[depth] <= alpha {
			futilityPrune = true
		}
	}

	moves := s.pos.GenerateLegalMoves()
	if moves.Len() == 0 {
		if inCheck {
			return -MateScore + ply
		}
		return 0
	}

	scores := s.orderer.ScoreMoves(s.pos, moves, ply, ttMove, board.NoMove)

	bestScore := -Infinity
	bestMove := board.NoMove
	flag := TTUpperBound
	legalMoves := 0

	for i := 0; i < moves.Len(); i++ {
		PickMove(moves, scores, i)
		move := moves.Get(i)

		quiet := !move.IsCapture() && !move.IsPromotion()

		s.pos.MakeMove(move)
		givesCheck := s.pos.InCheck()

		if futilityPrune && legalMoves > 0 && quiet && !givesCheck {
			s.pos.UnmakeMove(move)
			continue
		}

		s.path[ply] = s.pos.Hash
		legalMoves++

		var score int
		if legalMoves == 1 {
			score = -s.search(depth-1, ply+1, -beta, -alpha, pvNode, true)
		} else {
			reduction := 0
			if depth >= 3 && legalMoves > 4 && quiet && !inCheck && !givesCheck {
				reduction = 1
				if legalMoves > 10 {
					reduction = 2
				}
			}
			score = -s.search(depth-1-reduction, ply+1, -alpha-1, -alpha, false, true)
			if score > alpha && reduction > 0 {
				score = -s.search(depth-1, ply+1, -alpha-1, -alpha, false, true)
			}
			if score > alpha && score < beta {
				score = -s.search(depth-1, ply+1, -beta, -alpha, pvNode, true)
			}
		}

		s.pos.UnmakeMove(move)

		if s.stopFlag.Load() {
			return 0
		}

		if score > bestScore {
			bestScore = score
			bestMove = move

			if score > alpha {
				alpha = score
				flag = TTExact
				s.updatePV(ply, move)
			}
		}

		if score >= beta {
			s.tt.Store(s.pos.Hash, depth, AdjustScoreToTT(score, ply), TTLowerBound, bestMove)
			if quiet {
				s.orderer.UpdateKillers(move, ply)
				s.orderer.UpdateHistory(s.pos.SideToMove, move, depth, true)
			}
			return score
		}
	}

	s.tt.Store(s.pos.Hash, depth, AdjustScoreToTT(bestScore, ply), flag, bestMove)
	return bestScore
}

// quiescence extends the search through captures (and, when in check,
// every legal reply) until the position is quiet, avoiding the horizon
// effect where a fixed-depth cutoff mistakes a mid-exchange position for
// a final one.
func (s *Searcher) quiescence(ply int, alpha, beta int) int {
	s.nodes++
	if ply > s.seldepth {
		s.seldepth = ply
	}

	if s.nodes&2047 == 0 && s.stopFlag.Load() {
		return 0
	}
	if ply >= MaxPly-1 {
		return EvaluateCached(s.pos, s.pawnTable)
	}

	inCheck := s.pos.InCheck()

	var standPat int
	if !inCheck {
		standPat = EvaluateCached(s.pos, s.pawnTable)
		if standPat >= beta {
			return beta
		}
		if standPat > alpha {
			alpha = standPat
		}

		const bigDelta = QueenValue
		if standPat+bigDelta < alpha {
			return alpha
		}
	}

	var moves *board.MoveList
	if inCheck {
		moves = s.pos.GenerateLegalMoves()
		if moves.Len() == 0 {
			return -MateScore + ply
		}
	} else {
		moves = s.pos.GenerateCaptures()
	}

	scores := s.orderer.ScoreMoves(s.pos, moves, ply, board.NoMove, board.NoMove)

	for i := 0; i < moves.Len(); i++ {
		PickMove(moves, scores, i)
		move := moves.Get(i)

		if !inCheck {
			// SEE pruning: don't bother recapturing into a loss.
			if move.IsCapture() && SEE(s.pos, move) < 0 {
				continue
			}

			var captureValue int
			if move.IsEnPassant() {
				captureValue = PawnValue
			} else if v := s.pos.PieceAt(move.To()); v != board.NoPiece {
				captureValue = pieceValues[v.Type()]
			}
			if move.IsPromotion() {
				captureValue += QueenValue - PawnValue
			}
			if standPat+captureValue+200 < alpha {
				continue
			}
		}

		s.pos.MakeMove(move)
		score := -s.quiescence(ply+1, -beta, -alpha)
		s.pos.UnmakeMove(move)

		if s.stopFlag.Load() {
			return 0
		}

		if score >= beta {
			return beta
		}
		if score > alpha {
			alpha = score
		}
	}

	return alpha
}

// isRepetition reports whether the current position has occurred before,
// either earlier in the game (rootHistory) or earlier in this search line
// (path), within the span the half-move clock guarantees is reversible.
// A single match is treated as a draw rather than waiting for a third
// occurrence: once a position repeats once under normal play, a second
// repetition is forced, so engines conventionally score the draw as soon
// as it's reachable.
func (s *Searcher) isRepetition(ply int) bool {
	hash := s.pos.Hash
	limit := s.pos.HalfMoveClock

	// path[i] holds the position reached at ply i+1, so path[ply-1] is the
	// current position itself and the scan starts one entry earlier.
	for i := ply - 2; i >= 0 && ply-1-i <= limit; i-- {
		if s.path[i] == hash {
			return true
		}
	}

	n := len(s.rootHistory)
	for i := n - 1; i >= 0 && n-i <= limit; i-- {
		if s.rootHistory[i] == hash {
			return true
		}
	}
	return false
}
