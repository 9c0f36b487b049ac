package engine

import (
	"github.com/x4A81/chesscore/internal/board"
)

// Move ordering priorities. Each tier is spaced far enough apart that a
// history score (which only ever nudges moves within the "quiet" tier)
// can never bleed into the tier above it.
const (
	PVMoveScore      = 1000000
	TTMoveScore      = 900000
	PromotionScore   = 800000
	CaptureBaseScore = 800000
	KillerScore1     = 700000
	KillerScore2     = 600000
)

// mvvLva scores a capture by victim value first, attacker value second:
// Most Valuable Victim, Least Valuable Attacker.
var mvvLva = [6][6]int{
	//       P   N   B   R   Q   K  (attacker)
	/* P */ {15, 14, 14, 13, 12, 11},
	/* N */ {25, 24, 24, 23, 22, 21},
	/* B */ {35, 34, 34, 33, 32, 31},
	/* R */ {45, 44, 44, 43, 42, 41},
	/* Q */ {55, 54, 54, 53, 52, 51},
	/* K */ {0, 0, 0, 0, 0, 0},
}

// MoveOrderer holds the ordering state that persists across a whole search:
// killer moves per ply and the history heuristic for quiet moves.
type MoveOrderer struct {
	killers [MaxPly][2]board.Move
	history [2][64][64]int
}

// NewMoveOrderer creates a new move orderer.
func NewMoveOrderer() *MoveOrderer {
	return &MoveOrderer{}
}

// Clear resets killers and decays history for a new search.
func (mo *MoveOrderer) Clear() {
	for i := range mo.killers {
		mo.killers[i][0] = board.NoMove
		mo.killers[i][1] = board.NoMove
	}
	for c := range mo.history {
		for i := range mo.history[c] {
			for j := range mo.history[c][i] {
				mo.history[c][i][j] /= 2
			}
		}
	}
}

// ScoreMoves assigns an ordering score to every move in moves.
func (mo *MoveOrderer) ScoreMoves(pos *board.Position, moves *board.MoveList, ply int, ttMove, pvMove board.Move) []int {
	scores := make([]int, moves.Len())
	for i := 0; i < moves.Len(); i++ {
		scores[i] = mo.scoreMove(pos, moves.Get(i), ply, ttMove, pvMove)
	}
	return scores
}

func (mo *MoveOrderer) scoreMove(pos *board.Position, m board.Move, ply int, ttMove, pvMove board.Move) int {
	if pvMove != board.NoMove && m == pvMove {
		return PVMoveScore
	}
	if m == ttMove {
		return TTMoveScore
	}
	if m.IsPromotion() {
		return PromotionScore + int(m.Promotion())
	}
	if m.IsCapture() {
		attacker := pos.PieceAt(m.From())
		var victim board.PieceType
		if m.IsEnPassant() {
			victim = board.Pawn
		} else {
			victim = pos.PieceAt(m.To()).Type()
		}
		return CaptureBaseScore + mvvLva[victim][attacker.Type()]*1000
	}
	if m == mo.killers[ply][0] {
		return KillerScore1
	}
	if m == mo.killers[ply][1] {
		return KillerScore2
	}
	return mo.history[pos.SideToMove][m.From()][m.To()]
}

// SortMoves sorts moves by score, descending. A selection sort is plenty
// for the handful of dozens of moves a chess position ever produces.
func SortMoves(moves *board.MoveList, scores []int) {
	n := moves.Len()
	for i := 0; i < n-1; i++ {
		best := i
		for j := i + 1; j < n; j++ {
			if scores[j] > scores[best] {
				best = j
			}
		}
		if best != i {
			moves.Swap(i, best)
			scores[i], scores[best] = scores[best], scores[i]
		}
	}
}

// PickMove moves the best-scoring move among moves[index:] into index, so
// callers can sort lazily: only as many moves as actually get searched.
func PickMove(moves *board.MoveList, scores []int, index int) {
	best := index
	for j := index + 1; j < moves.Len(); j++ {
		if scores[j] > scores[best] {
			best = j
		}
	}
	if best != index {
		moves.Swap(index, best)
		scores[index], scores[best] = scores[best], scores[index]
	}
}

// UpdateKillers records a quiet move that caused a beta cutoff at ply.
func (mo *MoveOrderer) UpdateKillers(m board.Move, ply int) {
	if ply >= MaxPly || mo.killers[ply][0] == m {
		return
	}
	mo.killers[ply][1] = mo.killers[ply][0]
	mo.killers[ply][0] = m
}

// UpdateHistory adjusts the history score for a quiet move by side to
// move: positive on a cutoff, negative for quiet moves tried and rejected
// before the cutoff move, both scaled by depth squared.
func (mo *MoveOrderer) UpdateHistory(side board.Color, m board.Move, depth int, isGood bool) {
	from, to := m.From(), m.To()
	bonus := depth * depth
	if isGood {
		mo.history[side][from][to] += bonus
		if mo.history[side][from][to] > 400000 {
			for i := range mo.history[side] {
				for j := range mo.history[side][i] {
					mo.history[side][i][j] /= 2
				}
			}
		}
	} else {
		mo.history[side][from][to] -= bonus
		if mo.history[side][from][to] < -400000 {
			mo.history[side][from][to] = -400000
		}
	}
}
