// Package engine implements the chess search and evaluation engine.
package engine

import (
	"github.com/x4A81/chesscore/internal/board"
)

// Material values in centipawns.
const (
	PawnValue   = 100
	KnightValue = 320
	BishopValue = 330
	RookValue   = 500
	QueenValue  = 900
	KingValue   = 20000
)

var pieceValues = [7]int{PawnValue, KnightValue, BishopValue, RookValue, QueenValue, KingValue, 0}

// endgamePieceThreshold is the non-pawn, non-king piece count (both sides
// combined) at or below which the position is scored with the endgame king
// table instead of the middlegame one.
const endgamePieceThreshold = 7

// Pawn structure penalties/bonuses. The doubled/tripled penalties apply per
// file, the isolated penalties per pawn, and the rook bonuses per rook.
const (
	doubledPawnPenalty      = -12
	tripledPawnPenalty      = -20 // on top of doubledPawnPenalty, per pawn beyond the second
	isolatedPawnPenalty     = -15
	halfIsolatedPawnPenalty = -8 // supported on only one adjacent file
	rookOpenFileBonus       = 20
	rookSemiOpenFileBonus   = 10
)

// passedPawnBonus is indexed by the pawn's relative rank (1 = its own second
// rank, 6 = one step from promoting).
var passedPawnBonus = [8]int{0, 10, 20, 40, 70, 120, 200, 0}

// Piece-square tables from White's perspective, written rank 8 first (index 0
// is a8). White pieces index them through Square.Mirror; Black pieces index
// them by raw square.

var pawnPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	50, 50, 50, 50, 50, 50, 50, 50,
	10, 10, 20, 30, 30, 20, 10, 10,
	5, 5, 10, 25, 25, 10, 5, 5,
	0, 0, 0, 20, 20, 0, 0, 0,
	5, -5, -10, 0, 0, -10, -5, 5,
	5, 10, 10, -20, -20, 10, 10, 5,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var knightPST = [64]int{
	-50, -40, -30, -30, -30, -30, -40, -50,
	-40, -20, 0, 0, 0, 0, -20, -40,
	-30, 0, 10, 15, 15, 10, 0, -30,
	-30, 5, 15, 20, 20, 15, 5, -30,
	-30, 0, 15, 20, 20, 15, 0, -30,
	-30, 5, 10, 15, 15, 10, 5, -30,
	-40, -20, 0, 5, 5, 0, -20, -40,
	-50, -40, -30, -30, -30, -30, -40, -50,
}

var bishopPST = [64]int{
	-20, -10, -10, -10, -10, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 10, 10, 5, 0, -10,
	-10, 5, 5, 10, 10, 5, 5, -10,
	-10, 0, 10, 10, 10, 10, 0, -10,
	-10, 10, 10, 10, 10, 10, 10, -10,
	-10, 5, 0, 0, 0, 0, 5, -10,
	-20, -10, -10, -10, -10, -10, -10, -20,
}

var rookPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	5, 10, 10, 10, 10, 10, 10, 5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	0, 0, 0, 5, 5, 0, 0, 0,
}

var queenPST = [64]int{
	-20, -10, -10, -5, -5, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 5, 5, 5, 0, -10,
	-5, 0, 5, 5, 5, 5, 0, -5,
	0, 0, 5, 5, 5, 5, 0, -5,
	-10, 5, 5, 5, 5, 5, 0, -10,
	-10, 0, 5, 0, 0, 0, 0, -10,
	-20, -10, -10, -5, -5, -10, -10, -20,
}

var kingMidgamePST = [64]int{
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-20, -30, -30, -40, -40, -30, -30, -20,
	-10, -20, -20, -20, -20, -20, -20, -10,
	20, 20, 0, 0, 0, 0, 20, 20,
	20, 30, 10, 0, 0, 10, 30, 20,
}

var kingEndgamePST = [64]int{
	-50, -40, -30, -20, -20, -30, -40, -50,
	-30, -20, -10, 0, 0, -10, -20, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -30, 0, 0, 0, 0, -30, -30,
	-50, -30, -30, -30, -30, -30, -30, -50,
}

var psts = [...][64]int{pawnPST, knightPST, bishopPST, rookPST, queenPST}

// adjFileMask[file] is the file(s) immediately beside file, used to test
// pawn isolation.
var adjFileMask [8]board.Bitboard

// frontSpanMask[color][sq] is every square directly ahead of sq (in color's
// direction of travel) on sq's own file and both adjacent files: the zone
// that must be clear of enemy pawns for a pawn on sq to be passed.
var frontSpanMask [2][64]board.Bitboard

func init() {
	for f := 0; f < 8; f++ {
		var m board.Bitboard
		if f > 0 {
			m |= board.FileMask[f-1]
		}
		if f < 7 {
			m |= board.FileMask[f+1]
		}
		adjFileMask[f] = m
	}

	for sq := board.A1; sq <= board.H8; sq++ {
		file := sq.File()
		files := board.FileMask[file] | adjFileMask[file]

		var aheadWhite, aheadBlack board.Bitboard
		for rank := 0; rank < 8; rank++ {
			if rank > sq.Rank() {
				aheadWhite |= board.RankMask[rank]
			}
			if rank < sq.Rank() {
				aheadBlack |= board.RankMask[rank]
			}
		}
		frontSpanMask[board.White][sq] = files & aheadWhite
		frontSpanMask[board.Black][sq] = files & aheadBlack
	}
}

// IsEndgame reports whether the position has reached the endgame phase:
// few enough knights/bishops/rooks/queens remain (on both sides combined)
// that the king should be scored for activity rather than safety.
func IsEndgame(pos *board.Position) bool {
	count := 0
	for c := board.White; c <= board.Black; c++ {
		count += pos.Pieces[c][board.Knight].PopCount()
		count += pos.Pieces[c][board.Bishop].PopCount()
		count += pos.Pieces[c][board.Rook].PopCount()
		count += pos.Pieces[c][board.Queen].PopCount()
	}
	return count <= endgamePieceThreshold
}

// Evaluate returns the static evaluation of pos from the side to move's
// perspective, in centipawns. It does not use a pawn hash cache; callers
// that evaluate many related positions in a search tree should use
// EvaluateCached instead.
func Evaluate(pos *board.Position) int {
	return evaluate(pos, nil)
}

// EvaluateCached is Evaluate with pawn structure scoring routed through
// pawnTable, so repeated evaluations of positions sharing a pawn skeleton
// (common across a search tree, since most moves don't touch pawns) skip
// evaluatePawnStructure's per-pawn file-mask scan entirely.
func EvaluateCached(pos *board.Position, pawnTable *PawnTable) int {
	return evaluate(pos, pawnTable)
}

func evaluate(pos *board.Position, pawnTable *PawnTable) int {
	score := EvaluateMaterial(pos)

	endgame := IsEndgame(pos)
	for c := board.White; c <= board.Black; c++ {
		sign := 1
		if c == board.Black {
			sign = -1
		}

		kingSq := pos.KingSquare[c]
		pstSq := kingSq
		if c == board.White {
			pstSq = kingSq.Mirror()
		}
		if endgame {
			score += sign * kingEndgamePST[pstSq]
		} else {
			score += sign * kingMidgamePST[pstSq]
		}

		for pt := board.Pawn; pt <= board.Queen; pt++ {
			bb := pos.Pieces[c][pt]
			for bb != 0 {
				sq := bb.PopLSB()
				pstSq := sq
				if c == board.White {
					pstSq = sq.Mirror()
				}
				score += sign * psts[pt][pstSq]
			}
		}
	}

	var psMg, psEg int
	if pawnTable != nil {
		if mg, eg, found := pawnTable.Probe(pos.PawnKey); found {
			psMg, psEg = mg, eg
		} else {
			psMg, psEg = evaluatePawnStructure(pos)
			pawnTable.Store(pos.PawnKey, psMg, psEg)
		}
	} else {
		psMg, psEg = evaluatePawnStructure(pos)
	}
	if endgame {
		score += psEg
	} else {
		score += psMg
	}

	score += evaluateRooksOnFiles(pos)

	if pos.SideToMove == board.Black {
		return -score
	}
	return score
}

// EvaluateMaterial returns only the material balance, from White's
// perspective, using the same piece values Evaluate uses.
func EvaluateMaterial(pos *board.Position) int {
	score := 0
	for pt := board.Pawn; pt <= board.Queen; pt++ {
		score += pos.Pieces[board.White][pt].PopCount() * pieceValues[pt]
		score -= pos.Pieces[board.Black][pt].PopCount() * pieceValues[pt]
	}
	return score
}

// isPassedPawn reports whether the pawn on sq has no enemy pawn able to
// block or capture it on its way to promotion.
func isPassedPawn(pos *board.Position, sq board.Square, color board.Color) bool {
	return pos.Pieces[color.Other()][board.Pawn]&frontSpanMask[color][sq] == 0
}

// evaluatePawnStructure scores doubled/tripled, isolated and passed pawns.
// Returns separate middlegame and endgame contributions, since passed pawns
// are worth much more as pieces come off the board.
func evaluatePawnStructure(pos *board.Position) (mg, eg int) {
	for c := board.White; c <= board.Black; c++ {
		sign := 1
		if c == board.Black {
			sign = -1
		}
		pawns := pos.Pieces[c][board.Pawn]

		for file := 0; file < 8; file++ {
			onFile := pawns & board.FileMask[file]
			n := onFile.PopCount()
			if n >= 2 {
				mg += sign * doubledPawnPenalty
				eg += sign * doubledPawnPenalty
			}
			if n >= 3 {
				mg += sign * tripledPawnPenalty * (n - 2)
				eg += sign * tripledPawnPenalty * (n - 2)
			}
			if n == 0 {
				continue
			}
			adjacent := pawns & adjFileMask[file]
			if adjacent == 0 {
				mg += sign * isolatedPawnPenalty * n
				eg += sign * isolatedPawnPenalty * n
			} else if (adjacent&board.FileMask[maxFile(file-1, 0)] == 0) ||
				(adjacent&board.FileMask[minFile(file+1, 7)] == 0) {
				mg += sign * halfIsolatedPawnPenalty * n
				eg += sign * halfIsolatedPawnPenalty * n
			}
		}

		for bb := pawns; bb != 0; {
			sq := bb.PopLSB()
			if !isPassedPawn(pos, sq, c) {
				continue
			}
			rank := sq.RelativeRank(c)
			mg += sign * passedPawnBonus[rank]
			eg += sign * passedPawnBonus[rank] * 3 / 2
		}
	}
	return mg, eg
}

func maxFile(f, floor int) int {
	if f < floor {
		return floor
	}
	return f
}

func minFile(f, ceil int) int {
	if f > ceil {
		return ceil
	}
	return f
}

// evaluateRooksOnFiles rewards rooks on files with no friendly pawn (open
// if the enemy also has none there, semi-open otherwise).
func evaluateRooksOnFiles(pos *board.Position) int {
	score := 0
	for c := board.White; c <= board.Black; c++ {
		sign := 1
		if c == board.Black {
			sign = -1
		}
		for bb := pos.Pieces[c][board.Rook]; bb != 0; {
			sq := bb.PopLSB()
			file := board.FileMask[sq.File()]
			if pos.Pieces[c][board.Pawn]&file != 0 {
				continue
			}
			if pos.Pieces[c.Other()][board.Pawn]&file == 0 {
				score += sign * rookOpenFileBonus
			} else {
				score += sign * rookSemiOpenFileBonus
			}
		}
	}
	return score
}

// SEE returns the static exchange evaluation of capture move m: the
// material gain for the moving side once every profitable recapture on
// the target square has been played out.
func SEE(pos *board.Position, m board.Move) int {
	from := m.From()
	to := m.To()

	attacker := pos.PieceAt(from)
	if attacker == board.NoPiece {
		return 0
	}

	var capturedValue int
	if m.IsEnPassant() {
		capturedValue = PawnValue
	} else {
		victim := pos.PieceAt(to)
		if victim == board.NoPiece {
			return 0
		}
		capturedValue = pieceValues[victim.Type()]
	}

	if m.IsPromotion() {
		capturedValue += pieceValues[m.Promotion()] - PawnValue
	}

	return seeSwap(pos, to, from, attacker, capturedValue)
}

// seeSwap runs the classic swap-list algorithm: simulate captures
// alternating sides on target until one side stops recapturing, then
// negamax the gain list back to the root.
func seeSwap(pos *board.Position, target, excludeFrom board.Square, firstAttacker board.Piece, initialGain int) int {
	var gain [32]int
	d := 0
	gain[d] = initialGain

	occupied := pos.AllOccupied &^ board.SquareBB(excludeFrom)

	attackerValue := pieceValues[firstAttacker.Type()]
	side := firstAttacker.Color().Other()

	for {
		d++
		gain[d] = attackerValue - gain[d-1]
		if max(-gain[d-1], gain[d]) < 0 {
			break
		}

		attackerSq, attackerPiece := getLeastValuableAttacker(pos, target, side, occupied)
		if attackerSq == board.NoSquare {
			break
		}

		occupied &^= board.SquareBB(attackerSq)
		attackerValue = pieceValues[attackerPiece.Type()]
		side = side.Other()
	}

	for d--; d > 0; d-- {
		gain[d-1] = -max(-gain[d-1], gain[d])
	}

	return gain[0]
}

// getLeastValuableAttacker finds the cheapest piece of side attacking
// target, respecting occupied (so attackers already swapped off are
// ignored and any attacker they were shielding is revealed).
func getLeastValuableAttacker(pos *board.Position, target board.Square, side board.Color, occupied board.Bitboard) (board.Square, board.Piece) {
	pawns := pos.Pieces[side][board.Pawn]
	pawnAttacks := board.PawnAttacks(target, side.Other())
	if attackers := pawns & pawnAttacks & occupied; attackers != 0 {
		return attackers.LSB(), board.NewPiece(board.Pawn, side)
	}

	knights := pos.Pieces[side][board.Knight]
	knightAttacks := board.KnightAttacks(target)
	if attackers := knights & knightAttacks & occupied; attackers != 0 {
		return attackers.LSB(), board.NewPiece(board.Knight, side)
	}

	bishops := pos.Pieces[side][board.Bishop]
	bishopAttacks := board.BishopAttacks(target, occupied)
	if attackers := bishops & bishopAttacks & occupied; attackers != 0 {
		return attackers.LSB(), board.NewPiece(board.Bishop, side)
	}

	rooks := pos.Pieces[side][board.Rook]
	rookAttacks := board.RookAttacks(target, occupied)
	if attackers := rooks & rookAttacks & occupied; attackers != 0 {
		return attackers.LSB(), board.NewPiece(board.Rook, side)
	}

	queens := pos.Pieces[side][board.Queen]
	if attackers := queens & (bishopAttacks | rookAttacks) & occupied; attackers != 0 {
		return attackers.LSB(), board.NewPiece(board.Queen, side)
	}

	kingBB := pos.Pieces[side][board.King]
	kingAttacks := board.KingAttacks(target)
	if attackers := kingBB & kingAttacks & occupied; attackers != 0 {
		return attackers.LSB(), board.NewPiece(board.King, side)
	}

	return board.NoSquare, board.NoPiece
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
