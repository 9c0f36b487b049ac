package board

// GenerateLegalMoves generates all legal moves for the position in a
// single pass: checkers, pins and the capture/push target mask are
// computed once up front, and every piece's pseudo-legal destinations are
// intersected against that mask as they are generated. No move is ever
// tried with make/unmake to verify legality.
func (p *Position) GenerateLegalMoves() *MoveList {
	ml := NewMoveList()
	p.generateMoves(ml, false)
	return ml
}

// GeneratePseudoLegalMoves is kept for callers (perft divide, debug
// tooling) that want the unfiltered set; it is still pin/check aware, the
// name only reflects that it does not additionally verify via make/unmake
// (nothing in this generator does).
func (p *Position) GeneratePseudoLegalMoves() *MoveList {
	return p.GenerateLegalMoves()
}

// GenerateCaptures generates capturing moves only (including capture-
// promotions and en passant), for quiescence search. Promotions that do not
// capture are not generated.
func (p *Position) GenerateCaptures() *MoveList {
	ml := NewMoveList()
	p.generateMoves(ml, true)
	return ml
}

// pinRestrictions returns, for every square, the set of squares a piece
// standing there is still allowed to move to: Universe if it is not
// pinned, or the full line through the king and the pinning slider if it
// is. A pinned piece's own attacks intersected with this line collapses
// to "stay on the line", which for a knight is always empty.
func (p *Position) pinRestrictions() [64]Bitboard {
	var restrict [64]Bitboard
	for i := range restrict {
		restrict[i] = Universe
	}

	us := p.SideToMove
	them := us.Other()
	ksq := p.KingSquare[us]

	orthoSnipers := RookAttacks(ksq, 0) & (p.Pieces[them][Rook] | p.Pieces[them][Queen])
	for orthoSnipers != 0 {
		sq := orthoSnipers.PopLSB()
		between := Between(sq, ksq) & p.AllOccupied
		if between.PopCount() == 1 && between&p.Occupied[us] != 0 {
			restrict[between.LSB()] = Line(ksq, sq)
		}
	}

	diagSnipers := BishopAttacks(ksq, 0) & (p.Pieces[them][Bishop] | p.Pieces[them][Queen])
	for diagSnipers != 0 {
		sq := diagSnipers.PopLSB()
		between := Between(sq, ksq) & p.AllOccupied
		if between.PopCount() == 1 && between&p.Occupied[us] != 0 {
			restrict[between.LSB()] = Line(ksq, sq)
		}
	}

	return restrict
}

// epRevealsCheck reports whether capturing en passant from `from`,
// removing the pawn on `capturedSq`, would expose the king to a rook or
// queen along the shared rank - the one pin en passant allows that a
// normal diagonal-pin check does not catch, since both the capturing and
// the captured pawn leave the rank in the same move.
func (p *Position) epRevealsCheck(from, capturedSq Square) bool {
	us := p.SideToMove
	them := us.Other()
	ksq := p.KingSquare[us]
	if ksq.Rank() != from.Rank() {
		return false
	}
	occ := p.AllOccupied &^ SquareBB(from) &^ SquareBB(capturedSq)
	return RookAttacks(ksq, occ)&(p.Pieces[them][Rook]|p.Pieces[them][Queen]) != 0
}

func (p *Position) generateMoves(ml *MoveList, capturesOnly bool) {
	us := p.SideToMove
	them := us.Other()
	ksq := p.KingSquare[us]
	checkers := p.Checkers
	numCheckers := checkers.PopCount()

	occExKing := p.AllOccupied &^ SquareBB(ksq)

	// King moves first: a king may never step onto a square the enemy
	// attacks, computed with the king itself removed from occupancy so a
	// slider "sees through" the square the king is vacating.
	kingTargets := KingAttacks(ksq) &^ p.Occupied[us]
	if capturesOnly {
		kingTargets &= p.Occupied[them]
	}
	for kingTargets != 0 {
		to := kingTargets.PopLSB()
		if p.AttackersByColor(to, them, occExKing) != 0 {
			continue
		}
		if !p.IsEmpty(to) {
			ml.Add(NewCapture(ksq, to))
		} else {
			ml.Add(NewMove(ksq, to))
		}
	}

	if numCheckers >= 2 {
		// Double check: only the king can move.
		return
	}

	if numCheckers == 0 && !capturesOnly {
		p.generateCastlingMoves(ml, us)
	}

	var captureMask, pushMask Bitboard
	if numCheckers == 0 {
		captureMask = p.Occupied[them]
		pushMask = ^p.AllOccupied
	} else {
		checkerSq := checkers.LSB()
		captureMask = checkers
		checkerPt := p.PieceAt(checkerSq).Type()
		if checkerPt == Bishop || checkerPt == Rook || checkerPt == Queen {
			pushMask = Between(ksq, checkerSq)
		} else {
			pushMask = Empty
		}
	}
	if capturesOnly {
		pushMask = Empty
	}
	targetMask := captureMask | pushMask

	restrict := p.pinRestrictions()

	occupied := p.AllOccupied

	knights := p.Pieces[us][Knight]
	for knights != 0 {
		from := knights.PopLSB()
		attacks := KnightAttacks(from) & targetMask & restrict[from]
		addPieceMoves(ml, p, from, attacks)
	}

	bishops := p.Pieces[us][Bishop]
	for bishops != 0 {
		from := bishops.PopLSB()
		attacks := BishopAttacks(from, occupied) & targetMask & restrict[from]
		addPieceMoves(ml, p, from, attacks)
	}

	rooks := p.Pieces[us][Rook]
	for rooks != 0 {
		from := rooks.PopLSB()
		attacks := RookAttacks(from, occupied) & targetMask & restrict[from]
		addPieceMoves(ml, p, from, attacks)
	}

	queens := p.Pieces[us][Queen]
	for queens != 0 {
		from := queens.PopLSB()
		attacks := QueenAttacks(from, occupied) & targetMask & restrict[from]
		addPieceMoves(ml, p, from, attacks)
	}

	p.generatePawnMoves(ml, us, pushMask, captureMask, restrict, capturesOnly)
}

func addPieceMoves(ml *MoveList, p *Position, from Square, targets Bitboard) {
	for targets != 0 {
		to := targets.PopLSB()
		if p.IsEmpty(to) {
			ml.Add(NewMove(from, to))
		} else {
			ml.Add(NewCapture(from, to))
		}
	}
}

func (p *Position) generatePawnMoves(ml *MoveList, us Color, pushMask, captureMask Bitboard, restrict [64]Bitboard, capturesOnly bool) {
	them := us.Other()
	pawns := p.Pieces[us][Pawn]
	empty := ^p.AllOccupied
	enemies := p.Occupied[them]

	var push1, push2, attackL, attackR Bitboard
	var promotionRank Bitboard
	var pushDir int

	if us == White {
		push1 = pawns.North() & empty
		push2 = (push1 & Rank3).North() & empty
		attackL = pawns.NorthWest() & enemies
		attackR = pawns.NorthEast() & enemies
		promotionRank = Rank8
		pushDir = 8
	} else {
		push1 = pawns.South() & empty
		push2 = (push1 & Rank6).South() & empty
		attackL = pawns.SouthWest() & enemies
		attackR = pawns.SouthEast() & enemies
		promotionRank = Rank1
		pushDir = -8
	}

	if !capturesOnly {
		nonPromo := push1 & ^promotionRank & pushMask
		for nonPromo != 0 {
			to := nonPromo.PopLSB()
			from := Square(int(to) - pushDir)
			if restrict[from] == Universe || restrict[from].IsSet(to) {
				ml.Add(NewMove(from, to))
			}
		}

		push2 &= pushMask
		for push2 != 0 {
			to := push2.PopLSB()
			from := Square(int(to) - 2*pushDir)
			if restrict[from] == Universe || restrict[from].IsSet(to) {
				ml.Add(NewDoublePawnPush(from, to))
			}
		}
	}

	promoPush := push1 & promotionRank & pushMask
	for promoPush != 0 {
		to := promoPush.PopLSB()
		from := Square(int(to) - pushDir)
		if restrict[from] == Universe || restrict[from].IsSet(to) {
			addPromotions(ml, from, to, false)
		}
	}

	nonPromoL := attackL & ^promotionRank & captureMask
	for nonPromoL != 0 {
		to := nonPromoL.PopLSB()
		from := Square(int(to) - pushDir + 1)
		if restrict[from] == Universe || restrict[from].IsSet(to) {
			ml.Add(NewCapture(from, to))
		}
	}

	nonPromoR := attackR & ^promotionRank & captureMask
	for nonPromoR != 0 {
		to := nonPromoR.PopLSB()
		from := Square(int(to) - pushDir - 1)
		if restrict[from] == Universe || restrict[from].IsSet(to) {
			ml.Add(NewCapture(from, to))
		}
	}

	promoL := attackL & promotionRank & captureMask
	for promoL != 0 {
		to := promoL.PopLSB()
		from := Square(int(to) - pushDir + 1)
		if restrict[from] == Universe || restrict[from].IsSet(to) {
			addPromotions(ml, from, to, true)
		}
	}

	promoR := attackR & promotionRank & captureMask
	for promoR != 0 {
		to := promoR.PopLSB()
		from := Square(int(to) - pushDir - 1)
		if restrict[from] == Universe || restrict[from].IsSet(to) {
			addPromotions(ml, from, to, true)
		}
	}

	if p.EnPassant != NoSquare {
		epBB := SquareBB(p.EnPassant)
		var epAttackers Bitboard
		var capturedSq Square
		if us == White {
			epAttackers = (epBB.SouthWest() | epBB.SouthEast()) & pawns
			capturedSq = p.EnPassant - 8
		} else {
			epAttackers = (epBB.NorthWest() | epBB.NorthEast()) & pawns
			capturedSq = p.EnPassant + 8
		}
		// En passant is legal if capturing resolves check (the captured
		// pawn's square or the destination square addresses the checker)
		// and does not itself expose a discovered rank check.
		epTargetOK := captureMask.IsSet(capturedSq) || pushMask.IsSet(p.EnPassant)
		for epAttackers != 0 {
			from := epAttackers.PopLSB()
			if restrict[from] != Universe && !restrict[from].IsSet(p.EnPassant) {
				continue
			}
			if !epTargetOK {
				continue
			}
			if p.epRevealsCheck(from, capturedSq) {
				continue
			}
			ml.Add(NewEnPassant(from, p.EnPassant))
		}
	}
}

// addPromotions adds all four promotion moves.
func addPromotions(ml *MoveList, from, to Square, capture bool) {
	ml.Add(NewPromotion(from, to, Queen, capture))
	ml.Add(NewPromotion(from, to, Rook, capture))
	ml.Add(NewPromotion(from, to, Bishop, capture))
	ml.Add(NewPromotion(from, to, Knight, capture))
}

// generateCastlingMoves generates castling moves (only called when the
// side to move is not in check).
func (p *Position) generateCastlingMoves(ml *MoveList, us Color) {
	them := us.Other()

	if us == White {
		if p.CastlingRights&WKingSide != 0 {
			if p.AllOccupied&((1<<F1)|(1<<G1)) == 0 {
				if !p.IsSquareAttacked(F1, them) && !p.IsSquareAttacked(G1, them) {
					ml.Add(NewKingCastle(E1, G1))
				}
			}
		}
		if p.CastlingRights&WQueenSide != 0 {
			if p.AllOccupied&((1<<B1)|(1<<C1)|(1<<D1)) == 0 {
				if !p.IsSquareAttacked(D1, them) && !p.IsSquareAttacked(C1, them) {
					ml.Add(NewQueenCastle(E1, C1))
				}
			}
		}
	} else {
		if p.CastlingRights&BKingSide != 0 {
			if p.AllOccupied&((1<<F8)|(1<<G8)) == 0 {
				if !p.IsSquareAttacked(F8, them) && !p.IsSquareAttacked(G8, them) {
					ml.Add(NewKingCastle(E8, G8))
				}
			}
		}
		if p.CastlingRights&BQueenSide != 0 {
			if p.AllOccupied&((1<<B8)|(1<<C8)|(1<<D8)) == 0 {
				if !p.IsSquareAttacked(D8, them) && !p.IsSquareAttacked(C8, them) {
					ml.Add(NewQueenCastle(E8, C8))
				}
			}
		}
	}
}

// attackedSquares returns every square attacked by the given color. Nothing
// in this package calls it; check detection and the castling-through-check
// test use the cheaper single-square AttackersByColor/IsSquareAttacked.
func (p *Position) attackedSquares(by Color) Bitboard {
	var attacks Bitboard
	occ := p.AllOccupied

	pawns := p.Pieces[by][Pawn]
	if by == White {
		attacks |= pawns.NorthWest() | pawns.NorthEast()
	} else {
		attacks |= pawns.SouthWest() | pawns.SouthEast()
	}

	knights := p.Pieces[by][Knight]
	for knights != 0 {
		attacks |= KnightAttacks(knights.PopLSB())
	}

	bishops := p.Pieces[by][Bishop] | p.Pieces[by][Queen]
	for bishops != 0 {
		attacks |= BishopAttacks(bishops.PopLSB(), occ)
	}

	rooks := p.Pieces[by][Rook] | p.Pieces[by][Queen]
	for rooks != 0 {
		attacks |= RookAttacks(rooks.PopLSB(), occ)
	}

	attacks |= KingAttacks(p.KingSquare[by])

	return attacks
}

// MakeMove applies a move to the position, pushing a snapshot of
// everything it mutates onto the state stack so UnmakeMove can restore it
// without recomputation.
func (p *Position) MakeMove(m Move) {
	us := p.SideToMove
	them := us.Other()
	from := m.From()
	to := m.To()
	piece := p.PieceAt(from)
	pt := piece.Type()

	snap := stateSnapshot{
		CastlingRights: p.CastlingRights,
		EnPassant:      p.EnPassant,
		HalfMoveClock:  p.HalfMoveClock,
		Hash:           p.Hash,
		PawnKey:        p.PawnKey,
		Checkers:       p.Checkers,
		Captured:       NoPiece,
		Move:           m,
	}

	p.Hash ^= zobristSideToMove
	p.Hash ^= ZobristCastling(p.CastlingRights)

	if epFileIsHashable(p, p.EnPassant) {
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
	}
	p.EnPassant = NoSquare

	if m.IsEnPassant() {
		var capturedSq Square
		if us == White {
			capturedSq = to - 8
		} else {
			capturedSq = to + 8
		}
		captured := p.removePiece(capturedSq)
		snap.Captured = captured
		p.Hash ^= ZobristPiece(captured, capturedSq)
		p.PawnKey ^= ZobristPiece(captured, capturedSq)
	} else if captured := p.PieceAt(to); captured != NoPiece {
		p.removePiece(to)
		snap.Captured = captured
		p.Hash ^= ZobristPiece(captured, to)
		if captured.Type() == Pawn {
			p.PawnKey ^= ZobristPiece(captured, to)
		}
	}

	p.movePiece(from, to)
	p.Hash ^= ZobristPiece(piece, from)
	p.Hash ^= ZobristPiece(piece, to)
	if pt == Pawn {
		p.PawnKey ^= ZobristPiece(piece, from)
		p.PawnKey ^= ZobristPiece(piece, to)
	}

	if m.IsPromotion() {
		promoPt := m.Promotion()
		promoPiece := NewPiece(promoPt, us)
		p.Pieces[us][Pawn] &^= SquareBB(to)
		p.Pieces[us][promoPt] |= SquareBB(to)
		p.Hash ^= ZobristPiece(piece, to)
		p.Hash ^= ZobristPiece(promoPiece, to)
		p.PawnKey ^= ZobristPiece(piece, to)
	}

	if m.IsCastling() {
		var rookFrom, rookTo Square
		if m.IsKingCastle() {
			rookFrom = NewSquare(7, from.Rank())
			rookTo = NewSquare(5, from.Rank())
		} else {
			rookFrom = NewSquare(0, from.Rank())
			rookTo = NewSquare(3, from.Rank())
		}
		rook := NewPiece(Rook, us)
		p.movePiece(rookFrom, rookTo)
		p.Hash ^= ZobristPiece(rook, rookFrom)
		p.Hash ^= ZobristPiece(rook, rookTo)
	}

	p.CastlingRights &= castlingRightsMask[from] & castlingRightsMask[to]
	p.Hash ^= ZobristCastling(p.CastlingRights)

	if pt == Pawn && abs(int(to)-int(from)) == 16 {
		epSquare := Square((int(from) + int(to)) / 2)
		p.EnPassant = epSquare
	}

	if pt == Pawn || snap.Captured != NoPiece {
		p.HalfMoveClock = 0
	} else {
		p.HalfMoveClock++
	}

	if us == Black {
		p.FullMoveNumber++
	}

	p.SideToMove = them

	if epFileIsHashable(p, p.EnPassant) {
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
	}

	p.UpdateCheckers()

	p.stack[p.stackLen] = snap
	p.stackLen++
}

// UnmakeMove undoes the most recent MakeMove. Callers must pass the same
// move they made; it is only used to locate the moved piece.
func (p *Position) UnmakeMove(m Move) {
	p.stackLen--
	snap := p.stack[p.stackLen]

	them := p.SideToMove
	us := them.Other()
	from := m.From()
	to := m.To()

	p.CastlingRights = snap.CastlingRights
	p.EnPassant = snap.EnPassant
	p.HalfMoveClock = snap.HalfMoveClock
	p.Hash = snap.Hash
	p.PawnKey = snap.PawnKey
	p.Checkers = snap.Checkers
	p.SideToMove = us

	if us == Black {
		p.FullMoveNumber--
	}

	if m.IsPromotion() {
		promoPt := m.Promotion()
		p.Pieces[us][promoPt] &^= SquareBB(to)
		p.Pieces[us][Pawn] |= SquareBB(to)
	}

	p.movePiece(to, from)

	if m.IsCastling() {
		var rookFrom, rookTo Square
		if m.IsKingCastle() {
			rookFrom = NewSquare(7, from.Rank())
			rookTo = NewSquare(5, from.Rank())
		} else {
			rookFrom = NewSquare(0, from.Rank())
			rookTo = NewSquare(3, from.Rank())
		}
		p.movePiece(rookTo, rookFrom)
	}

	if snap.Captured != NoPiece {
		if m.IsEnPassant() {
			var capturedSq Square
			if us == White {
				capturedSq = to - 8
			} else {
				capturedSq = to + 8
			}
			p.setPiece(snap.Captured, capturedSq)
		} else {
			p.setPiece(snap.Captured, to)
		}
	}
}

// HasLegalMoves returns true if the side to move has any legal moves.
func (p *Position) HasLegalMoves() bool {
	return p.GenerateLegalMoves().Len() > 0
}

// IsCheckmate returns true if the position is checkmate.
func (p *Position) IsCheckmate() bool {
	return p.InCheck() && !p.HasLegalMoves()
}

// IsStalemate returns true if the position is stalemate.
func (p *Position) IsStalemate() bool {
	return !p.InCheck() && !p.HasLegalMoves()
}

// IsDraw returns true if the position is a draw by the fifty-move rule,
// stalemate, or insufficient material. Repetition is tracked by the
// search, which keeps the game history this position does not.
func (p *Position) IsDraw() bool {
	if p.IsStalemate() {
		return true
	}
	if p.HalfMoveClock >= 100 {
		return true
	}
	return p.IsInsufficientMaterial()
}

// IsInsufficientMaterial returns true if neither side can checkmate.
func (p *Position) IsInsufficientMaterial() bool {
	if p.Pieces[White][Pawn]|p.Pieces[Black][Pawn] != 0 ||
		p.Pieces[White][Rook]|p.Pieces[Black][Rook] != 0 ||
		p.Pieces[White][Queen]|p.Pieces[Black][Queen] != 0 {
		return false
	}

	wKnights := p.Pieces[White][Knight].PopCount()
	wBishops := p.Pieces[White][Bishop].PopCount()
	bKnights := p.Pieces[Black][Knight].PopCount()
	bBishops := p.Pieces[Black][Bishop].PopCount()

	if wKnights+wBishops+bKnights+bBishops == 0 {
		return true
	}
	if wKnights+wBishops <= 1 && bKnights+bBishops == 0 {
		return true
	}
	if bKnights+bBishops <= 1 && wKnights+wBishops == 0 {
		return true
	}

	return false
}
