package board

import "fmt"

// Move encodes a chess move in 16 bits:
// bits 0-5:   from square (0-63)
// bits 6-11:  to square (0-63)
// bits 12-15: move code
//
// Move code values. Bit 15 of the code (0x8) marks a promotion, bit 14
// (0x4) marks a capture, so IsPromotion/IsCapture are single mask tests
// instead of a code-by-code switch.
type Move uint16

const (
	CodeQuiet    uint16 = 0
	CodeDbPush   uint16 = 1
	CodeKCastle  uint16 = 2
	CodeQCastle  uint16 = 3
	CodeCapture  uint16 = 4
	CodeEPCapture uint16 = 5

	CodeNPromo  uint16 = 8
	CodeBPromo  uint16 = 9
	CodeRPromo  uint16 = 10
	CodeQPromo  uint16 = 11
	CodeCNPromo uint16 = 12
	CodeCBPromo uint16 = 13
	CodeCRPromo uint16 = 14
	CodeCQPromo uint16 = 15

	promoFlagBit   uint16 = 8
	captureFlagBit uint16 = 4
)

// NoMove represents an invalid or null move.
const NoMove Move = 0

func encode(from, to Square, code uint16) Move {
	return Move(from) | Move(to)<<6 | Move(code)<<12
}

// NewMove creates a quiet move.
func NewMove(from, to Square) Move {
	return encode(from, to, CodeQuiet)
}

// NewDoublePawnPush creates a double pawn push move.
func NewDoublePawnPush(from, to Square) Move {
	return encode(from, to, CodeDbPush)
}

// NewCapture creates a normal capture move.
func NewCapture(from, to Square) Move {
	return encode(from, to, CodeCapture)
}

// NewEnPassant creates an en passant capture move.
func NewEnPassant(from, to Square) Move {
	return encode(from, to, CodeEPCapture)
}

// NewKingCastle creates a kingside castling move.
func NewKingCastle(from, to Square) Move {
	return encode(from, to, CodeKCastle)
}

// NewQueenCastle creates a queenside castling move.
func NewQueenCastle(from, to Square) Move {
	return encode(from, to, CodeQCastle)
}

var promoCodeByType = map[PieceType]uint16{
	Knight: CodeNPromo,
	Bishop: CodeBPromo,
	Rook:   CodeRPromo,
	Queen:  CodeQPromo,
}

var capturePromoCodeByType = map[PieceType]uint16{
	Knight: CodeCNPromo,
	Bishop: CodeCBPromo,
	Rook:   CodeCRPromo,
	Queen:  CodeCQPromo,
}

var promoTypeByCode = map[uint16]PieceType{
	CodeNPromo:  Knight,
	CodeBPromo:  Bishop,
	CodeRPromo:  Rook,
	CodeQPromo:  Queen,
	CodeCNPromo: Knight,
	CodeCBPromo: Bishop,
	CodeCRPromo: Rook,
	CodeCQPromo: Queen,
}

// NewPromotion creates a promotion move, capturing or not.
func NewPromotion(from, to Square, promo PieceType, capture bool) Move {
	if capture {
		return encode(from, to, capturePromoCodeByType[promo])
	}
	return encode(from, to, promoCodeByType[promo])
}

// From returns the origin square.
func (m Move) From() Square {
	return Square(m & 0x3F)
}

// To returns the destination square.
func (m Move) To() Square {
	return Square((m >> 6) & 0x3F)
}

// Code returns the 4-bit move code.
func (m Move) Code() uint16 {
	return uint16(m>>12) & 0xF
}

// Promotion returns the promotion piece type (only valid if IsPromotion()).
func (m Move) Promotion() PieceType {
	return promoTypeByCode[m.Code()]
}

// IsPromotion returns true if this move promotes a pawn.
func (m Move) IsPromotion() bool {
	return m.Code()&promoFlagBit != 0
}

// IsCapture returns true if the move code marks a capture (including e.p.).
// This reflects the move's own encoding, not board state.
func (m Move) IsCapture() bool {
	return m.Code()&captureFlagBit != 0
}

// IsEnPassant returns true if this is an en passant capture.
func (m Move) IsEnPassant() bool {
	return m.Code() == CodeEPCapture
}

// IsCastling returns true if this is a castling move.
func (m Move) IsCastling() bool {
	c := m.Code()
	return c == CodeKCastle || c == CodeQCastle
}

// IsKingCastle returns true if this is a kingside castling move.
func (m Move) IsKingCastle() bool {
	return m.Code() == CodeKCastle
}

// IsQueenCastle returns true if this is a queenside castling move.
func (m Move) IsQueenCastle() bool {
	return m.Code() == CodeQCastle
}

// IsDoublePawnPush returns true if this is a double pawn push.
func (m Move) IsDoublePawnPush() bool {
	return m.Code() == CodeDbPush
}

// IsQuiet returns true if this move is neither a capture nor a promotion.
func (m Move) IsQuiet() bool {
	return m.Code()&(promoFlagBit|captureFlagBit) == 0
}

// String returns the UCI format of the move (e.g., "e2e4", "e7e8q").
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}

	s := m.From().String() + m.To().String()

	if m.IsPromotion() {
		promoChars := map[PieceType]byte{Knight: 'n', Bishop: 'b', Rook: 'r', Queen: 'q'}
		s += string(promoChars[m.Promotion()])
	}

	return s
}

// ParseMove parses a UCI format move string against a position, recovering
// the move code (capture/e.p./castling/double-push) from board state since
// the wire format only carries from/to/promotion.
func ParseMove(s string, pos *Position) (Move, error) {
	if len(s) < 4 {
		return NoMove, fmt.Errorf("invalid move string: %s", s)
	}

	from, err := ParseSquare(s[0:2])
	if err != nil {
		return NoMove, err
	}

	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NoMove, err
	}

	piece := pos.PieceAt(from)
	if piece == NoPiece {
		return NoMove, fmt.Errorf("no piece at %s", from)
	}

	pt := piece.Type()
	isCapture := !pos.IsEmpty(to)

	if len(s) == 5 {
		var promo PieceType
		switch s[4] {
		case 'n':
			promo = Knight
		case 'b':
			promo = Bishop
		case 'r':
			promo = Rook
		case 'q':
			promo = Queen
		default:
			return NoMove, fmt.Errorf("invalid promotion piece: %c", s[4])
		}
		return NewPromotion(from, to, promo, isCapture), nil
	}

	if pt == King {
		diff := int(to) - int(from)
		if diff == 2 {
			return NewKingCastle(from, to), nil
		}
		if diff == -2 {
			return NewQueenCastle(from, to), nil
		}
	}

	if pt == Pawn && to == pos.EnPassant && pos.EnPassant != NoSquare {
		return NewEnPassant(from, to), nil
	}

	if pt == Pawn && abs(int(to)-int(from)) == 16 {
		return NewDoublePawnPush(from, to), nil
	}

	if isCapture {
		return NewCapture(from, to), nil
	}

	return NewMove(from, to), nil
}

// MoveList is a fixed-size list of moves to avoid allocations.
type MoveList struct {
	moves [256]Move
	count int
}

// NewMoveList creates an empty move list.
func NewMoveList() *MoveList {
	return &MoveList{}
}

// Add adds a move to the list.
func (ml *MoveList) Add(m Move) {
	ml.moves[ml.count] = m
	ml.count++
}

// Len returns the number of moves in the list.
func (ml *MoveList) Len() int {
	return ml.count
}

// Get returns the move at index i.
func (ml *MoveList) Get(i int) Move {
	return ml.moves[i]
}

// Set sets the move at index i.
func (ml *MoveList) Set(i int, m Move) {
	ml.moves[i] = m
}

// Swap swaps two moves in the list.
func (ml *MoveList) Swap(i, j int) {
	ml.moves[i], ml.moves[j] = ml.moves[j], ml.moves[i]
}

// Clear clears the list.
func (ml *MoveList) Clear() {
	ml.count = 0
}

// Contains returns true if the list contains the move.
func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i] == m {
			return true
		}
	}
	return false
}

// Slice returns the moves as a slice.
func (ml *MoveList) Slice() []Move {
	return ml.moves[:ml.count]
}
