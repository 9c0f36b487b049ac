package board

// Color represents the side to move or the owner of a piece.
// black=0, white=1, no_colour=2 so that the xor-1 trick flips sides and a
// bitmask -(side==White) selects white vs black occupancy branchlessly.
type Color uint8

const (
	Black Color = iota
	White
	NoColor Color = 2
)

// Other returns the opposite color.
func (c Color) Other() Color {
	return c ^ 1
}

// String returns the color name.
func (c Color) String() string {
	switch c {
	case White:
		return "White"
	case Black:
		return "Black"
	default:
		return "NoColor"
	}
}

// PieceType represents the type of a chess piece.
type PieceType uint8

const (
	Pawn PieceType = iota
	Knight
	Bishop
	Rook
	Queen
	King
	NoPieceType PieceType = 6
)

// String returns the piece type name.
func (pt PieceType) String() string {
	switch pt {
	case Pawn:
		return "Pawn"
	case Knight:
		return "Knight"
	case Bishop:
		return "Bishop"
	case Rook:
		return "Rook"
	case Queen:
		return "Queen"
	case King:
		return "King"
	default:
		return "None"
	}
}

// Char returns the FEN character for the piece type (lowercase).
func (pt PieceType) Char() byte {
	chars := []byte{'p', 'n', 'b', 'r', 'q', 'k', ' '}
	if pt > NoPieceType {
		return ' '
	}
	return chars[pt]
}

// PieceValue returns the material value of the piece type in centipawns.
var PieceValue = [7]int{100, 320, 330, 500, 900, 20000, 0}

// Piece is ordered so colour is a single range test: 0-5 are the black
// pieces {p,n,b,r,q,k}, 6-11 the white pieces {P,N,B,R,Q,K}. The sentinels
// bpieces/wpieces/allpieces/no_piece let a Piece value double as an index
// into the Position's 15-entry bitboard array for the colour unions.
type Piece uint8

const (
	BlackPawn   Piece = iota // 0
	BlackKnight              // 1
	BlackBishop              // 2
	BlackRook                // 3
	BlackQueen               // 4
	BlackKing                // 5
	WhitePawn                // 6
	WhiteKnight              // 7
	WhiteBishop              // 8
	WhiteRook                // 9
	WhiteQueen               // 10
	WhiteKing                // 11

	BPieces   Piece = 12
	WPieces   Piece = 13
	AllPieces Piece = 14
	NoPiece   Piece = 15
)

// NewPiece creates a Piece from PieceType and Color.
func NewPiece(pt PieceType, c Color) Piece {
	if pt >= NoPieceType || c >= NoColor {
		return NoPiece
	}
	return Piece(pt) + Piece(c)*6
}

// Type returns the PieceType of the piece.
func (p Piece) Type() PieceType {
	if p >= BPieces {
		return NoPieceType
	}
	return PieceType(p % 6)
}

// Color returns the Color of the piece.
func (p Piece) Color() Color {
	if p >= BPieces {
		return NoColor
	}
	if p >= WhitePawn {
		return White
	}
	return Black
}

// String returns the FEN character for the piece.
// Uppercase for white, lowercase for black.
func (p Piece) String() string {
	if p >= BPieces {
		return " "
	}
	chars := "pnbrqkPNBRQK"
	return string(chars[p])
}

// PieceFromChar converts a FEN character to a Piece.
func PieceFromChar(c byte) Piece {
	switch c {
	case 'p':
		return BlackPawn
	case 'n':
		return BlackKnight
	case 'b':
		return BlackBishop
	case 'r':
		return BlackRook
	case 'q':
		return BlackQueen
	case 'k':
		return BlackKing
	case 'P':
		return WhitePawn
	case 'N':
		return WhiteKnight
	case 'B':
		return WhiteBishop
	case 'R':
		return WhiteRook
	case 'Q':
		return WhiteQueen
	case 'K':
		return WhiteKing
	default:
		return NoPiece
	}
}

// Value returns the material value of the piece in centipawns.
func (p Piece) Value() int {
	return PieceValue[p.Type()]
}
