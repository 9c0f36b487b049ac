package engine

import (
	"testing"
	"time"

	"github.com/x4A81/chesscore/internal/board"
)

func TestSearchBasic(t *testing.T) {
	pos := board.NewPosition()
	eng := NewEngine(16)
	eng.SetDifficulty(Easy)

	move := eng.Search(pos)
	if move == board.NoMove {
		t.Error("Search returned NoMove for starting position")
	}
	t.Logf("Best move: %s", move.String())
}

func TestSearchFindsMateInOne(t *testing.T) {
	// Back-rank mate: Ra8# is forced.
	pos, err := board.ParseFEN("6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1")
	if err != nil {
		t.Fatalf("failed to parse FEN: %v", err)
	}

	eng := NewEngine(16)
	move := eng.SearchWithLimits(pos, SearchLimits{Depth: 4, MoveTime: 2 * time.Second})

	if move.From() != board.A1 || move.To() != board.A8 {
		t.Errorf("expected Ra1-a8, got %s", move.String())
	}
}

func TestSearchMultiplePositions(t *testing.T) {
	positions := []string{
		board.StartFEN,
		"r1bqkbnr/pppp1ppp/2n5/4p3/2B1P3/5N2/PPPP1PPP/RNBQK2R b KQkq - 3 3", // Italian Game
		"8/8/8/4k3/8/4K3/4P3/8 w - - 0 1",                                  // KP endgame
	}

	eng := NewEngine(16)
	for i, fen := range positions {
		pos, err := board.ParseFEN(fen)
		if err != nil {
			t.Fatalf("Failed to parse position %d: %v", i, err)
		}

		limits := SearchLimits{Depth: 5, MoveTime: 300 * time.Millisecond}
		move := eng.SearchWithLimits(pos, limits)
		if move == board.NoMove {
			if !pos.InCheck() || pos.GenerateLegalMoves().Len() > 0 {
				t.Errorf("Position %d: Search returned NoMove", i)
			}
		} else {
			t.Logf("Position %d: best move = %s", i, move.String())
		}
	}
}

func TestSearchRepeatedCalls(t *testing.T) {
	eng := NewEngine(16)

	fens := []string{
		board.StartFEN,
		"rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq e6 0 2",
		"rnbqkbnr/ppp1pppp/8/3p4/3P4/8/PPP1PPPP/RNBQKBNR w KQkq d6 0 2",
	}

	for i, fen := range fens {
		pos, err := board.ParseFEN(fen)
		if err != nil {
			t.Fatalf("fen %d: %v", i, err)
		}
		move := eng.SearchWithLimits(pos, SearchLimits{Depth: 6, MoveTime: 500 * time.Millisecond})
		if move == board.NoMove {
			t.Errorf("iteration %d: search returned NoMove for a position with legal moves", i)
		}
	}
}

func TestSearchRespectsRepetitionHistory(t *testing.T) {
	pos := board.NewPosition()
	eng := NewEngine(16)

	// Shuffle knights back and forth until the position has repeated
	// once already; the history lets the search recognize the second
	// repetition as a draw instead of needing to rediscover it.
	shuffle := []board.Move{
		board.NewMove(board.G1, board.F3),
		board.NewMove(board.G8, board.F6),
		board.NewMove(board.F3, board.G1),
		board.NewMove(board.F6, board.G8),
	}

	var history []uint64
	history = append(history, pos.Hash)
	for _, m := range shuffle {
		pos.MakeMove(m)
		history = append(history, pos.Hash)
	}

	eng.SetPositionHistory(history)
	move := eng.SearchWithLimits(pos, SearchLimits{Depth: 4, MoveTime: 500 * time.Millisecond})
	if move == board.NoMove {
		t.Error("search returned NoMove from the starting position reached by repetition")
	}
}

func TestEvaluateMaterialAdvantage(t *testing.T) {
	pos, err := board.ParseFEN("4k3/8/8/8/8/8/8/4KQ2 w - - 0 1")
	if err != nil {
		t.Fatalf("failed to parse FEN: %v", err)
	}
	if score := Evaluate(pos); score <= 0 {
		t.Errorf("expected a material-up position to score positive, got %d", score)
	}
}

func TestEvaluateCachedMatchesEvaluate(t *testing.T) {
	positions := []string{
		board.StartFEN,
		"r1bqkbnr/pppp1ppp/2n5/4p3/2B1P3/5N2/PPPP1PPP/RNBQK2R b KQkq - 3 3",
		"8/8/8/4k3/8/4K3/4P3/8 w - - 0 1",
	}

	pt := NewPawnTable(1)
	for i, fen := range positions {
		pos, err := board.ParseFEN(fen)
		if err != nil {
			t.Fatalf("position %d: %v", i, err)
		}
		want := Evaluate(pos)
		// Run twice so the second call exercises the cache hit path.
		for j := 0; j < 2; j++ {
			if got := EvaluateCached(pos, pt); got != want {
				t.Errorf("position %d (pass %d): EvaluateCached = %d, want %d", i, j, got, want)
			}
		}
	}
}

func TestPawnTableProbeStore(t *testing.T) {
	pt := NewPawnTable(1)

	if _, _, found := pt.Probe(0x1234); found {
		t.Error("expected miss on empty table")
	}

	pt.Store(0x1234, 15, -20)
	mg, eg, found := pt.Probe(0x1234)
	if !found || mg != 15 || eg != -20 {
		t.Errorf("Probe after Store = (%d, %d, %v), want (15, -20, true)", mg, eg, found)
	}

	pt.Clear()
	if _, _, found := pt.Probe(0x1234); found {
		t.Error("expected miss after Clear")
	}
}

func TestScoreToString(t *testing.T) {
	if got := ScoreToString(150); got != "1.50" {
		t.Errorf("ScoreToString(150) = %q, want %q", got, "1.50")
	}
	if got := ScoreToString(MateScore - 3); got == "" {
		t.Errorf("ScoreToString near mate returned empty string")
	}
}
