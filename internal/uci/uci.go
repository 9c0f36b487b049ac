// Package uci implements the Universal Chess Interface protocol on top of
// the engine package.
package uci

import (
	"bufio"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	logging "github.com/op/go-logging"
	"github.com/pkg/profile"

	"github.com/x4A81/chesscore/internal/board"
	"github.com/x4A81/chesscore/internal/engine"
	"github.com/x4A81/chesscore/internal/storage"
)

var log = logging.MustGetLogger("uci")

func init() {
	// UCI front ends read engine output from stdout; diagnostics must never
	// land there, so the backend is pinned to stderr.
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	formatter := logging.NewBackendFormatter(backend, logging.MustStringFormatter(
		`%{time:15:04:05.000} %{level:.4s} %{message}`,
	))
	logging.SetBackend(formatter)
}

// UCI implements the Universal Chess Interface protocol.
type UCI struct {
	engine   *engine.Engine
	position *board.Position

	// positionHashes records the Zobrist hash of every position reached
	// this game, oldest first, for repetition detection.
	positionHashes []uint64
	ply            int

	debug bool

	searching     bool
	searchDone    chan struct{}
	stopRequested atomic.Bool
	lastInfo      engine.SearchInfo

	profiler interface{ Stop() }

	// store, if set, persists engine settings and a cross-restart best-move
	// cache; nil means run with no persistence (e.g. under test).
	store *storage.Storage
}

// New creates a new UCI protocol handler around an already-configured engine.
func New(eng *engine.Engine) *UCI {
	return &UCI{
		engine:   eng,
		position: board.NewPosition(),
	}
}

// SetStorage attaches a persistence layer. Once set, completed searches are
// recorded as lifetime statistics and a best-move summary, and "quit" saves
// the engine's current settings before exiting.
func (u *UCI) SetStorage(s *storage.Storage) {
	u.store = s
}

// SetDebug seeds the initial debug-logging state, overridable later with
// "setoption name Debug value true/false".
func (u *UCI) SetDebug(enabled bool) {
	u.debug = enabled
}

// Run starts the UCI main loop, reading commands from stdin until "quit"
// or end of input.
func (u *UCI) Run() {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "uci":
			u.handleUCI()
		case "isready":
			fmt.Println("readyok")
		case "ucinewgame":
			u.handleNewGame()
		case "position":
			if u.debug {
				log.Debugf("position %s", strings.Join(args, " "))
			}
			u.handlePosition(args)
		case "go":
			u.handleGo(args)
		case "stop":
			u.handleStop()
		case "quit":
			u.handleQuit()
		case "setoption":
			u.handleSetOption(args)
		// Debug commands
		case "d":
			fmt.Println(u.position.String())
		case "perft":
			u.handlePerft(args)
		case "eval":
			u.handleEval()
		case "usage":
			u.handleUsage()
		case "bookmoves":
			u.handleBookMoves()
		default:
			log.Warningf("unknown command: %s", cmd)
		}
	}
}

// handleUCI responds to the "uci" command.
func (u *UCI) handleUCI() {
	fmt.Println("id name chesscore")
	fmt.Println("id author chesscore contributors")
	fmt.Println()
	fmt.Println("option name Hash type spin default 64 min 1 max 4096")
	fmt.Println("option name OwnBook type check default false")
	fmt.Println("option name Debug type check default false")
	fmt.Println("uciok")
}

// handleNewGame resets engine and game state for a new game.
func (u *UCI) handleNewGame() {
	u.engine.Clear()
	u.position = board.NewPosition()
	u.positionHashes = []uint64{u.position.Hash}
	u.ply = 0
}

// handlePosition parses and sets up a position.
// Formats:
//   - position startpos
//   - position startpos moves e2e4 e7e5
//   - position fen <fen>
//   - position fen <fen> moves e2e4
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}

	u.positionHashes = nil
	var moveStart int

	if args[0] == "startpos" {
		u.position = board.NewPosition()
		moveStart = 1
		for i, arg := range args {
			if arg == "moves" {
				moveStart = i + 1
				break
			}
		}
	} else if args[0] == "fen" {
		fenEnd := len(args)
		for i, arg := range args[1:] {
			if arg == "moves" {
				fenEnd = i + 1
				break
			}
		}

		fenStr := strings.Join(args[1:fenEnd], " ")
		pos, err := board.ParseFEN(fenStr)
		if err != nil {
			log.Errorf("invalid FEN %q: %v", fenStr, err)
			return
		}
		u.position = pos

		moveStart = len(args)
		for i, arg := range args {
			if arg == "moves" {
				moveStart = i + 1
				break
			}
		}
	} else {
		return
	}

	u.positionHashes = append(u.positionHashes, u.position.Hash)
	u.ply = 0

	if moveStart < len(args) {
		for _, moveStr := range args[moveStart:] {
			move := u.parseMove(moveStr)
			if move == board.NoMove {
				log.Errorf("invalid move in position command: %s", moveStr)
				return
			}
			u.position.MakeMove(move)
			u.position.UpdateCheckers()
			u.positionHashes = append(u.positionHashes, u.position.Hash)
			u.ply++
		}
	}

	if u.debug {
		legal := u.position.GenerateLegalMoves()
		var legalStrs []string
		for i := 0; i < legal.Len() && i < 8; i++ {
			legalStrs = append(legalStrs, legal.Get(i).String())
		}
		log.Debugf("after position setup: hash=%016x inCheck=%v legal=%v...",
			u.position.Hash, u.position.InCheck(), legalStrs)
	}
}

// parseMove converts a UCI move string to a board.Move.
func (u *UCI) parseMove(moveStr string) board.Move {
	if len(moveStr) < 4 {
		return board.NoMove
	}

	fromFile := int(moveStr[0] - 'a')
	fromRank := int(moveStr[1] - '1')
	toFile := int(moveStr[2] - 'a')
	toRank := int(moveStr[3] - '1')

	if fromFile < 0 || fromFile > 7 || fromRank < 0 || fromRank > 7 ||
		toFile < 0 || toFile > 7 || toRank < 0 || toRank > 7 {
		return board.NoMove
	}

	from := board.NewSquare(fromFile, fromRank)
	to := board.NewSquare(toFile, toRank)

	// Accept the non-standard king-takes-own-rook castling notation
	// (e1h1/e1a1/e8h8/e8a8) alongside the standard king-two-squares form.
	if u.position.PieceAt(from).Type() == board.King {
		switch {
		case from == board.E1 && to == board.H1:
			to = board.G1
		case from == board.E1 && to == board.A1:
			to = board.C1
		case from == board.E8 && to == board.H8:
			to = board.G8
		case from == board.E8 && to == board.A8:
			to = board.C8
		}
	}

	var promo board.PieceType
	if len(moveStr) == 5 {
		switch moveStr[4] {
		case 'q':
			promo = board.Queen
		case 'r':
			promo = board.Rook
		case 'b':
			promo = board.Bishop
		case 'n':
			promo = board.Knight
		}
	}

	moves := u.position.GenerateLegalMoves()
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		if m.From() == from && m.To() == to {
			if promo != 0 {
				if m.IsPromotion() && m.Promotion() == promo {
					return m
				}
			} else if !m.IsPromotion() {
				return m
			}
		}
	}

	return board.NoMove
}

// GoOptions holds parsed "go" command options.
type GoOptions struct {
	Depth     int
	Nodes     uint64
	MoveTime  time.Duration
	Infinite  bool
	WTime     time.Duration
	BTime     time.Duration
	WInc      time.Duration
	BInc      time.Duration
	MovesToGo int
}

// handleGo starts a search with the given parameters.
func (u *UCI) handleGo(args []string) {
	if len(args) > 0 && args[0] == "perft" {
		u.handlePerft(args[1:])
		return
	}

	opts := u.parseGoOptions(args)

	u.engine.SetPositionHistory(u.positionHashes)
	u.engine.OnInfo = func(info engine.SearchInfo) {
		u.lastInfo = info
		u.sendInfo(info)
	}

	limits := engine.UCILimits{
		Time:      [2]time.Duration{opts.WTime, opts.BTime},
		Inc:       [2]time.Duration{opts.WInc, opts.BInc},
		MovesToGo: opts.MovesToGo,
		MoveTime:  opts.MoveTime,
		Depth:     opts.Depth,
		Nodes:     opts.Nodes,
		Infinite:  opts.Infinite,
	}

	u.searching = true
	u.stopRequested.Store(false)
	u.searchDone = make(chan struct{})

	pos := u.position.Copy()
	ply := u.ply

	go func() {
		defer close(u.searchDone)

		bestMove := u.engine.SearchWithUCILimits(pos, limits, ply)

		u.searching = false

		if u.store != nil {
			info := u.lastInfo
			wasMate := info.Score > engine.MateScore-100 || info.Score < -engine.MateScore+100
			if err := u.store.RecordSearch(info.Nodes, info.Time, wasMate); err != nil {
				log.Warningf("failed to record search stats: %v", err)
			}
			if bestMove != board.NoMove {
				summary := storage.TTSummary{Move: bestMove, Score: info.Score, Depth: info.Depth}
				if err := u.store.SaveTTSummary(pos.Hash, summary); err != nil {
					log.Warningf("failed to save best-move summary: %v", err)
				}
			}
		}

		// Validate against a fresh copy of the original position; the
		// search may have left pos mid-line if it was stopped abruptly.
		validationPos := u.position.Copy()
		if bestMove != board.NoMove {
			legal := validationPos.GenerateLegalMoves()
			found := false
			for i := 0; i < legal.Len(); i++ {
				if legal.Get(i) == bestMove {
					found = true
					break
				}
			}
			if found {
				if u.debug {
					log.Debugf("sending bestmove %s (hash=%016x)", bestMove.String(), validationPos.Hash)
				}
				fmt.Printf("bestmove %s\n", bestMove.String())
				return
			}
			log.Errorf("search returned illegal move %s (not in %d legal moves)", bestMove.String(), legal.Len())
		}

		legal := validationPos.GenerateLegalMoves()
		if legal.Len() > 0 {
			fmt.Printf("bestmove %s\n", legal.Get(0).String())
		} else {
			fmt.Println("bestmove 0000")
		}
	}()
}

// parseGoOptions parses "go" command arguments.
func (u *UCI) parseGoOptions(args []string) GoOptions {
	opts := GoOptions{}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "depth":
			if i+1 < len(args) {
				opts.Depth, _ = strconv.Atoi(args[i+1])
				i++
			}
		case "nodes":
			if i+1 < len(args) {
				n, _ := strconv.ParseUint(args[i+1], 10, 64)
				opts.Nodes = n
				i++
			}
		case "movetime":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.MoveTime = time.Duration(ms) * time.Millisecond
				i++
			}
		case "infinite":
			opts.Infinite = true
		case "wtime":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.WTime = time.Duration(ms) * time.Millisecond
				i++
			}
		case "btime":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.BTime = time.Duration(ms) * time.Millisecond
				i++
			}
		case "winc":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.WInc = time.Duration(ms) * time.Millisecond
				i++
			}
		case "binc":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.BInc = time.Duration(ms) * time.Millisecond
				i++
			}
		case "movestogo":
			if i+1 < len(args) {
				opts.MovesToGo, _ = strconv.Atoi(args[i+1])
				i++
			}
		}
	}

	return opts
}

// sendInfo outputs search info in UCI format.
func (u *UCI) sendInfo(info engine.SearchInfo) {
	var parts []string

	parts = append(parts, fmt.Sprintf("depth %d", info.Depth))
	if info.SelDepth > 0 {
		parts = append(parts, fmt.Sprintf("seldepth %d", info.SelDepth))
	}

	if info.Score > engine.MateScore-100 {
		mateIn := (engine.MateScore - info.Score + 1) / 2
		parts = append(parts, fmt.Sprintf("score mate %d", mateIn))
	} else if info.Score < -engine.MateScore+100 {
		mateIn := -(engine.MateScore + info.Score + 1) / 2
		parts = append(parts, fmt.Sprintf("score mate %d", mateIn))
	} else {
		parts = append(parts, fmt.Sprintf("score cp %d", info.Score))
	}

	parts = append(parts, fmt.Sprintf("nodes %d", info.Nodes))
	parts = append(parts, fmt.Sprintf("time %d", info.Time.Milliseconds()))

	if info.Time > 0 {
		nps := uint64(float64(info.Nodes) / info.Time.Seconds())
		parts = append(parts, fmt.Sprintf("nps %d", nps))
	}

	if info.HashFull > 0 {
		parts = append(parts, fmt.Sprintf("hashfull %d", info.HashFull))
	}

	if len(info.PV) > 0 {
		validPV := make([]string, 0, len(info.PV))
		testPos := u.position.Copy()
		for _, move := range info.PV {
			legal := testPos.GenerateLegalMoves()
			isLegal := false
			for i := 0; i < legal.Len(); i++ {
				if legal.Get(i) == move {
					isLegal = true
					break
				}
			}
			if !isLegal {
				break
			}
			validPV = append(validPV, move.String())
			testPos.MakeMove(move)
		}
		if len(validPV) > 0 {
			parts = append(parts, "pv "+strings.Join(validPV, " "))
		}
	}

	fmt.Printf("info %s\n", strings.Join(parts, " "))
}

// handleStop stops the current search and waits for it to unwind.
func (u *UCI) handleStop() {
	if u.searching {
		u.stopRequested.Store(true)
		u.engine.Stop()
		<-u.searchDone
	}
}

// handleQuit stops any in-flight search, persists settings, closes any
// active profile, and exits.
func (u *UCI) handleQuit() {
	u.handleStop()
	if u.store != nil {
		settings := &storage.EngineSettings{Debug: u.debug}
		if err := u.store.SaveSettings(settings); err != nil {
			log.Warningf("failed to save engine settings: %v", err)
		}
		u.store.Close()
	}
	if u.profiler != nil {
		u.profiler.Stop()
		log.Info("profile stopped")
		u.profiler = nil
	}
	os.Exit(0)
}

// handleSetOption processes "setoption" commands.
func (u *UCI) handleSetOption(args []string) {
	// Format: setoption name <name> value <value>
	var name, value string
	readingName := false
	readingValue := false

	for _, arg := range args {
		switch arg {
		case "name":
			readingName = true
			readingValue = false
		case "value":
			readingName = false
			readingValue = true
		default:
			if readingName {
				if name != "" {
					name += " "
				}
				name += arg
			} else if readingValue {
				if value != "" {
					value += " "
				}
				value += arg
			}
		}
	}

	switch strings.ToLower(name) {
	case "hash":
		log.Warning("Hash resize requires a restart; ignoring setoption at runtime")
	case "ownbook":
		// Accepted and ignored: the value does not change book use. A book
		// attached before Run (Engine.SetBook/LoadBook) is always consulted.
	case "debug":
		u.debug = strings.ToLower(value) == "true"
		if u.debug {
			log.Info("debug mode enabled")
		}
	case "cpuprofile":
		if u.profiler != nil {
			u.profiler.Stop()
			u.profiler = nil
			log.Info("profile stopped")
		}
		if value != "" && value != "stop" {
			u.profiler = profile.Start(profile.CPUProfile, profile.ProfilePath(value), profile.Quiet)
			log.Infof("cpu profiling to %s", value)
		}
	}
}

// handlePerft runs a perft test from the current position.
func (u *UCI) handlePerft(args []string) {
	depth := 5
	if len(args) > 0 {
		depth, _ = strconv.Atoi(args[0])
	}

	start := time.Now()
	nodes := u.engine.Perft(u.position, depth)
	elapsed := time.Since(start)

	fmt.Printf("Nodes: %d\n", nodes)
	fmt.Printf("Time: %v\n", elapsed)
	if elapsed > 0 {
		nps := float64(nodes) / elapsed.Seconds()
		fmt.Printf("NPS: %.0f\n", nps)
	}
}

// handleEval prints the static evaluation of the current position.
func (u *UCI) handleEval() {
	score := u.engine.Evaluate(u.position)
	fmt.Printf("info string static eval %s (%d cp, side to move)\n", engine.ScoreToString(score), score)
}

// handleUsage reports process memory and goroutine usage, useful when
// diagnosing a runaway search or hash table growth.
func (u *UCI) handleUsage() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	fmt.Printf("info string heap_alloc=%dKB sys=%dKB goroutines=%d gc_cycles=%d\n",
		m.HeapAlloc/1024, m.Sys/1024, runtime.NumGoroutine(), m.NumGC)
}

// handleBookMoves lists every opening book move known for the current
// position, heaviest weight first.
func (u *UCI) handleBookMoves() {
	if !u.engine.HasBook() {
		fmt.Println("info string no book loaded")
		return
	}
	entries := u.engine.BookMoves(u.position)
	if len(entries) == 0 {
		fmt.Println("info string no book moves for this position")
		return
	}
	for _, e := range entries {
		fmt.Printf("info string book %s weight %d\n", e.Move.String(), e.Weight)
	}
}
