package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"chessarena/internal/authority"
	appcfg "chessarena/internal/config"
	"chessarena/internal/drawflow"
	"chessarena/internal/history"
	"chessarena/internal/moveflow"
	"chessarena/internal/msgcat"
	"chessarena/internal/obslog"
	"chessarena/internal/push"
	"chessarena/internal/session"
	"chessarena/pkg/arenadto"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("log init error: %v", err)
	}
	catalog, err := msgcat.New(cfg.MsgTemplateDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	headers := func() map[string]string {
		return map[string]string{"X-Player-Id": cfg.PlayerID}
	}
	client := authority.NewClient(cfg.ArenaBaseURL,
		authority.WithHeaderProvider(headers),
		authority.WithTimeout(cfg.RequestTimeout),
	)

	ctx := context.Background()

	gameID, err := resolveGame(ctx, client, cfg, os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	var recorders []session.ResultRecorder
	var recent *history.Recent
	if cfg.RedisURL != "" {
		recent, err = history.NewRecent(cfg.RedisURL)
		if err != nil {
			log.Fatalf("history store error: %v", err)
		}
		defer recent.Close()
		recorders = append(recorders, recent)
	}
	if cfg.DatabaseURL != "" {
		archive, err := history.NewArchive(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("archive error: %v", err)
		}
		defer archive.Close()
		recorders = append(recorders, archive)
	}

	sub := push.NewSubscription(cfg.ArenaWSURL, cfg.WSMaxReconnect, cfg.WSReconnectDelay)
	sub.SetHeaderProvider(headers)

	sess, err := session.New(session.Params{
		GameID:        gameID,
		ParticipantID: cfg.PlayerID,
		Authority:     client,
		Subscription:  sub,
		Catalog:       catalog,
		Notifier:      func(text string) { fmt.Println(">> " + text) },
		Recorders:     recorders,
	})
	if err != nil {
		log.Fatalf("session error: %v", err)
	}
	if err := sess.Open(ctx); err != nil {
		log.Fatalf("open session: %v", err)
	}
	defer sess.Close(context.Background())

	mover := moveflow.NewCoordinator(sess)
	draw := drawflow.NewCoordinator(sess)

	printState(sess)
	fmt.Println(`commands: move <from><to>, promote <q|r|b|n>, draw, accept, decline, resign, state, history, quit`)

	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sigCh:
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := handleLine(ctx, line, sess, mover, draw, recent, cfg, catalog); quit {
				return
			}
		}
	}
}

func resolveGame(ctx context.Context, client *authority.Client, cfg *appcfg.AppConfig, args []string) (string, error) {
	if len(args) == 0 {
		return "", errors.New("usage: arena-client new | join <game-id> | open <game-id>")
	}
	switch args[0] {
	case "new":
		game, err := client.CreateGame(ctx, cfg.PlayerID)
		if err != nil {
			return "", fmt.Errorf("create game: %w", err)
		}
		fmt.Printf("created game %s (share this id with your opponent)\n", game.GameID)
		return game.GameID, nil
	case "join":
		if len(args) < 2 {
			return "", errors.New("usage: arena-client join <game-id>")
		}
		game, err := client.JoinGame(ctx, args[1], cfg.PlayerID)
		if err != nil {
			return "", fmt.Errorf("join game: %w", err)
		}
		fmt.Printf("joined game %s\n", game.GameID)
		return game.GameID, nil
	case "open":
		if len(args) < 2 {
			return "", errors.New("usage: arena-client open <game-id>")
		}
		return args[1], nil
	default:
		return "", errors.New("usage: arena-client new | join <game-id> | open <game-id>")
	}
}

func handleLine(ctx context.Context, line string, sess *session.Session, mover *moveflow.Coordinator, draw *drawflow.Coordinator, recent *history.Recent, cfg *appcfg.AppConfig, cat *msgcat.Catalog) bool {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return false
	}
	switch strings.ToLower(fields[0]) {
	case "move":
		from, to, err := parseMoveArgs(fields[1:])
		if err != nil {
			fmt.Println(cat.Text("guard.invalid_square", nil, err.Error()))
			return false
		}
		result, err := mover.HandleDrop(ctx, from, to)
		switch result {
		case moveflow.DropCompleted:
			printState(sess)
		case moveflow.DropAwaitingPromotion:
			fmt.Println(cat.Text("guard.promotion_pending", nil, "Choose a promotion piece (q, r, b or n)."))
		case moveflow.DropRejected:
			fmt.Println(rejectText(err, cat))
		}
	case "promote":
		if len(fields) < 2 {
			fmt.Println(cat.Text("guard.invalid_promotion", nil, "Promotion piece required."))
			return false
		}
		if err := mover.ChoosePromotion(ctx, fields[1]); err != nil {
			fmt.Println(rejectText(err, cat))
			return false
		}
		printState(sess)
	case "resign":
		if err := sess.Resign(ctx); err != nil {
			fmt.Println(rejectText(err, cat))
			return false
		}
		printState(sess)
	case "draw":
		if err := draw.Offer(ctx); err != nil {
			fmt.Println(rejectText(err, cat))
			return false
		}
		fmt.Println(cat.Text("draw.sent", nil, "Draw offer sent"))
	case "accept", "decline":
		if err := draw.Respond(ctx, fields[0] == "accept"); err != nil {
			fmt.Println(rejectText(err, cat))
			return false
		}
		printState(sess)
	case "state":
		printState(sess)
	case "history":
		printHistory(ctx, recent, cfg)
	case "quit", "exit":
		return true
	default:
		fmt.Printf("unknown command %q\n", fields[0])
	}
	return false
}

// parseMoveArgs accepts "e2 e4" or the compact "e2e4".
func parseMoveArgs(args []string) (string, string, error) {
	switch len(args) {
	case 1:
		mv := strings.ToLower(strings.TrimSpace(args[0]))
		if len(mv) != 4 {
			return "", "", errors.New("expected a move like e2e4")
		}
		return mv[:2], mv[2:], nil
	case 2:
		return strings.ToLower(args[0]), strings.ToLower(args[1]), nil
	default:
		return "", "", errors.New("usage: move <from> <to>")
	}
}

// rejectText maps guard rejections to catalog messages; authority rejections
// already carry the server's message.
func rejectText(err error, cat *msgcat.Catalog) string {
	if err == nil {
		return cat.Text("error.generic", nil, "Something went wrong, please try again.")
	}
	key := ""
	switch {
	case errors.Is(err, moveflow.ErrWaitingForPlayers):
		key = "guard.waiting_players"
	case errors.Is(err, moveflow.ErrNotLoaded):
		key = "guard.not_loaded"
	case errors.Is(err, moveflow.ErrNotYourTurn):
		key = "guard.not_your_turn"
	case errors.Is(err, moveflow.ErrInvalidSquare):
		key = "guard.invalid_square"
	case errors.Is(err, moveflow.ErrPromotionPending):
		key = "guard.promotion_pending"
	case errors.Is(err, moveflow.ErrNoPromotionPending):
		key = "guard.no_promotion_pending"
	case errors.Is(err, moveflow.ErrInvalidPromotion):
		key = "guard.invalid_promotion"
	case errors.Is(err, drawflow.ErrGameNotActive):
		key = "draw.not_active"
	case errors.Is(err, drawflow.ErrOfferOutstanding):
		key = "draw.already_pending"
	case errors.Is(err, drawflow.ErrNoOffer):
		key = "draw.none_pending"
	case errors.Is(err, drawflow.ErrOwnOffer):
		key = "draw.own_offer"
	default:
		return err.Error()
	}
	return cat.Text(key, nil, err.Error())
}

func printState(sess *session.Session) {
	snap := sess.Snapshot()
	if snap == nil {
		fmt.Println("game not loaded")
		return
	}
	fmt.Printf("game %s  status=%s", snap.GameID, snap.Status)
	if snap.Result != "" {
		fmt.Printf("  result=%s", snap.Result)
	}
	fmt.Println()
	fmt.Printf("  white: %s\n", seatText(snap.White))
	fmt.Printf("  black: %s\n", seatText(snap.Black))
	fmt.Printf("  position: %s\n", snap.FEN)
	if snap.Status == arenadto.StatusActive {
		if sess.MyTurn() {
			fmt.Println("  your move")
		} else {
			fmt.Println("  waiting for opponent")
		}
	}
	if snap.DrawOffer != nil {
		fmt.Printf("  draw offered by %s\n", snap.DrawOffer.OfferedBy)
	}
	if len(snap.MoveHistory) > 0 {
		fmt.Printf("  moves: %s\n", strings.Join(snap.MoveHistory, " "))
	}
}

func seatText(p *session.Player) string {
	if p == nil {
		return "(open)"
	}
	if p.Name != "" {
		return fmt.Sprintf("%s (%s)", p.Name, p.ID)
	}
	return p.ID
}

func printHistory(ctx context.Context, recent *history.Recent, cfg *appcfg.AppConfig) {
	if recent == nil {
		fmt.Println("history unavailable: REDIS_URL not configured")
		return
	}
	recs, err := recent.List(ctx, cfg.PlayerID, cfg.HistoryLimit)
	if err != nil {
		fmt.Printf("history error: %v\n", err)
		return
	}
	if len(recs) == 0 {
		fmt.Println("no finished games yet")
		return
	}
	for _, rec := range recs {
		fmt.Printf("%s  %s vs %s  %s (%s)  %s\n",
			rec.GameID,
			orDash(rec.WhiteName, rec.WhiteID), orDash(rec.BlackName, rec.BlackID),
			rec.Result, rec.Method,
			rec.EndedAt.Format("2006-01-02 15:04"),
		)
	}
}

func orDash(name, id string) string {
	if name != "" {
		return name
	}
	if id != "" {
		return id
	}
	return "-"
}
