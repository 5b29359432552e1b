package telegram

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/zombor/cleanscan/internal/geo"
	"github.com/zombor/cleanscan/internal/scan"
	"github.com/zombor/cleanscan/internal/waste"
)

// maxFileSize is the Bot API download limit
const maxFileSize = 20 << 20

// Bot is the part of the Telegram Bot API the router uses
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Scanner runs one scan
type Scanner interface {
	Scan(ctx context.Context, req scan.Request) (*waste.ScanReport, error)
}

// chatState is what the bot remembers about one chat
type chatState struct {
	language string
	location *waste.Location
	coords   *geo.Coordinates
	session  *scan.Session
}

// Router turns chat updates into scans. Each chat has its own session, so a
// photo sent while another is being analyzed supersedes it.
type Router struct {
	bot     Bot
	scanner Scanner
	limiter *scan.Limiter
	metrics *scan.Metrics
	client  *http.Client

	mu    sync.Mutex
	chats map[int64]*chatState
}

// NewRouter creates a Router. limiter and metrics may be nil.
func NewRouter(bot Bot, scanner Scanner, limiter *scan.Limiter, metrics *scan.Metrics) *Router {
	return &Router{
		bot:     bot,
		scanner: scanner,
		limiter: limiter,
		metrics: metrics,
		client:  &http.Client{Timeout: 60 * time.Second},
		chats:   make(map[int64]*chatState),
	}
}

// Run polls for updates until ctx is cancelled
func (r *Router) Run(ctx context.Context, api *tgbotapi.BotAPI) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := api.GetUpdatesChan(u)

	slog.Info("Telegram bot started", "username", api.Self.UserName)
	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()
			r.closeSessions()
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			r.HandleUpdate(ctx, upd)
		}
	}
}

// HandleUpdate dispatches one update
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID

	switch {
	case msg.IsCommand():
		r.handleCommand(chatID, msg.Command(), strings.TrimSpace(msg.CommandArguments()))
	case msg.Location != nil:
		r.update(chatID, func(st *chatState) {
			st.coords = &geo.Coordinates{Lat: msg.Location.Latitude, Lon: msg.Location.Longitude}
			st.location = nil
		})
		r.send(chatID, "📍 Location saved. Recycling suggestions will be local to you.")
	case len(msg.Photo) > 0:
		ph := msg.Photo[len(msg.Photo)-1]
		r.acceptImage(ctx, chatID, ph.FileID, "image/jpeg", ph.FileSize)
	case msg.Document != nil:
		r.acceptImage(ctx, chatID, msg.Document.FileID, msg.Document.MimeType, msg.Document.FileSize)
	default:
		r.send(chatID, "Send me a photo of your waste and I'll tell you how to dispose of it. Try /help.")
	}
}

func (r *Router) handleCommand(chatID int64, command, args string) {
	switch command {
	case "start", "help":
		r.send(chatID, helpText())
	case "language":
		r.handleLanguage(chatID, args)
	case "location":
		r.handleLocation(chatID, args)
	case "new":
		r.state(chatID).session.Reset()
		r.send(chatID, "Ready for a new scan. Send a photo.")
	default:
		r.send(chatID, "Unknown command. Try /help.")
	}
}

func (r *Router) handleLanguage(chatID int64, args string) {
	if args == "" {
		current := waste.ResolveLanguage(r.snapshot(chatID).language)
		r.send(chatID, fmt.Sprintf("Current language: %s\nAvailable: %s", current.Name, languageTags()))
		return
	}

	lang := waste.ResolveLanguage(args)
	if lang.Tag != strings.ToLower(args) {
		r.send(chatID, fmt.Sprintf("Unsupported language %q. Available: %s", args, languageTags()))
		return
	}
	r.update(chatID, func(st *chatState) { st.language = lang.Tag })
	r.send(chatID, fmt.Sprintf("Language set to %s (%s).", lang.Name, lang.Native))
}

// handleLocation sets a manual "City, State" location or clears it
func (r *Router) handleLocation(chatID int64, args string) {
	if args == "" {
		r.update(chatID, func(st *chatState) {
			st.location = nil
			st.coords = nil
		})
		r.send(chatID, "Location cleared.")
		return
	}

	city, state, _ := strings.Cut(args, ",")
	loc := &waste.Location{City: strings.TrimSpace(city), State: strings.TrimSpace(state)}
	if !loc.Valid() {
		r.send(chatID, "Usage: /location City, State")
		return
	}
	r.update(chatID, func(st *chatState) {
		st.location = loc
		st.coords = nil
	})
	r.send(chatID, fmt.Sprintf("📍 Location set to %s, %s.", loc.City, loc.State))
}

func (r *Router) acceptImage(ctx context.Context, chatID int64, fileID, mimeType string, size int) {
	if size > maxFileSize {
		r.send(chatID, "⚠️ That file is too large. Please send a smaller photo.")
		return
	}
	if !r.limiter.Allow(strconv.FormatInt(chatID, 10)) {
		slog.Warn("Rate limit exceeded", "chat", chatID)
		r.send(chatID, "⚠️ "+waste.UserMessage(waste.ErrRateLimited))
		return
	}

	st := r.snapshot(chatID)
	id, scanCtx := st.session.Begin(ctx)
	r.send(chatID, "🔍 Analyzing your photo...")

	go func() {
		report, err := r.scan(scanCtx, st, fileID, mimeType)
		r.finish(chatID, st.session, scan.Outcome{ScanID: id, Report: report, Err: err})
	}()
}

func (r *Router) scan(ctx context.Context, st chatState, fileID, mimeType string) (*waste.ScanReport, error) {
	data, err := r.download(ctx, fileID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: downloading file: %v", waste.ErrUpstream, err)
	}

	image := base64.StdEncoding.EncodeToString(data)
	if mimeType != "" {
		image = "data:" + mimeType + ";base64," + image
	}

	return r.scanner.Scan(ctx, scan.Request{
		Image:       image,
		Language:    st.language,
		Location:    st.location,
		Coordinates: st.coords,
	})
}

// finish replies with an outcome unless a newer scan superseded it
func (r *Router) finish(chatID int64, session *scan.Session, o scan.Outcome) {
	if !session.Apply(o) {
		r.metrics.ObserveStale()
		slog.Debug("Dropping stale scan outcome", "chat", chatID, "scan", o.ScanID)
		return
	}
	if o.Err != nil {
		if !errors.Is(o.Err, context.Canceled) {
			r.send(chatID, "⚠️ "+waste.UserMessage(o.Err))
		}
		return
	}
	r.send(chatID, Format(o.Report))
}

func (r *Router) download(ctx context.Context, fileID string) ([]byte, error) {
	url, err := r.bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxFileSize))
}

func (r *Router) send(chatID int64, text string) {
	if _, err := r.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		slog.Warn("Error sending telegram message", "chat", chatID, "error", err)
	}
}

// state returns the state of a chat, creating it on first use
func (r *Router) state(chatID int64) *chatState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked(chatID)
}

func (r *Router) stateLocked(chatID int64) *chatState {
	st, ok := r.chats[chatID]
	if !ok {
		st = &chatState{session: scan.NewSession()}
		r.chats[chatID] = st
	}
	return st
}

// snapshot returns a copy of a chat's state that is safe to read without the lock
func (r *Router) snapshot(chatID int64) chatState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.stateLocked(chatID)
}

func (r *Router) update(chatID int64, fn func(*chatState)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.stateLocked(chatID))
}

func (r *Router) closeSessions() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, st := range r.chats {
		st.session.Close()
	}
}

func helpText() string {
	return "Send me a photo of your waste and I'll sort every item into plastic, recyclable, organic, landfill, hazardous or e-waste.\n\n" +
		"Share your location (or use /location City, State) to get nearby recycling suggestions.\n\n" +
		"Commands:\n" +
		"/language <tag> - answer in another language (" + languageTags() + ")\n" +
		"/location City, State - set your location; no arguments clears it\n" +
		"/new - discard the current scan"
}

func languageTags() string {
	langs := waste.Languages()
	tags := make([]string, 0, len(langs))
	for _, l := range langs {
		tags = append(tags, l.Tag)
	}
	return strings.Join(tags, ", ")
}
