// Package main runs the sportmate interactive shell: a thin
// presentation stand-in over the application state manager.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/sportmate/internal/config"
	"github.com/atinyakov/sportmate/internal/logger"
	"github.com/atinyakov/sportmate/internal/models"
	"github.com/atinyakov/sportmate/internal/repository"
	"github.com/atinyakov/sportmate/internal/service"
	"github.com/atinyakov/sportmate/internal/storage"
)

var (
	version   string
	buildDate string
)

const dateLayout = "2006-01-02 15:04"

// terminalUI prints navigation transitions and user notifications to
// the console, standing in for the mobile screens.
type terminalUI struct{}

func (terminalUI) Home() { fmt.Println("[home] you are signed in") }
func (terminalUI) Auth() { fmt.Println("[auth] you are signed out") }

func (terminalUI) Notify(msg string) { fmt.Println("!", msg) }

func prompt(scanner *bufio.Scanner, label string) string {
	fmt.Print(label + ": ")
	scanner.Scan()
	return strings.TrimSpace(scanner.Text())
}

func promptDate(scanner *bufio.Scanner, label string) time.Time {
	for {
		raw := prompt(scanner, label+" (YYYY-MM-DD HH:MM)")
		t, err := time.Parse(dateLayout, raw)
		if err == nil {
			return t
		}
		fmt.Println("invalid date, try again")
	}
}

func parseID(arg string) (int64, bool) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		fmt.Println("expected a numeric id, got:", arg)
		return 0, false
	}
	return id, true
}

func printEvent(e models.Event) {
	fmt.Printf("#%d %q [%s] %s → %s  participants %d/%d  organizer %d\n",
		e.ID, e.Title, e.EventType,
		e.StartDate.Format(dateLayout), e.EndDate.Format(dateLayout),
		len(e.Participants), e.MaxParticipants, e.OrganizedBy)
}

// repl runs the interactive shell loop, accepting commands to browse
// and manage events.
func repl(ctx context.Context, app *service.App) {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("sportmate> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "help":
			fmt.Println("Available commands: help, signup, login, logout, whoami, users,")
			fmt.Println("  events [search] [type] [date|participants asc|desc], my, create,")
			fmt.Println("  join <eventID>, leave <eventID>, request <eventID>, requests,")
			fmt.Println("  approve <requestID>, reject <requestID>, reset, exit")
		case "signup":
			fullname := prompt(scanner, "Full name")
			username := prompt(scanner, "Username")
			password := prompt(scanner, "Password")
			_ = app.Signup(ctx, fullname, username, password)
		case "login":
			username := prompt(scanner, "Username")
			password := prompt(scanner, "Password")
			_ = app.Login(ctx, username, password)
		case "logout":
			_ = app.Logout(ctx)
		case "whoami":
			if s := app.Session(); s != nil {
				fmt.Printf("logged in as %s (id %d)\n", s.Username, s.UserID)
			} else {
				fmt.Println("not logged in")
			}
		case "users":
			for _, u := range app.Users() {
				fmt.Printf("#%d %s (%s)\n", u.ID, u.Username, u.Fullname)
			}
		case "events":
			f := service.Filter{}
			rest := args[1:]
			if len(rest) > 0 && rest[0] != "date" && rest[0] != "participants" {
				switch models.EventType(rest[0]) {
				case models.Cricket, models.Football, models.Badminton:
					f.Type = models.EventType(rest[0])
				default:
					f.Search = rest[0]
				}
				rest = rest[1:]
			}
			if len(rest) >= 2 {
				f.SortBy = service.SortField(rest[0])
				f.Order = service.SortOrder(rest[1])
			}
			for _, e := range service.FilterEvents(app.Events(), f) {
				printEvent(e)
			}
		case "my":
			s := app.Session()
			if s == nil {
				fmt.Println("not logged in")
				continue
			}
			for _, e := range app.MyEvents(s.UserID) {
				printEvent(e)
			}
		case "create":
			s := app.Session()
			if s == nil {
				fmt.Println("not logged in")
				continue
			}
			body := models.CreateEvent{
				Title:       prompt(scanner, "Title"),
				Description: prompt(scanner, "Description"),
				BannerURL:   prompt(scanner, "Banner URL"),
				EventType:   models.EventType(prompt(scanner, "Type (cricket/football/badminton)")),
				StartDate:   promptDate(scanner, "Start"),
				EndDate:     promptDate(scanner, "End"),
			}
			if n, err := strconv.Atoi(prompt(scanner, "Max participants")); err == nil {
				body.MaxParticipants = n
			}
			if ev, err := app.CreateEvent(ctx, body, s.UserID); err == nil {
				printEvent(*ev)
			}
		case "join":
			if len(args) < 2 {
				fmt.Println("Usage: join <eventID>")
				continue
			}
			s := app.Session()
			if s == nil {
				fmt.Println("not logged in")
				continue
			}
			if id, ok := parseID(args[1]); ok {
				_ = app.JoinEvent(ctx, id, s.UserID)
			}
		case "leave":
			if len(args) < 2 {
				fmt.Println("Usage: leave <eventID>")
				continue
			}
			if id, ok := parseID(args[1]); ok {
				_ = app.LeaveEvent(ctx, id)
			}
		case "request":
			if len(args) < 2 {
				fmt.Println("Usage: request <eventID>")
				continue
			}
			if id, ok := parseID(args[1]); ok {
				_, _ = app.CreateRequest(ctx, id)
			}
		case "requests":
			s := app.Session()
			if s == nil {
				fmt.Println("not logged in")
				continue
			}
			for _, r := range app.RequestsForOrganizer(s.UserID) {
				name := fmt.Sprintf("user %d", r.RequesterID)
				if u, ok := app.UserByID(r.RequesterID); ok {
					name = u.Fullname
				}
				fmt.Printf("#%d event %d from %s at %s\n",
					r.ID, r.EventID, name, r.RequestedAt.Format(dateLayout))
			}
		case "approve", "reject":
			if len(args) < 2 {
				fmt.Printf("Usage: %s <requestID>\n", args[0])
				continue
			}
			action := service.Reject
			if args[0] == "approve" {
				action = service.Approve
			}
			if id, ok := parseID(args[1]); ok {
				_ = app.ResolveRequest(ctx, id, action)
			}
		case "reset":
			if prompt(scanner, "Wipe all local data? (yes/no)") == "yes" {
				_ = app.Reset(ctx)
			}
		case "exit":
			fmt.Println("Bye")
			return
		default:
			fmt.Println("Unknown command. Type 'help' for a list of commands.")
		}
	}
}

func main() {
	options := config.Parse()

	if version != "" {
		fmt.Printf("sportmate %s (%s)\n", version, buildDate)
	}

	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	var store storage.Store
	switch options.Backend {
	case config.BackendSQLite:
		s, err := storage.NewSQLiteStore(options.SQLitePath, zapLogger)
		if err != nil {
			zapLogger.Fatal("cannot open sqlite store", zap.Error(err))
		}
		defer s.Close()
		store = s
	case config.BackendFile:
		s, err := storage.NewFileStore(options.DataDir, zapLogger)
		if err != nil {
			zapLogger.Fatal("cannot open file store", zap.Error(err))
		}
		store = s
	default:
		zapLogger.Fatal("unknown storage backend", zap.String("backend", options.Backend))
	}

	repo := repository.New(store)
	ui := terminalUI{}
	app := service.New(repo, zapLogger, ui, ui)

	ctx := context.Background()
	if err := app.Init(ctx); err != nil {
		zapLogger.Fatal("cannot load local state", zap.Error(err))
	}

	repl(ctx, app)
}
