// Package repl is the interactive terminal front end: an auth view followed
// by a research view over one loaded document at a time.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tieubaoca/research-assistant/logging"
	"github.com/tieubaoca/research-assistant/service"
	"github.com/tieubaoca/research-assistant/types"
)

// Test seams for interactive input.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

type App struct {
	users    service.UserService
	docs     *service.DocumentService
	research *service.ResearchService
	log      logging.Logger

	reader *bufio.Reader
	out    io.Writer
	now    func() time.Time

	session types.Session
	doc     *types.Document
}

func New(users service.UserService, docs *service.DocumentService, research *service.ResearchService,
	in io.Reader, out io.Writer, log logging.Logger) *App {
	return &App{
		users:    users,
		docs:     docs,
		research: research,
		log:      log,
		reader:   bufio.NewReader(in),
		out:      out,
		now:      time.Now,
	}
}

func (a *App) loggedIn() bool {
	return a.session.Active(a.now())
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

// Run loops until quit or end of input. Command errors are printed and the
// loop goes on.
func (a *App) Run(ctx context.Context) error {
	a.println("Smart Research Assistant. Type help for commands.")
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		prompt := "auth"
		if a.loggedIn() {
			prompt = a.session.Username
			if a.doc != nil {
				prompt += " [" + a.doc.Name + "]"
			}
		}
		line, err := getSimpleText(a.reader, prompt, a.out)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		cmd, arg := strings.ToLower(fields[0]), strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

		if cmd == "quit" || cmd == "exit" {
			a.println("Bye!")
			return nil
		}
		if err := a.dispatch(ctx, cmd, arg); err != nil {
			a.println("Error:", err)
		}
	}
}

func (a *App) dispatch(ctx context.Context, cmd, arg string) error {
	if !a.loggedIn() {
		switch cmd {
		case "help":
			a.println("Available commands: login, register, quit")
		case "login":
			return a.Login(ctx)
		case "register":
			return a.Register(ctx)
		default:
			a.println("Please log in to continue.")
		}
		return nil
	}

	switch cmd {
	case "help":
		a.println("Available commands: open <file>, preview, query [question], summarize, challenge, logout, quit")
		a.println("Modes: " + modeList())
	case "open":
		return a.Open(ctx, arg)
	case "preview":
		return a.Preview()
	case "query", "q":
		return a.Query(ctx, arg)
	case "summarize", "s":
		return a.runMode(ctx, types.ModeSummarize, "")
	case "challenge", "c":
		return a.Challenge(ctx)
	case "logout":
		a.Logout()
	default:
		a.println("Unknown command:", cmd)
	}
	return nil
}

func (a *App) Register(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Username", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer wipe(password)

	ok, err := a.users.Register(ctx, username, email, string(password))
	if err != nil {
		return err
	}
	if !ok {
		a.println("Username or email already exists.")
		return nil
	}
	a.println("Registration successful! Please log in.")
	return nil
}

func (a *App) Login(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Username", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer wipe(password)

	session, err := a.users.Authenticate(ctx, username, string(password))
	if errors.Is(err, service.ErrInvalidCredentials) {
		a.println("Invalid credentials.")
		return nil
	}
	if err != nil {
		return err
	}
	a.session = *session
	a.println("Welcome, " + session.Username + "!")
	return nil
}

// Logout drops the session and the loaded document.
func (a *App) Logout() {
	a.session.Clear()
	a.doc = nil
	a.println("Logged out.")
}

func (a *App) Open(ctx context.Context, path string) error {
	if path == "" {
		var err error
		if path, err = getSimpleText(a.reader, "Upload a PDF or TXT document (path)", a.out); err != nil {
			return err
		}
	}
	if types.DetectFormat(path) == types.FormatUnsupported {
		return service.ErrUnsupportedFormat
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	doc, err := a.docs.LoadReader(ctx, filepath.Base(path), f)
	if err != nil {
		return err
	}
	a.doc = doc
	return a.Preview()
}

func (a *App) Preview() error {
	if a.doc == nil {
		return errNoDocument
	}
	a.println("Document Preview")
	a.println(a.docs.Preview(a.doc.Text))
	return nil
}

func (a *App) Query(ctx context.Context, question string) error {
	if question == "" {
		var err error
		if question, err = getSimpleText(a.reader, "Enter your question about the document", a.out); err != nil {
			return err
		}
	}
	return a.runMode(ctx, types.ModeQuery, question)
}

// Challenge asks for three questions, then collects and grades the answers.
func (a *App) Challenge(ctx context.Context) error {
	if err := a.runMode(ctx, types.ModeChallenge, ""); err != nil {
		return err
	}
	a.println("Please answer the 3 questions above:")
	var answers types.Answers
	for i := range answers {
		ans, err := getSimpleText(a.reader, fmt.Sprintf("Your answer to Question %d", i+1), a.out)
		if err != nil {
			return err
		}
		answers[i] = ans
	}
	res, err := a.research.Evaluate(ctx, a.doc.Text, answers)
	if err != nil {
		return err
	}
	a.println("Evaluation of your Answers")
	a.printResult(res)
	return nil
}

var errNoDocument = errors.New("no document loaded, use open <file> first")

func (a *App) runMode(ctx context.Context, mode types.Mode, question string) error {
	if a.doc == nil {
		return errNoDocument
	}
	res, err := a.research.Run(ctx, a.doc.Text, mode, question)
	if err != nil {
		return err
	}
	a.println("Research Result")
	a.printResult(res)
	return nil
}

func (a *App) printResult(res *types.ResearchResult) {
	if res.EffectiveMode != res.Mode {
		a.println("(no question given, summarizing instead)")
	}
	if s := res.Structured; s != nil {
		a.println("Topic:", s.Topic)
		a.println(s.Summary)
		if len(s.Sources) > 0 {
			a.println("Sources:", strings.Join(s.Sources, ", "))
		}
		if len(s.ToolsUsed) > 0 {
			a.println("Tools used:", strings.Join(s.ToolsUsed, ", "))
		}
		return
	}
	if res.ParseError != "" {
		a.println("Error parsing response:", res.ParseError)
		a.println("Raw Response -", res.Output)
		return
	}
	a.println(res.Output)
}

func modeList() string {
	labels := make([]string, len(types.Modes))
	for i, m := range types.Modes {
		labels[i] = m.Label()
	}
	return strings.Join(labels, ", ")
}
