package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/five82/courtside/internal/api"
	"github.com/five82/courtside/internal/command"
	"github.com/five82/courtside/internal/domain"
	"github.com/five82/courtside/internal/notify"
)

// AdminUsage lists the admin subcommands.
const AdminUsage = `admin commands:
  add-venue NAME CAPACITY SLOTS [open|closed]
  update-venue NAME CAPACITY SLOTS [open|closed] [--rename NEW]
  delete-venue NAME
  add-user USERNAME [SKILL] [admin]
  delete-user USERNAME
  post TEXT...
  delete-message ID

SLOTS is a comma separated list such as 18:00,19:00.`

var errUsage = errors.New("usage")

const adminConnectTimeout = 5 * time.Second

type adminCommand struct {
	name string
	run  func(context.Context, *command.Mutator, string) command.Outcome
}

// parseAdminCommand turns positional arguments into a mutation. The author
// of posted messages is supplied at run time.
func parseAdminCommand(args []string) (adminCommand, error) {
	if len(args) == 0 {
		return adminCommand{}, fmt.Errorf("%w: missing admin command", errUsage)
	}
	name, rest := args[0], args[1:]
	switch name {
	case "add-venue", "update-venue":
		req, err := parseVenue(rest, name == "update-venue")
		if err != nil {
			return adminCommand{}, fmt.Errorf("%s: %w", name, err)
		}
		if name == "add-venue" {
			return adminCommand{name, func(ctx context.Context, m *command.Mutator, _ string) command.Outcome {
				return m.AddVenue(ctx, req)
			}}, nil
		}
		return adminCommand{name, func(ctx context.Context, m *command.Mutator, _ string) command.Outcome {
			return m.UpdateVenue(ctx, req)
		}}, nil
	case "delete-venue":
		if len(rest) != 1 {
			return adminCommand{}, fmt.Errorf("%w: delete-venue NAME", errUsage)
		}
		return adminCommand{name, func(ctx context.Context, m *command.Mutator, _ string) command.Outcome {
			return m.DeleteVenue(ctx, rest[0])
		}}, nil
	case "add-user":
		req, err := parseUser(rest)
		if err != nil {
			return adminCommand{}, fmt.Errorf("add-user: %w", err)
		}
		return adminCommand{name, func(ctx context.Context, m *command.Mutator, _ string) command.Outcome {
			return m.AddUser(ctx, req)
		}}, nil
	case "delete-user":
		if len(rest) != 1 {
			return adminCommand{}, fmt.Errorf("%w: delete-user USERNAME", errUsage)
		}
		return adminCommand{name, func(ctx context.Context, m *command.Mutator, _ string) command.Outcome {
			return m.DeleteUser(ctx, rest[0])
		}}, nil
	case "post":
		text := strings.TrimSpace(strings.Join(rest, " "))
		if text == "" {
			return adminCommand{}, fmt.Errorf("%w: post TEXT", errUsage)
		}
		return adminCommand{name, func(ctx context.Context, m *command.Mutator, author string) command.Outcome {
			return m.PostMessage(ctx, api.MessageRequest{Author: author, Text: text})
		}}, nil
	case "delete-message":
		if len(rest) != 1 {
			return adminCommand{}, fmt.Errorf("%w: delete-message ID", errUsage)
		}
		id, err := domain.ParseMessageID(rest[0])
		if err != nil {
			return adminCommand{}, fmt.Errorf("delete-message: %w", err)
		}
		return adminCommand{name, func(ctx context.Context, m *command.Mutator, _ string) command.Outcome {
			return m.DeleteMessage(ctx, id)
		}}, nil
	default:
		return adminCommand{}, fmt.Errorf("%w: unknown admin command %q", errUsage, name)
	}
}

func parseVenue(args []string, update bool) (api.VenueRequest, error) {
	var rename string
	if update {
		for i := 0; i < len(args); i++ {
			if args[i] == "--rename" {
				if i+1 >= len(args) {
					return api.VenueRequest{}, fmt.Errorf("%w: --rename needs a name", errUsage)
				}
				rename = args[i+1]
				args = append(args[:i:i], args[i+2:]...)
				break
			}
		}
	}
	if len(args) < 3 || len(args) > 4 {
		return api.VenueRequest{}, fmt.Errorf("%w: NAME CAPACITY SLOTS [open|closed]", errUsage)
	}
	capacity, err := strconv.Atoi(args[1])
	if err != nil {
		return api.VenueRequest{}, fmt.Errorf("capacity %q: %w", args[1], err)
	}
	req := api.VenueRequest{
		Name:      args[0],
		Capacity:  capacity,
		TimeSlots: splitSlots(args[2]),
		IsOpen:    true,
	}
	if len(args) == 4 {
		switch strings.ToLower(args[3]) {
		case "open":
		case "closed":
			req.IsOpen = false
		default:
			return api.VenueRequest{}, fmt.Errorf("%w: expected open or closed, got %q", errUsage, args[3])
		}
	}
	if rename != "" {
		req.OriginalName = req.Name
		req.Name = rename
	}
	return req, nil
}

func splitSlots(raw string) []string {
	var slots []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			slots = append(slots, s)
		}
	}
	return slots
}

func parseUser(args []string) (api.UserRequest, error) {
	if len(args) < 1 || len(args) > 3 {
		return api.UserRequest{}, fmt.Errorf("%w: USERNAME [SKILL] [admin]", errUsage)
	}
	req := api.UserRequest{Username: args[0], SkillLevel: domain.SkillBeginner}
	for _, arg := range args[1:] {
		if arg == "admin" {
			req.IsAdmin = true
			continue
		}
		level := domain.SkillLevel(strings.ToLower(arg))
		if !level.Valid() {
			return api.UserRequest{}, fmt.Errorf("invalid skill level %q", arg)
		}
		req.SkillLevel = level
	}
	return req, nil
}

// lineNotifier prints notifications one per line.
type lineNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

func (n *lineNotifier) Show(kind notify.Kind, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, _ = fmt.Fprintf(n.out, "%s: %s\n", kind, text)
}

// RunAdmin performs a single admin mutation and exits. The push channel is
// used to announce the change to other clients; when it cannot be reached
// the mutation still goes through REST.
func RunAdmin(ctx context.Context, opts Options, args []string) error {
	cmd, err := parseAdminCommand(args)
	if err != nil {
		return err
	}

	e, err := setup(opts, true)
	if err != nil {
		return err
	}
	defer e.close()
	if e.username == "" {
		return errors.New("admin commands need a username (--user or username in config)")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	notifier := &lineNotifier{out: e.out}
	manager := e.newSession(notifier)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = manager.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	if err := waitConnected(ctx, manager, adminConnectTimeout); err != nil {
		e.logger.Warn("push channel unavailable, change will not be announced", "error", err)
	} else if err := manager.Login(ctx, e.username, true); err != nil {
		e.logger.Warn("admin login failed", "username", e.username, "error", err)
	}

	out := cmd.run(ctx, e.newMutator(notifier, manager), e.username)
	if out.Kind == command.Accepted {
		return nil
	}
	if out.Err != nil {
		return fmt.Errorf("%s: %w", cmd.name, out.Err)
	}
	return fmt.Errorf("%s: %s", cmd.name, out.Kind)
}
