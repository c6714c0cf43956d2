// Command gatecheck signs in to the coachgate API and consults the workout
// creation gate the same way an interactive client does.
//
//	gatecheck -email sam@coachgate.local -password customer123 status
//	gatecheck -email sam@coachgate.local -password customer123 create "Leg day"
//	gatecheck -email sam@coachgate.local -password customer123 watch
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"coachgate/internal/cache"
	"coachgate/internal/client"
	"coachgate/internal/config"
	"coachgate/internal/gate"
	"coachgate/internal/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()

	fs := flag.NewFlagSet("gatecheck", flag.ExitOnError)
	apiURL := fs.String("api", cfg.GateAPIURL, "coachgate API base URL")
	email := fs.String("email", os.Getenv("GATE_EMAIL"), "account email")
	password := fs.String("password", os.Getenv("GATE_PASSWORD"), "account password")
	useRedis := fs.Bool("redis", true, "keep the fallback role cache in redis")
	interval := fs.Duration("interval", cfg.GateRefreshInterval, "refresh interval for watch")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: gatecheck [flags] status | create <name> | watch\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])

	if fs.NArg() == 0 || *email == "" {
		fs.Usage()
		return 2
	}

	log := logger.New(cfg.AppEnv)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := client.New(*apiURL)
	user, err := api.Login(ctx, *email, *password)
	if err != nil {
		log.Error().Err(err).Msg("login")
		return 1
	}

	var roleCache gate.RoleCache
	if *useRedis {
		c := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, log)
		defer c.Close()
		if err := c.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, using in-memory role cache")
		} else {
			roleCache = gate.NewRedisRoleCache(c)
		}
	}

	policy := gate.NewPolicy(cfg.CustomerWorkoutLimit)
	refresh := time.Duration(-1)
	if fs.Arg(0) == "watch" {
		refresh = *interval
	}
	store := gate.NewStore(gate.NewChecker(api, roleCache, policy, log), gate.Options{
		RefreshInterval: refresh,
		Policy:          &policy,
		Logger:          log,
		Notifier: gate.NotifierFunc(func(message string) {
			fmt.Fprintln(os.Stderr, message)
		}),
	})
	defer store.Close()

	st := store.SetSession(ctx, user.Session())

	switch fs.Arg(0) {
	case "status":
		printState(st)
		if st.Err != nil {
			return 1
		}
	case "create":
		name := strings.Join(fs.Args()[1:], " ")
		if name == "" {
			fs.Usage()
			return 2
		}
		return create(ctx, api, store, name, log)
	case "watch":
		unsubscribe := store.Subscribe(func(st gate.State) {
			if !st.IsLoading {
				printState(st)
			}
		})
		defer unsubscribe()
		printState(st)
		<-ctx.Done()
		store.Logout()
	default:
		fs.Usage()
		return 2
	}
	return 0
}

// navigation is the create action the gate may cancel.
type navigation struct {
	prevented bool
}

func (n *navigation) PreventDefault() { n.prevented = true }

func create(ctx context.Context, api *client.Client, store *gate.Store, name string, log zerolog.Logger) int {
	nav := &navigation{}
	if store.CheckAndBlockAction(nav) {
		return 1
	}

	w, err := api.CreateWorkout(ctx, name, "")
	if err != nil {
		log.Error().Err(err).Msg("create workout")
		return 1
	}
	fmt.Printf("created workout %s (%s)\n", w.Name, w.ID)

	st := store.ForceRefresh(ctx)
	printState(st)
	return 0
}

func printState(st gate.State) {
	fmt.Printf("user=%s role=%s phase=%s workouts=%d/%s can_create=%t",
		st.UserID, st.UserRole, st.Phase, st.CurrentCount, st.FormattedMaxAllowed(), st.CanCreate)
	if st.Err != nil {
		fmt.Printf(" error=%q", st.Err.Error())
	}
	fmt.Println()
}
