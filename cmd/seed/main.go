package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"coachgate/internal/config"
	"coachgate/internal/db"
	"coachgate/internal/logger"
	"coachgate/internal/model"
	"coachgate/internal/repository"
	"coachgate/internal/roles"
	"coachgate/internal/service"
)

//go:embed seed.json
var defaultSeed []byte

// SeedData is the seed file layout. Users are referenced by email.
type SeedData struct {
	Users []struct {
		Email    string   `json:"email"`
		Name     string   `json:"name"`
		Password string   `json:"password"`
		Roles    []string `json:"roles"`
	} `json:"users"`
	Assignments []struct {
		Coach    string `json:"coach"`
		Customer string `json:"customer"`
	} `json:"assignments"`
	Workouts []struct {
		Owner     string `json:"owner"`
		CreatedBy string `json:"created_by"`
		Name      string `json:"name"`
		Status    string `json:"status"`
	} `json:"workouts"`
}

func main() {
	source := flag.String("source", "", "seed file path or http(s) URL; the built-in demo data when empty")
	flag.Parse()

	cfg := config.Load()
	log := logger.New(cfg.AppEnv)
	log.Info().Msg("starting seed")

	raw, err := loadSeed(*source)
	if err != nil {
		log.Fatal().Err(err).Msg("load seed data")
	}
	var data SeedData
	if err := json.Unmarshal(raw, &data); err != nil {
		log.Fatal().Err(err).Msg("parse seed data")
	}

	gormDB, err := db.NewMySQL(cfg.MySQLDSN, false)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	if err := db.Migrate(gormDB, cfg.ResetDB, log); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	s := &seeder{
		users:       repository.NewUserRepository(gormDB),
		workouts:    repository.NewWorkoutRepository(gormDB),
		assignments: repository.NewAssignmentRepository(gormDB),
		byEmail:     make(map[string]*model.User),
		log:         log,
	}
	if err := s.run(context.Background(), &data); err != nil {
		log.Fatal().Err(err).Msg("seed")
	}
}

// loadSeed reads seed data from a URL, a file or the embedded default.
func loadSeed(source string) ([]byte, error) {
	switch {
	case source == "":
		return defaultSeed, nil
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		resp, err := http.Get(source)
		if err != nil {
			return nil, fmt.Errorf("fetch seed: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("seed source returned status code: %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	default:
		return os.ReadFile(source)
	}
}

type seeder struct {
	users       repository.UserRepository
	workouts    repository.WorkoutRepository
	assignments repository.AssignmentRepository
	byEmail     map[string]*model.User
	log         zerolog.Logger
}

func (s *seeder) run(ctx context.Context, data *SeedData) error {
	var created, updated int
	for _, u := range data.Users {
		list, err := roles.ParseList(u.Roles)
		if err != nil {
			return fmt.Errorf("user %s: %w", u.Email, err)
		}
		hash, err := service.HashPassword(u.Password)
		if err != nil {
			return err
		}
		email := strings.ToLower(u.Email)

		existing, err := s.users.FindByEmail(ctx, email)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("error checking user %s: %w", email, err)
		}
		if existing != nil {
			existing.Name = u.Name
			existing.PasswordHash = hash
			existing.Roles = list
			existing.Active = true
			if err := s.users.Update(ctx, existing); err != nil {
				return fmt.Errorf("error updating user %s: %w", email, err)
			}
			s.byEmail[email] = existing
			updated++
			continue
		}

		user := &model.User{Email: email, Name: u.Name, PasswordHash: hash, Roles: list, Active: true}
		if err := s.users.Create(ctx, user); err != nil {
			return fmt.Errorf("error creating user %s: %w", email, err)
		}
		s.byEmail[email] = user
		created++
	}

	assigned := 0
	for _, a := range data.Assignments {
		coach, customer, err := s.pair(a.Coach, a.Customer)
		if err != nil {
			return err
		}
		exists, err := s.assignments.Exists(ctx, coach.ID, customer.ID)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := s.assignments.Create(ctx, &model.CoachAssignment{CoachID: coach.ID, CustomerID: customer.ID}); err != nil {
			return fmt.Errorf("assign %s to %s: %w", coach.Email, customer.Email, err)
		}
		assigned++
	}

	workouts := 0
	for _, w := range data.Workouts {
		owner, creator, err := s.pair(w.Owner, w.CreatedBy)
		if err != nil {
			return err
		}
		status := model.WorkoutStatus(w.Status)
		if status == "" {
			status = model.WorkoutStatusActive
		}
		if !status.Valid() {
			return fmt.Errorf("workout %q: unknown status %q", w.Name, w.Status)
		}
		workout := &model.Workout{OwnerID: owner.ID, CreatedByID: creator.ID, Name: w.Name, Status: status}
		if err := s.workouts.Create(ctx, workout); err != nil {
			return fmt.Errorf("create workout %q: %w", w.Name, err)
		}
		workouts++
	}

	s.log.Info().
		Int("users_created", created).
		Int("users_updated", updated).
		Int("assignments", assigned).
		Int("workouts", workouts).
		Msg("seed completed")
	return nil
}

func (s *seeder) pair(a, b string) (*model.User, *model.User, error) {
	first, ok := s.byEmail[strings.ToLower(a)]
	if !ok {
		return nil, nil, fmt.Errorf("unknown seed user %s", a)
	}
	second, ok := s.byEmail[strings.ToLower(b)]
	if !ok {
		return nil, nil, fmt.Errorf("unknown seed user %s", b)
	}
	return first, second, nil
}
