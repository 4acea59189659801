package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/sudo-init-do/hirfa/internal/auth"
	"github.com/sudo-init-do/hirfa/internal/clock"
	"github.com/sudo-init-do/hirfa/internal/config"
	"github.com/sudo-init-do/hirfa/internal/db"
	"github.com/sudo-init-do/hirfa/internal/logger"
	"github.com/sudo-init-do/hirfa/internal/order"
	"github.com/sudo-init-do/hirfa/internal/storage"
	"github.com/sudo-init-do/hirfa/internal/subscription"
)

// adminutil performs operator tasks against the configured store.
// Usage:
//
//	go run ./cmd/adminutil migrate
//	go run ./cmd/adminutil grant-subscription --email ahmad@example.com --plan yearly
func main() {
	app := &cli.App{
		Name:  "adminutil",
		Usage: "hirfa operator commands",
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "apply pending database migrations",
				Action: migrateAction,
			},
			{
				Name:  "grant-subscription",
				Usage: "activate a catalogue plan for a craftsman",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "plan", Value: "monthly"},
				},
				Action: grantAction,
			},
			{
				Name:  "reputation",
				Usage: "print a craftsman's rating aggregate",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
				},
				Action: reputationAction,
			},
			{
				Name:  "token",
				Usage: "issue an access token for a user",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
				},
				Action: tokenAction,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type env struct {
	cfg     config.Config
	log     *zap.Logger
	backend storage.Backend
	close   func()
}

func open(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(logger.Config{Service: "hirfa-adminutil", Environment: cfg.Environment, Level: "warn", Format: "console"})
	if err != nil {
		return nil, err
	}
	if cfg.Store != config.StorePostgres {
		return nil, fmt.Errorf("adminutil needs STORE=postgres, got %q", cfg.Store)
	}
	backend, closeFn, err := storage.Open(ctx, cfg, false, log)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, backend: backend, close: closeFn}, nil
}

func migrateAction(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(logger.Config{Service: "hirfa-adminutil", Environment: cfg.Environment, Level: "info", Format: "console"})
	if err != nil {
		return err
	}
	return db.Migrate(cfg.DB.DSN(), log)
}

func craftsmanByEmail(ctx context.Context, users auth.UserStore, email string) (auth.User, error) {
	u, err := users.UserByEmail(ctx, email)
	if err != nil {
		return auth.User{}, fmt.Errorf("no user found with email %s: %w", email, err)
	}
	if u.Role != order.RoleCraftsman {
		return auth.User{}, fmt.Errorf("user %s is a %s, not a craftsman", email, u.Role)
	}
	return u, nil
}

func grantAction(c *cli.Context) error {
	e, err := open(c.Context)
	if err != nil {
		return err
	}
	defer e.close()

	plans, err := subscription.LoadCatalogue(e.cfg.PlansFile)
	if err != nil {
		return err
	}
	plan, ok := plans.Plan(c.String("plan"))
	if !ok {
		return fmt.Errorf("unknown plan %q", c.String("plan"))
	}
	u, err := craftsmanByEmail(c.Context, e.backend, c.String("email"))
	if err != nil {
		return err
	}
	sub, err := subscription.NewService(e.backend, clock.System{}, e.log).SubscribePlan(c.Context, u.ID, plan)
	if err != nil {
		return err
	}
	fmt.Printf("Subscription %s (%s) active for %s until %s.\n", sub.Plan, sub.Type, u.Email, sub.EndDate.Format("2006-01-02"))
	return nil
}

func reputationAction(c *cli.Context) error {
	e, err := open(c.Context)
	if err != nil {
		return err
	}
	defer e.close()

	u, err := craftsmanByEmail(c.Context, e.backend, c.String("email"))
	if err != nil {
		return err
	}
	rec, err := e.backend.GetReputation(c.Context, u.ID)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %.2f over %d rated orders\n", u.Email, rec.RatingAverage, rec.CompletedCount)
	return nil
}

func tokenAction(c *cli.Context) error {
	e, err := open(c.Context)
	if err != nil {
		return err
	}
	defer e.close()

	u, err := e.backend.UserByEmail(c.Context, c.String("email"))
	if err != nil {
		return fmt.Errorf("no user found with email %s: %w", c.String("email"), err)
	}
	tok, err := auth.NewTokens(e.cfg.JWTSecret, e.cfg.JWTTTL).Issue(u.ID, u.Role)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}
