// Command shepherd-admin performs operational tasks against the user
// database: applying migrations, creating and deactivating accounts, and
// seeding dev users.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/parishtech/shepherd/config"
	"github.com/parishtech/shepherd/internal/adapters/postgres"
	"github.com/parishtech/shepherd/internal/bootstrap"
	"github.com/parishtech/shepherd/internal/data/cryptoutil"
	"github.com/parishtech/shepherd/internal/devseed"
	domainauth "github.com/parishtech/shepherd/internal/domain/auth"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	DB     *sql.DB
}

const commandTimeout = 5 * time.Minute

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "apply pending database migrations",
			run:         runMigrate,
		},
		"create-user": {
			name:        "create-user",
			description: "create a user account",
			run:         runCreateUser,
		},
		"deactivate-user": {
			name:        "deactivate-user",
			description: "deactivate a user account",
			run:         runDeactivateUser,
		},
		"seed-dev": {
			name:        "seed-dev",
			description: "seed dev accounts into the user database",
			run:         runSeedDev,
		},
	}
}

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	cmd, ok := commands()[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(2)
	}

	if err := execute(cmd, logger, os.Args[2:]); err != nil {
		logger.Error("command failed", "command", cmd.name, "error", err)
		os.Exit(1)
	}
}

func execute(cmd command, logger *slog.Logger, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}

	db, err := bootstrap.ConnectDB(cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logger.Error("close database failed", "error", cerr)
		}
	}()

	return cmd.run(&commandContext{Ctx: ctx, Logger: logger, Config: cfg, DB: db}, args)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: shepherd-admin <command> [flags]")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "commands:")

	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-18s %s\n", name, cmds[name].description)
	}
}

func runMigrate(ctx *commandContext, _ []string) error {
	return bootstrap.RunMigrations(ctx.Ctx, ctx.DB, ctx.Logger)
}

func runCreateUser(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	username := fs.String("username", "", "login name (required)")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "initial password (required)")
	role := fs.String("role", "member", "role: admin, pastor or member")
	memberID := fs.Int64("member-id", 0, "linked member record id (members only)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *username == "" || *password == "" {
		return errors.New("both -username and -password are required")
	}
	parsedRole, ok := domainauth.ParseRole(*role)
	if !ok {
		return fmt.Errorf("unknown role %q", *role)
	}

	policy := cryptoutil.PasswordPolicy{MinLength: ctx.Config.Auth.PasswordMinLength}
	if err := policy.Validate(*password); err != nil {
		return err
	}
	hash, err := cryptoutil.HashPassword(*password, ctx.Config.Auth.BcryptCost)
	if err != nil {
		return err
	}

	user := domainauth.User{
		Username:     *username,
		Email:        *email,
		PasswordHash: hash,
		Role:         parsedRole,
		Active:       true,
	}
	if *memberID > 0 {
		user.MemberID = memberID
	}

	created, err := postgres.NewUserStore(ctx.DB).Create(ctx.Ctx, user)
	if err != nil {
		return err
	}
	ctx.Logger.Info("user created", "id", created.ID, "username", created.Username, "role", created.Role)
	return nil
}

func runDeactivateUser(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("deactivate-user", flag.ContinueOnError)
	username := fs.String("username", "", "login name (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" {
		return errors.New("-username is required")
	}

	store := postgres.NewUserStore(ctx.DB)
	user, err := store.FindByUsername(ctx.Ctx, *username)
	if err != nil {
		return err
	}
	if err := store.Deactivate(ctx.Ctx, user.ID); err != nil {
		return err
	}
	ctx.Logger.Info("user deactivated", "id", user.ID, "username", user.Username)
	return nil
}

func runSeedDev(ctx *commandContext, _ []string) error {
	if !ctx.Config.IsDev {
		return errors.New("seed-dev requires dev mode (set DEV=true)")
	}
	return devseed.SeedUsers(ctx.Ctx, postgres.NewUserStore(ctx.DB), ctx.Logger)
}
