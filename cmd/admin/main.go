package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	appauth "github.com/placeintern/backend/internal/app/auth"
	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/app/models/dto"
	"github.com/placeintern/backend/internal/bootstrap"
	"github.com/placeintern/backend/internal/config"
	"github.com/placeintern/backend/internal/pkg/helpers"
	"github.com/placeintern/backend/internal/pkg/logger"
	"github.com/placeintern/backend/internal/seed"
)

// operator is the actor used for changes made from the command line
var operator = appauth.Actor{Role: models.RoleSystemAdmin}

func main() {
	app := &cli.App{
		Name:  "placeintern-admin",
		Usage: "operational commands for the PlaceIntern backend",
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "apply pending database migrations",
				Action: runMigrate,
			},
			{
				Name:   "seed",
				Usage:  "create the default institution and administrator",
				Action: runSeed,
			},
			{
				Name:  "create-user",
				Usage: "create a principal, faculty supervisor, state officer or administrator",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "role", Required: true, Usage: "PRINCIPAL, FACULTY_SUPERVISOR, STATE_DIRECTORATE or SYSTEM_ADMIN"},
					&cli.Int64Flag{Name: "institution", Usage: "institution ID for institution scoped roles"},
					&cli.StringFlag{Name: "first-name", Value: "New"},
					&cli.StringFlag{Name: "last-name", Value: "User"},
					&cli.StringFlag{Name: "password", Usage: "initial password, generated when empty"},
				},
				Action: runCreateUser,
			},
			{
				Name:  "assign-mentors",
				Usage: "balance unassigned students across faculty supervisors",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "institution", Required: true},
					&cli.StringFlag{Name: "year", Required: true, Usage: "academic year, e.g. 2024-25"},
					&cli.Int64Flag{Name: "branch", Usage: "limit to one branch"},
				},
				Action: runAssignMentors,
			},
			{
				Name:  "jobs",
				Usage: "show job queue status",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "failed", Usage: "also list failed jobs"},
					&cli.DurationFlag{Name: "purge", Usage: "delete completed jobs older than this age"},
				},
				Action: runJobs,
			},
			{
				Name:  "purge",
				Usage: "delete generated reports past the configured retention",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "older-than", Usage: "override reports.retention"},
				},
				Action: runPurge,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		color.Red("error: %v", err)
		logger.FlushRollbar()
		os.Exit(1)
	}
}

type environment struct {
	cfg  *config.Config
	deps *bootstrap.Dependencies
	stop func()
}

// open loads configuration, connects to the database and wires the services
func open() (*environment, error) {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger()
	if err != nil {
		return nil, err
	}
	pool, err := bootstrap.ConnectDatabase(cfg, lgr)
	if err != nil {
		return nil, err
	}
	deps, err := bootstrap.BuildDependencies(cfg, pool, lgr)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &environment{cfg: cfg, deps: deps, stop: pool.Close}, nil
}

func runMigrate(c *cli.Context) error {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger()
	if err != nil {
		return err
	}
	pool, err := bootstrap.ConnectDatabase(cfg, lgr)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := bootstrap.RunMigrations(c.Context, cfg, pool, lgr); err != nil {
		return err
	}
	color.Green("Migrations applied")
	return nil
}

func runSeed(c *cli.Context) error {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger()
	if err != nil {
		return err
	}
	pool, err := bootstrap.ConnectDatabase(cfg, lgr)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := seed.CreateDefaultData(c.Context, pool, cfg.Seed, lgr); err != nil {
		return err
	}
	color.Green("Default data ready")
	return nil
}

func runCreateUser(c *cli.Context) error {
	env, err := open()
	if err != nil {
		return err
	}
	defer env.stop()

	req := &dto.CreateUserRequest{
		Email:     c.String("email"),
		FirstName: c.String("first-name"),
		LastName:  c.String("last-name"),
		RoleType:  models.RoleType(c.String("role")),
		Password:  c.String("password"),
	}
	if id := c.Int64("institution"); id > 0 {
		req.InstitutionID = &id
	}

	created, err := env.deps.UserService.CreateUser(c.Context, operator, req)
	if err != nil {
		return err
	}

	color.Green("Created %s %s (id %d)", created.User.RoleType, created.User.Email, created.User.ID)
	if created.TemporaryPassword != "" {
		color.Yellow("Temporary password: %s", created.TemporaryPassword)
	}
	return nil
}

func runAssignMentors(c *cli.Context) error {
	env, err := open()
	if err != nil {
		return err
	}
	defer env.stop()

	req := &dto.AutoAssignRequest{AcademicYear: c.String("year")}
	if id := c.Int64("branch"); id > 0 {
		req.BranchID = &id
	}

	result, err := env.deps.MentorService.AutoAssign(c.Context, operator, c.Int64("institution"), req)
	if err != nil {
		return err
	}

	color.Cyan("\nAuto-assignment for %s", req.AcademicYear)
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Mentor ID", "Name", "Before", "After", "Capacity"})
	for _, m := range result.PerMentor {
		table.Append([]string{
			strconv.FormatInt(m.MentorID, 10),
			m.Name,
			strconv.Itoa(m.Before),
			strconv.Itoa(m.After),
			strconv.Itoa(m.MaxMentees),
		})
	}
	table.Render()

	color.Green("Assigned: %d", result.Assigned)
	if result.Skipped > 0 {
		color.Yellow("Left unassigned: %d %v", result.Skipped, result.Unassigned)
	}
	return nil
}

func runJobs(c *cli.Context) error {
	env, err := open()
	if err != nil {
		return err
	}
	defer env.stop()

	ctx := c.Context
	jobs := env.deps.JobService

	if age := c.Duration("purge"); age > 0 {
		n, err := jobs.Purge(ctx, age)
		if err != nil {
			return err
		}
		color.Green("Purged %d completed jobs", n)
	}

	stats, err := jobs.Stats(ctx)
	if err != nil {
		return err
	}
	printStats(stats)

	if c.Bool("failed") {
		return printFailed(ctx, env)
	}
	return nil
}

func runPurge(c *cli.Context) error {
	env, err := open()
	if err != nil {
		return err
	}
	defer env.stop()

	age := c.Duration("older-than")
	if age <= 0 {
		age = helpers.ParseDuration(env.cfg.Reports.Retention, 30*24*time.Hour)
	}
	n, err := env.deps.ReportService.PurgeExpired(c.Context, age)
	if err != nil {
		return err
	}
	color.Green("Purged %d reports older than %s", n, age)
	return nil
}

func printStats(stats *dto.JobStatsResponse) {
	color.Yellow("\nJob queues")
	statuses := []models.JobStatus{models.JobPending, models.JobActive, models.JobCompleted, models.JobFailed}

	header := []string{"Queue"}
	for _, st := range statuses {
		header = append(header, string(st))
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)

	queues := make([]string, 0, len(stats.Queues))
	for q := range stats.Queues {
		queues = append(queues, q)
	}
	sort.Strings(queues)
	for _, q := range queues {
		row := []string{q}
		for _, st := range statuses {
			row = append(row, strconv.FormatInt(stats.Queues[q][string(st)], 10))
		}
		table.Append(row)
	}
	table.Render()
}

func printFailed(ctx context.Context, env *environment) error {
	items, total, err := env.deps.JobService.List(ctx, "", models.JobFailed, 1, 50)
	if err != nil {
		return err
	}

	color.Red("\nFailed jobs (%d)", total)
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Queue", "Type", "Attempts", "Finalized", "Last error"})
	for _, j := range items {
		lastErr := ""
		if j.LastError != nil {
			lastErr = *j.LastError
		}
		finalized := ""
		if j.FinalizedAt != nil {
			finalized = j.FinalizedAt.Format(time.RFC3339)
		}
		table.Append([]string{
			strconv.FormatInt(j.ID, 10),
			j.Queue,
			j.JobType,
			fmt.Sprintf("%d/%d", j.Attempts, j.MaxAttempts),
			finalized,
			lastErr,
		})
	}
	table.Render()
	return nil
}
