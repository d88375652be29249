package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/kushmahi07/Rentzy-sub001/internal/application"
	"github.com/kushmahi07/Rentzy-sub001/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}
	if err := newApp().Run(context.Background(), args); err != nil {
		logrus.Fatal(err)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "rentzy",
		Usage: "Property back-office server and operator CLI",
		Commands: []*cli.Command{
			serverCommand(),
			seedCommand(),
			authCommand(),
			propertiesCommand(),
			tokenizationCommand(),
			accessCommand(),
			auditCommand(),
		},
	}
}

func stdout(c *cli.Command) io.Writer {
	if root := c.Root(); root != nil && root.Writer != nil {
		return root.Writer
	}
	return os.Stdout
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authentication commands",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Login and store CLI token",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "transport", Value: defaultTransport, Usage: "uds or http"},
					&cli.StringFlag{Name: "server", Value: defaultServer},
					&cli.StringFlag{Name: "socket", Value: defaultSocket},
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true},
					&cli.StringFlag{Name: "token-name", Value: "cli"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg := cliConfig{Transport: c.String("transport"), Server: c.String("server"), Socket: c.String("socket")}
					var out struct {
						Token string `json:"token"`
						Email string `json:"email"`
					}
					if err := doLogin(ctx, cfg, c.String("email"), c.String("password"), c.String("token-name"), &out); err != nil {
						return err
					}
					cfg.Token = out.Token
					if err := saveConfig(cfg); err != nil {
						return err
					}
					_, _ = fmt.Fprintf(stdout(c), "logged in as %s\n", out.Email)
					return nil
				},
			},
			{
				Name:  "whoami",
				Usage: "Show current authenticated user",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out struct {
						ID    uint   `json:"id"`
						Email string `json:"email"`
					}
					if err := doWhoAmI(ctx, cfg, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(stdout(c), out)
					}
					printKV(stdout(c), [][2]string{{"id", uintToString(out.ID)}, {"email", out.Email}})
					return nil
				},
			},
			{
				Name:  "logout",
				Usage: "Clear local CLI auth token",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					_ = doLogout(ctx, cfg)
					cfg.Token = ""
					if err := saveConfig(cfg); err != nil {
						return err
					}
					_, _ = fmt.Fprintln(stdout(c), "logged out")
					return nil
				},
			},
		},
	}
}

func propertiesCommand() *cli.Command {
	return &cli.Command{
		Name:  "properties",
		Usage: "Property registry commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List properties",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "q", Usage: "match name or location"},
					&cli.IntFlag{Name: "limit"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out []domain.Property
					if err := doPropertiesList(ctx, cfg, c.String("q"), int(c.Int("limit")), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(stdout(c), out)
					}
					printProperties(stdout(c), out)
					return nil
				},
			},
			{
				Name:  "get",
				Usage: "Show one property with its token state",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "id", Required: true},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out domain.Property
					if err := doPropertyGet(ctx, cfg, uint(c.Uint("id")), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(stdout(c), out)
					}
					printProperty(stdout(c), out)
					return nil
				},
			},
			{
				Name:  "create",
				Usage: "Register a property",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "location"},
					&cli.StringFlag{Name: "tokenization-status"},
					&cli.StringFlag{Name: "token-sale-status"},
					&cli.StringFlag{Name: "secondary-trading-status"},
					&cli.StringFlag{Name: "minting-status"},
					&cli.Int64Flag{Name: "total-tokens"},
					&cli.Int64Flag{Name: "tokens-issued"},
					&cli.Int64Flag{Name: "tokens-sold"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out domain.Property
					if err := doPropertyCreate(ctx, cfg, createInputFromFlags(c), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(stdout(c), out)
					}
					printProperty(stdout(c), out)
					return nil
				},
			},
		},
	}
}

// createInputFromFlags only sends a token state when at least one token flag
// was given; the server fills the rest with creation defaults.
func createInputFromFlags(c *cli.Command) application.CreatePropertyInput {
	in := application.CreatePropertyInput{Name: c.String("name"), Location: c.String("location")}
	tokenFlags := []string{"tokenization-status", "token-sale-status", "secondary-trading-status", "minting-status", "total-tokens", "tokens-issued", "tokens-sold"}
	for _, name := range tokenFlags {
		if c.IsSet(name) {
			in.Token = &domain.PropertyTokenState{
				TokenizationStatus:     domain.TokenizationStatus(c.String("tokenization-status")),
				TokenSaleStatus:        domain.TokenSaleStatus(c.String("token-sale-status")),
				SecondaryTradingStatus: domain.SecondaryTradingStatus(c.String("secondary-trading-status")),
				MintingStatus:          domain.MintingStatus(c.String("minting-status")),
				TotalTokens:            c.Int64("total-tokens"),
				TokensIssued:           c.Int64("tokens-issued"),
				TokensSold:             c.Int64("tokens-sold"),
			}
			break
		}
	}
	return in
}

func tokenizationCommand() *cli.Command {
	return &cli.Command{
		Name:  "tokenization",
		Usage: "Tokenization lifecycle commands",
		Commands: []*cli.Command{
			{
				Name:  "apply",
				Usage: "Apply a lifecycle action to a property",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "property-id", Required: true},
					&cli.StringFlag{Name: "action", Required: true, Usage: "see `rentzy tokenization actions`"},
					&cli.StringFlag{Name: "reason", Required: true, Usage: "recorded verbatim in the action log"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					action, err := domain.ParseTokenAction(c.String("action"))
					if err != nil {
						return err
					}
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out application.TokenActionResult
					if err := doTokenAction(ctx, cfg, uint(c.Uint("property-id")), string(action), c.String("reason"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(stdout(c), out)
					}
					printActionResult(stdout(c), out)
					return nil
				},
			},
			{
				Name:  "logs",
				Usage: "List admin action log entries",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "property-id"},
					&cli.StringFlag{Name: "action"},
					&cli.IntFlag{Name: "limit"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var propertyID *uint
					if c.IsSet("property-id") {
						v := uint(c.Uint("property-id"))
						propertyID = &v
					}
					var out []domain.AdminActionLogEntry
					if err := doActionLogs(ctx, cfg, propertyID, c.String("action"), int(c.Int("limit")), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(stdout(c), out)
					}
					printActionLogs(stdout(c), out)
					return nil
				},
			},
			{
				Name:  "overview",
				Usage: "Show status counts across all properties",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out domain.TokenizationOverview
					if err := doOverview(ctx, cfg, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(stdout(c), out)
					}
					printOverview(stdout(c), out)
					return nil
				},
			},
			{
				Name:  "actions",
				Usage: "List the lifecycle action names",
				Action: func(ctx context.Context, c *cli.Command) error {
					for _, a := range domain.TokenActions {
						_, _ = fmt.Fprintln(stdout(c), a)
					}
					return nil
				},
			},
		},
	}
}

func accessCommand() *cli.Command {
	return &cli.Command{
		Name:  "access",
		Usage: "Access and users commands",
		Commands: []*cli.Command{
			{
				Name:  "users",
				Usage: "Manage users",
				Commands: []*cli.Command{
					{
						Name:  "list",
						Usage: "List users",
						Flags: []cli.Flag{&cli.StringFlag{Name: "q"}, &cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
						Action: func(ctx context.Context, c *cli.Command) error {
							cfg, err := loadConfig()
							if err != nil {
								return err
							}
							var out []domain.User
							if err := doUsersList(ctx, cfg, c.String("q"), &out); err != nil {
								return err
							}
							if c.Bool("json") {
								return printJSON(stdout(c), out)
							}
							printUsers(stdout(c), out)
							return nil
						},
					},
					{
						Name:  "create",
						Usage: "Create user",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "email", Required: true},
							&cli.StringFlag{Name: "password", Required: true},
							&cli.UintFlag{Name: "role-id"},
							&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
						},
						Action: func(ctx context.Context, c *cli.Command) error {
							cfg, err := loadConfig()
							if err != nil {
								return err
							}
							var out domain.User
							if err := doUsersCreate(ctx, cfg, c.String("email"), c.String("password"), uint(c.Uint("role-id")), &out); err != nil {
								return err
							}
							if c.Bool("json") {
								return printJSON(stdout(c), out)
							}
							printUsers(stdout(c), []domain.User{out})
							return nil
						},
					},
				},
			},
			{
				Name:  "roles",
				Usage: "Manage roles",
				Commands: []*cli.Command{
					{
						Name:  "list",
						Usage: "List roles",
						Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
						Action: func(ctx context.Context, c *cli.Command) error {
							cfg, err := loadConfig()
							if err != nil {
								return err
							}
							var out []domain.Role
							if err := doRolesList(ctx, cfg, &out); err != nil {
								return err
							}
							if c.Bool("json") {
								return printJSON(stdout(c), out)
							}
							printRoles(stdout(c), out)
							return nil
						},
					},
					{
						Name:  "assign",
						Usage: "Assign role to user",
						Flags: []cli.Flag{
							&cli.UintFlag{Name: "user-id", Required: true},
							&cli.UintFlag{Name: "role-id", Required: true},
						},
						Action: func(ctx context.Context, c *cli.Command) error {
							cfg, err := loadConfig()
							if err != nil {
								return err
							}
							if err := doAssignRole(ctx, cfg, uint(c.Uint("user-id")), uint(c.Uint("role-id")), nil); err != nil {
								return err
							}
							_, _ = fmt.Fprintf(stdout(c), "assigned role %d to user %d\n", c.Uint("role-id"), c.Uint("user-id"))
							return nil
						},
					},
				},
			},
		},
	}
}

func auditCommand() *cli.Command {
	return &cli.Command{
		Name:  "audit",
		Usage: "Audit log commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List audit logs",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out []domain.AuditRecord
					if err := doAuditList(ctx, cfg, int(c.Int("limit")), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(stdout(c), out)
					}
					printAuditRecords(stdout(c), out)
					return nil
				},
			},
		},
	}
}
