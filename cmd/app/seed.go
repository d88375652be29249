package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	sqliteadapter "github.com/kushmahi07/Rentzy-sub001/internal/adapters/db/sqlite"
	"github.com/kushmahi07/Rentzy-sub001/internal/application"
	"github.com/kushmahi07/Rentzy-sub001/internal/config"
	"github.com/kushmahi07/Rentzy-sub001/internal/domain"
	"github.com/kushmahi07/Rentzy-sub001/internal/platform/logging"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// seedFile is the YAML document accepted by `rentzy seed`.
type seedFile struct {
	Properties []application.CreatePropertyInput `yaml:"properties"`
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Load properties from a YAML file straight into the database",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Required: true, Usage: "YAML seed file"},
			&cli.StringFlag{Name: "db-path", Usage: "SQLite database path (RENTZY_DB)"},
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if c.IsSet("db-path") {
				cfg.DBPath = c.String("db-path")
			}
			log, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
			if err != nil {
				return err
			}

			f, err := os.Open(c.String("file"))
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			seed, err := decodeSeed(f)
			if err != nil {
				return err
			}

			db, err := sqliteadapter.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() {
				if sqlDB, err := db.DB(); err == nil {
					_ = sqlDB.Close()
				}
			}()
			if err := sqliteadapter.RunMigrations(ctx, db); err != nil {
				return err
			}
			service := application.NewBackofficeService(
				sqliteadapter.NewAccessRepository(db),
				sqliteadapter.NewPropertyRepository(db),
				application.WithLogger(log),
			)

			created, err := applySeed(ctx, service, seed, log)
			if err != nil {
				return err
			}
			w := stdout(c)
			if c.Bool("json") {
				return printJSON(w, created)
			}
			printProperties(w, created)
			return nil
		},
	}
}

func decodeSeed(r io.Reader) (seedFile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var out seedFile
	if err := dec.Decode(&out); err != nil {
		if errors.Is(err, io.EOF) {
			return seedFile{}, nil
		}
		return seedFile{}, fmt.Errorf("decode seed: %w", err)
	}
	return out, nil
}

// applySeed creates every property whose name is not registered yet, so the
// same file can be loaded twice.
func applySeed(ctx context.Context, service *application.BackofficeService, seed seedFile, log logrus.FieldLogger) ([]domain.Property, error) {
	created := make([]domain.Property, 0, len(seed.Properties))
	for i, in := range seed.Properties {
		name := strings.TrimSpace(in.Name)
		exists, err := propertyNamed(ctx, service, name)
		if err != nil {
			return created, err
		}
		if exists {
			log.WithField("name", name).Info("seed: property exists, skipping")
			continue
		}
		p, err := service.CreateProperty(ctx, nil, in)
		if err != nil {
			return created, fmt.Errorf("seed property %d (%q): %w", i+1, name, err)
		}
		created = append(created, p)
	}
	return created, nil
}

func propertyNamed(ctx context.Context, service *application.BackofficeService, name string) (bool, error) {
	if name == "" {
		return false, nil
	}
	_, err := service.FindPropertyByName(ctx, name)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}
