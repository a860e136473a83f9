package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/amarpathagar/pathagar-server/internal/di/providers"
	"github.com/amarpathagar/pathagar-server/internal/domain"
	"github.com/amarpathagar/pathagar-server/internal/service"
)

// seedFile is the catalog import format:
//
//	books:
//	  - title: Gitanjali
//	    author: Rabindranath Tagore
//	    physical_code: AP-0001
//	    tags: [poetry]
type seedFile struct {
	Books []seedBook `yaml:"books"`
}

type seedBook struct {
	Title          string   `yaml:"title"`
	Author         string   `yaml:"author"`
	ISBN           string   `yaml:"isbn"`
	PhysicalCode   string   `yaml:"physical_code"`
	Category       string   `yaml:"category"`
	Description    string   `yaml:"description"`
	CoverURL       string   `yaml:"cover_url"`
	Tags           []string `yaml:"tags"`
	MaxReadingDays int      `yaml:"max_reading_days"`
}

// parseSeed reads a seed file into create requests.
func parseSeed(r io.Reader) ([]service.CreateBookRequest, error) {
	var file seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	if len(file.Books) == 0 {
		return nil, errors.New("seed file lists no books")
	}

	reqs := make([]service.CreateBookRequest, 0, len(file.Books))
	for _, b := range file.Books {
		reqs = append(reqs, service.CreateBookRequest{
			Title:          b.Title,
			Author:         b.Author,
			ISBN:           b.ISBN,
			PhysicalCode:   b.PhysicalCode,
			Category:       b.Category,
			Description:    b.Description,
			CoverURL:       b.CoverURL,
			Tags:           b.Tags,
			MaxReadingDays: b.MaxReadingDays,
		})
	}
	return reqs, nil
}

func newSeedCommand(opts *rootOptions) *cobra.Command {
	var (
		path  string
		admin string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import books from a YAML file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			reqs, err := parseSeed(f)
			if err != nil {
				return err
			}

			return opts.withContainer(func(injector do.Injector) error {
				ctx := context.Background()
				st := do.MustInvoke[*providers.StoreHandle](injector)
				books := do.MustInvoke[*service.BookService](injector)

				user, err := st.GetUserByLogin(ctx, admin)
				if err != nil {
					return fmt.Errorf("look up %q: %w", admin, err)
				}
				if user.Role != domain.RoleAdmin {
					return fmt.Errorf("%s is not an admin", user.Username)
				}

				result, err := books.BatchImport(ctx, user.ID, reqs)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Imported %d of %d books\n", len(result.Created), len(reqs))
				for _, failure := range result.Failed {
					fmt.Fprintf(out, "  skipped #%d %s: %s\n", failure.Index+1, failure.PhysicalCode, failure.Error)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&path, "file", "f", "", "YAML file listing the books")
	cmd.Flags().StringVar(&admin, "admin", "", "Username or email of the admin recorded as creator")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("admin")
	return cmd
}
