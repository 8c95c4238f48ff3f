package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/innkeeper/backoffice/internal/console"
	"github.com/innkeeper/backoffice/internal/listing"
	"github.com/innkeeper/backoffice/internal/pages"
	"github.com/innkeeper/backoffice/internal/platform/cache"
	"github.com/innkeeper/backoffice/internal/platform/restclient"
)

// ListOptions select the view printed by the list command.
type ListOptions struct {
	Search   string
	Facets   []string
	Sort     string
	Dir      string
	Page     int
	PageSize int
	Offline  bool
}

// View converts the options; the page number is applied after loading.
func (o ListOptions) View() (console.View, error) {
	v := console.View{
		Sort:     o.Sort,
		Dir:      listing.ParseDirection(o.Dir),
		PageSize: o.PageSize,
	}
	if o.Search != "" {
		term := o.Search
		v.Search = &term
	}
	for _, raw := range o.Facets {
		name, value, ok := strings.Cut(raw, "=")
		if !ok || name == "" {
			return console.View{}, fmt.Errorf("facet %q must look like name=value", raw)
		}
		if v.Facets == nil {
			v.Facets = make(map[string]string)
		}
		v.Facets[name] = value
	}
	if o.PageSize < 0 {
		return console.View{}, fmt.Errorf("page-size must be greater than 0")
	}
	return v, nil
}

// NewListCommand prints one page of a resource as JSON.
func NewListCommand(env *Env) *cobra.Command {
	var opts ListOptions

	cmd := &cobra.Command{
		Use:   "list <resource>",
		Short: "List a back-office resource",
		Long:  "Fetches a resource from the hotel API, falling back to the stored snapshot, and prints the filtered, sorted page as JSON.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := opts.View()
			if err != nil {
				return err
			}
			set, cleanup, err := buildPages(cmd.Context(), env, opts.Offline)
			if err != nil {
				return err
			}
			defer cleanup()

			snapshot, err := listPage(cmd.Context(), set.Catalog, args[0], view, opts.Page)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snapshot)
		},
	}

	cmd.Flags().StringVar(&opts.Search, "search", "", "Search term")
	cmd.Flags().StringArrayVar(&opts.Facets, "facet", nil, "Facet filter as name=value (repeatable)")
	cmd.Flags().StringVar(&opts.Sort, "sort", "", "Sort key")
	cmd.Flags().StringVar(&opts.Dir, "dir", "asc", "Sort direction (asc, desc)")
	cmd.Flags().IntVar(&opts.Page, "page", 1, "Page number")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, "Page size (default from PAGE_SIZE)")
	cmd.Flags().BoolVar(&opts.Offline, "offline", false, "Skip Redis snapshots")

	return cmd
}

// listPage loads name once with view applied and returns the requested page.
func listPage(ctx context.Context, catalog *console.Catalog, name string, view console.View, page int) (any, error) {
	p, err := catalog.Build(name)
	if err != nil {
		return nil, fmt.Errorf("%w (known: %s)", err, strings.Join(catalog.Names(), ", "))
	}
	defer p.Close()

	if err := p.Apply(view); err != nil {
		return nil, err
	}
	if state, err := p.Load(ctx); err != nil && state != listing.LoadedWithFallback {
		return nil, err
	}
	if page > 1 {
		if err := p.Apply(console.View{Page: page}); err != nil {
			return nil, err
		}
	}
	return p.Snapshot(), nil
}

func buildPages(ctx context.Context, env *Env, offline bool) (*pages.Set, func(), error) {
	cfg := env.Config
	client, err := restclient.NewClient(cfg.APIBaseURL,
		restclient.WithTimeout(cfg.APITimeout),
		restclient.WithLogger(env.Logger),
	)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {}
	var rc *redis.Client
	if !offline {
		if rc, err = cache.New(ctx, cfg.RedisAddr); err != nil {
			env.Logger.Warn("redis unavailable, snapshots disabled", slog.Any("error", err))
			rc = nil
		} else {
			cleanup = func() { _ = rc.Close() }
		}
	}

	set := pages.New(pages.Deps{
		Client:      client,
		Redis:       rc,
		SnapshotTTL: cfg.SnapshotTTL,
		PageSize:    cfg.PageSize,
		Logger:      env.Logger,
	})
	return set, cleanup, nil
}
