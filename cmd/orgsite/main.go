// Command orgsite resolves one organization's canonical homepage from the
// command line and prints the outcome.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/grantscope/orgsite/internal/agent"
	"github.com/grantscope/orgsite/internal/fetch"
	"github.com/grantscope/orgsite/internal/resolver"
	"github.com/grantscope/orgsite/internal/resolver/aggregate"
	"github.com/grantscope/orgsite/internal/resolver/blocklist"
	"github.com/grantscope/orgsite/internal/resolver/cache"
	"github.com/grantscope/orgsite/internal/resolver/validate"
	"github.com/grantscope/orgsite/internal/search"
	"github.com/grantscope/orgsite/internal/store"
	"github.com/grantscope/orgsite/pkg/config"
	"github.com/grantscope/orgsite/pkg/logger"
	"github.com/grantscope/orgsite/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	ein := flag.String("ein", "", "EIN hint for the fallback agent")
	city := flag.String("city", "", "city hint for the fallback agent")
	address := flag.String("address", "", "address hint for the fallback agent")
	contact := flag.String("contact", "", "contact hint for the fallback agent")
	asJSON := flag.Bool("json", false, "print the result as JSON")
	noAgent := flag.Bool("no-agent", false, "skip the AI fallback agent")
	flag.Parse()

	name := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if name == "" {
		fmt.Fprintln(os.Stderr, "usage: orgsite [flags] <organization name>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup("error", "text")

	ctx := context.Background()

	durable, err := store.NewFileStore(cfg.Store.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer durable.Close()

	blocked := blocklist.New(cfg.Blocklist.Domains)
	m := metrics.New()
	resolvedCache := cache.New(durable, blocked, m)
	backend := search.Select(cfg.Search, m)
	fetcher := fetch.New(cfg.Resolver.FetchTimeout, cfg.Resolver.MaxFetchBodyBytes)
	validator := validate.New(fetcher, cfg.Resolver.OverlapThreshold, cfg.Resolver.DisqualifyMarkers, cfg.Resolver.ValidationWorkers)
	aggregator := aggregate.New(backend, cfg.Search.MaxResults, cfg.Resolver.MaxCandidates)

	var fallback *agent.Agent
	if cfg.Agent.APIKey != "" && !*noAgent {
		fallback = agent.New(agent.NewClient(cfg.Agent), backend, validator, agent.Config{
			MaxIterations:   cfg.Agent.MaxIterations,
			Budget:          cfg.Agent.Budget,
			PromptVariation: cfg.Agent.PromptVariation,
		})
	}

	res := resolver.New(resolvedCache, aggregator, validator, blocked, fallback, m, nil, cfg.Resolver)

	hints := &agent.Hints{Name: name, EIN: *ein, City: *city, Address: *address, Contact: *contact}
	result, err := res.Resolve(ctx, name, hints)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		out := map[string]any{
			"name":    name,
			"url":     result.URL,
			"success": result.Resolved,
		}
		if result.Resolved {
			out["source"] = string(result.Source)
			out["confidence"] = string(result.Confidence)
			out["cache_hit"] = result.CacheHit
		} else {
			out["message"] = result.Reason
		}
		json.NewEncoder(os.Stdout).Encode(out)
	} else if result.Resolved {
		fmt.Printf("%s\t%s (%s, %s confidence)\n", name, result.URL, result.Source, result.Confidence)
	} else {
		fmt.Printf("%s\tnot found: %s\n", name, result.Reason)
	}

	if !result.Resolved {
		os.Exit(1)
	}
}
