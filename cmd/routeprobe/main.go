// Command routeprobe plans a single route with the configured provider and
// prints the result.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"backend-bikerental/internal/config"
	"backend-bikerental/internal/format"
	"backend-bikerental/internal/route"
	"backend-bikerental/internal/shared/geo"

	"github.com/kr/pretty"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, config.Load()); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, args []string, out io.Writer, cfg config.Config) error {
	fs := flag.NewFlagSet("routeprobe", flag.ContinueOnError)
	fs.SetOutput(out)
	from := fs.String("from", "", "origin as lat,lng")
	to := fs.String("to", "", "destination as lat,lng")
	mode := fs.String("mode", string(route.ModeBicycling), "bicycling, walking or driving")
	alternatives := fs.Bool("alternatives", false, "request alternative routes")
	live := fs.Bool("live", cfg.Production(), "call the provider outside production")
	timeout := fs.Duration("timeout", 30*time.Second, "overall deadline")
	verbose := fs.Bool("v", false, "dump the full result")
	if err := fs.Parse(args); err != nil {
		return err
	}

	origin, err := parsePoint(*from)
	if err != nil {
		return fmt.Errorf("-from: %w", err)
	}
	destination, err := parsePoint(*to)
	if err != nil {
		return fmt.Errorf("-to: %w", err)
	}

	if *live {
		cfg.AppEnv = "production"
	}
	planner := route.FromConfig(cfg, nil)

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	res, err := planner.Plan(ctx, route.Request{
		Origin:       origin,
		Destination:  destination,
		Mode:         route.Mode(*mode),
		Alternatives: *alternatives,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "source=%s provider=%s", res.Source, res.Provider)
	if res.Reason != "" {
		fmt.Fprintf(out, " reason=%q", res.Reason)
	}
	fmt.Fprintln(out)
	for i, r := range res.Routes {
		fmt.Fprintf(out, "route %d: %s, %s, %d steps, eta %s\n", i, r.Distance, r.Duration, len(r.Steps),
			format.ETA(time.Duration(r.DurationSeconds)*time.Second))
	}
	if *verbose {
		pretty.Fprintf(out, "%# v\n", res)
	}
	return nil
}

func parsePoint(s string) (geo.Point, error) {
	lat, lng, ok := strings.Cut(s, ",")
	if !ok {
		return geo.Point{}, fmt.Errorf("want lat,lng, got %q", s)
	}
	var p geo.Point
	var err error
	if p.Lat, err = strconv.ParseFloat(strings.TrimSpace(lat), 64); err != nil {
		return geo.Point{}, err
	}
	if p.Lng, err = strconv.ParseFloat(strings.TrimSpace(lng), 64); err != nil {
		return geo.Point{}, err
	}
	if !geo.ValidCoordinate(p) {
		return geo.Point{}, fmt.Errorf("coordinate out of range: %q", s)
	}
	return p, nil
}
