package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"astro-persona-api/internal/application/chart"
	"astro-persona-api/internal/domain/entity"
	"astro-persona-api/internal/wire"
)

type chartFlags struct {
	date     string
	clock    string
	tz       string
	place    string
	lat      float64
	lon      float64
	houses   string
	jsonOut  bool
	hasCoord bool
}

var chartOpts chartFlags

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Compute a natal chart",
	Example: `  chartctl chart --date 1990-07-15 --time 14:30 --tz Europe/Paris
  chartctl chart --date 1990-07-15 --lat 48.85 --lon 2.35 --houses ascendant`,
	RunE: runChart,
}

func init() {
	f := chartCmd.Flags()
	f.StringVar(&chartOpts.date, "date", "", "birth date YYYY-MM-DD")
	f.StringVar(&chartOpts.clock, "time", "", "birth time HH:MM[:SS], defaults to 00:00")
	f.StringVar(&chartOpts.tz, "tz", "", "IANA time zone of the birth time")
	f.StringVar(&chartOpts.place, "place", "", "birth place, resolved through the geocoder")
	f.Float64Var(&chartOpts.lat, "lat", 0, "birth latitude")
	f.Float64Var(&chartOpts.lon, "lon", 0, "birth longitude")
	f.StringVar(&chartOpts.houses, "houses", "", "house system: sun or ascendant")
	f.BoolVar(&chartOpts.jsonOut, "json", false, "print JSON instead of a table")
	_ = chartCmd.MarkFlagRequired("date")
}

func runChart(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if chartOpts.houses != "" {
		cfg.Chart.HouseSystem = chartOpts.houses
	}
	chartOpts.hasCoord = cmd.Flags().Changed("lat") && cmd.Flags().Changed("lon")

	in, err := chartOpts.birthInput()
	if err != nil {
		return err
	}

	calc, err := wire.ProvideCalculator(cfg, wire.ProvideGeocoder(cfg))
	if err != nil {
		return err
	}
	birthChart, err := calc.Compute(cmd.Context(), in)
	if err != nil {
		return err
	}

	summary := chart.Summarize(birthChart)
	if chartOpts.jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	return printSummary(cmd.OutOrStdout(), summary)
}

func (f *chartFlags) birthInput() (*entity.BirthInput, error) {
	year, month, day, err := parseDate(f.date)
	if err != nil {
		return nil, err
	}
	in := &entity.BirthInput{
		Year:     year,
		Month:    month,
		Day:      day,
		Timezone: f.tz,
		Place:    strings.TrimSpace(f.place),
	}
	if f.clock != "" {
		in.Hour, in.Minute, in.Second, err = parseClock(f.clock)
		if err != nil {
			return nil, err
		}
	}
	if f.hasCoord {
		in.Location = &entity.Location{Latitude: f.lat, Longitude: f.lon}
	}
	return in, nil
}

// parseDate YYYY-MM-DD，范围校验交给计算器
func parseDate(s string) (year, month, day int, err error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		if nums[i], err = strconv.Atoi(p); err != nil {
			return 0, 0, 0, fmt.Errorf("invalid date %q: %w", s, err)
		}
	}
	return nums[0], nums[1], nums[2], nil
}

// parseClock HH:MM 或 HH:MM:SS
func parseClock(s string) (hour, minute, second *int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return nil, nil, nil, fmt.Errorf("invalid time %q, expected HH:MM[:SS]", s)
	}
	out := make([]*int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("invalid time %q: %w", s, err)
		}
		out[i] = &n
	}
	return out[0], out[1], out[2], nil
}

func printSummary(w io.Writer, s *chart.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "PLANET\tDEG\tSIGN\tHOUSE\tMOTION\n")
	for _, p := range s.Planets {
		motion := "direct"
		if p.Retrograde {
			motion = "retrograde"
		}
		fmt.Fprintf(tw, "%s\t%.4f\t%s\t%d\t%s\n", p.Planet, p.Deg, p.Sign, p.House, motion)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nhouse system: %s", s.HouseSystem)
	if s.Ascendant != "" {
		fmt.Fprintf(w, " (ascendant %s)", s.Ascendant)
	}
	fmt.Fprintln(w)
	return nil
}
