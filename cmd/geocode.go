package main

import (
	"encoding/json"
	"io"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/cannabis-pipeline/pkg/geocode"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode <address | lat,lng>",
	Short: "Geocode one address or coordinate pair",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("geocode"); err != nil {
			return err
		}
		reverse, _ := cmd.Flags().GetBool("reverse")
		query := strings.Join(args, " ")

		client := newGeocoder(nil)
		var res geocode.Result
		if reverse {
			lat, lng, err := parseLatLng(query)
			if err != nil {
				return err
			}
			res = client.Reverse(ctx, lat, lng)
		} else {
			res = client.Forward(ctx, query)
		}

		return writeGeocodeResult(cmd.OutOrStdout(), query, res)
	},
}

func init() {
	geocodeCmd.Flags().Bool("reverse", false, "treat the argument as \"lat,lng\" and look up its postal code")
	rootCmd.AddCommand(geocodeCmd)
}

func parseLatLng(s string) (lat, lng float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, eris.Errorf("expected \"lat,lng\", got %q", s)
	}
	if lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64); err != nil {
		return 0, 0, eris.Wrapf(err, "parse latitude %q", parts[0])
	}
	if lng, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err != nil {
		return 0, 0, eris.Wrapf(err, "parse longitude %q", parts[1])
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return 0, 0, eris.Errorf("coordinates out of range: %v,%v", lat, lng)
	}
	return lat, lng, nil
}

type geocodeOutput struct {
	Query      string   `json:"query"`
	Status     string   `json:"status"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	PostalCode string   `json:"postal_code,omitempty"`
	Error      string   `json:"error,omitempty"`
}

func writeGeocodeResult(w io.Writer, query string, res geocode.Result) error {
	out := geocodeOutput{
		Query:      query,
		Status:     res.Status.String(),
		Latitude:   res.Latitude,
		Longitude:  res.Longitude,
		PostalCode: res.PostalCode,
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
