package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/albertnahas/booker-agent/internal/agent"
	"github.com/albertnahas/booker-agent/internal/booking"
	"github.com/albertnahas/booker-agent/internal/config"
)

// newBookCmd runs a single booking synchronously through the agent,
// without the API or the job store. Useful for smoke-testing a worker.
func newBookCmd() *cobra.Command {
	var (
		req     booking.Request
		lat     float64
		lon     float64
		timeout time.Duration
	)

	c := &cobra.Command{
		Use:   "book",
		Short: "Run one booking through the agent and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.AgentURL == "" {
				return fmt.Errorf("AGENT_URL is required")
			}

			if cmd.Flags().Changed("latitude") && cmd.Flags().Changed("longitude") {
				req.Latitude = &lat
				req.Longitude = &lon
			}
			req.ApplyDefaults(time.Now(), cfg.DefaultModel)
			if err := req.Validate(); err != nil {
				return err
			}

			if req.TestMode {
				fmt.Fprintln(os.Stderr, "Running in TEST MODE - will only collect restaurant information without booking")
			}

			client := agent.New(agent.Options{
				BaseURL:    cfg.AgentURL,
				Token:      cfg.AgentToken,
				GeocodeURL: cfg.GeocodeURL,
			})

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			res, err := client.Execute(ctx, req)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, string(out))
			return nil
		},
	}

	c.Flags().StringVar(&req.City, "city", "Amsterdam", "city for restaurant search")
	c.Flags().StringVar(&req.Date, "date", "", "booking date YYYY-MM-DD (defaults to tomorrow)")
	c.Flags().StringVar(&req.Time, "time", "", "booking time HH:MM (defaults to 18:00)")
	c.Flags().IntVar(&req.PartySize, "party-size", 0, "number of people (defaults to 2)")
	c.Flags().StringVar(&req.Purpose, "purpose", "", "purpose of the reservation (defaults to dinner)")
	c.Flags().StringVar(&req.Model, "model", "", "LLM model selector (defaults to DEFAULT_MODEL)")
	c.Flags().BoolVar(&req.TestMode, "test", false, "collect restaurant info without confirming the booking")
	c.Flags().StringVar(&req.RestaurantName, "restaurant-name", "", "specific restaurant to search for")
	c.Flags().StringVar(&req.FirstName, "first-name", "", "first name for the reservation")
	c.Flags().StringVar(&req.LastName, "last-name", "", "last name for the reservation")
	c.Flags().StringVar(&req.Email, "email", "", "email for the reservation")
	c.Flags().StringVar(&req.PhoneNumber, "phone-number", "", "phone number for the reservation")
	c.Flags().StringVar(&req.BookingDescription, "booking-description", "", "special requests for the booking")
	c.Flags().Float64Var(&lat, "latitude", 0, "latitude for the search location")
	c.Flags().Float64Var(&lon, "longitude", 0, "longitude for the search location")
	c.Flags().DurationVar(&timeout, "timeout", 15*time.Minute, "max time to wait for the agent run")

	return c
}
