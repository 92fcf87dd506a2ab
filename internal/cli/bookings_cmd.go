package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/soyeahso/mrbooky/internal/domain"
	"github.com/soyeahso/mrbooky/internal/store"
)

func newBookingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookings",
		Short: "List finalized bookings recorded locally",
	}

	cmd.AddCommand(newBookingsListCmd())
	cmd.AddCommand(newBookingsShowCmd())
	return cmd
}

func newBookingsListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recent bookings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			recs, err := a.bookings.ListBookings(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(recs) == 0 {
				fmt.Fprintln(out, "no bookings")
				return nil
			}
			for _, rec := range recs {
				printBookingLine(out, rec)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of bookings to show")
	return cmd
}

func newBookingsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <code>",
		Short: "Show one booking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			rec, err := a.bookings.GetBooking(cmd.Context(), args[0])
			if errors.Is(err, store.ErrBookingNotFound) {
				return fmt.Errorf("booking %q not found", args[0])
			}
			if err != nil {
				return err
			}
			printBooking(cmd.OutOrStdout(), *rec)
			return nil
		},
	}
}

func printBookingLine(w io.Writer, rec domain.BookingRecord) {
	status := "pre"
	if rec.CreatedRemote {
		status = "ok"
	}
	fmt.Fprintf(w, "%-12s %-3s %s  %s → %s  %s %s\n",
		rec.Code, status, rec.PickupAt, rec.Slots.Origin, rec.Slots.Destination, rec.Slots.Name, rec.Slots.Phone)
}

func printBooking(w io.Writer, rec domain.BookingRecord) {
	s := rec.Slots
	fmt.Fprintf(w, "Code:        %s\n", rec.Code)
	fmt.Fprintf(w, "Session:     %s\n", rec.SessionID)
	fmt.Fprintf(w, "Created:     %s (remote=%v)\n", rec.CreatedAt.Format("2006-01-02 15:04"), rec.CreatedRemote)
	fmt.Fprintf(w, "Pickup:      %s\n", rec.PickupAt)
	fmt.Fprintf(w, "Route:       %s → %s\n", s.Origin, s.Destination)
	fmt.Fprintf(w, "Passenger:   %s %s %s\n", s.Name, s.Phone, s.Email)
	fmt.Fprintf(w, "Pax:         %d\n", s.Pax)
	if s.LuggageCount > 0 {
		fmt.Fprintf(w, "Luggage:     %d (heavy=%v)\n", s.LuggageCount, s.LuggageHeavy)
	}
	if s.Notes != "" {
		fmt.Fprintf(w, "Notes:       %s\n", s.Notes)
	}
}
