package main

import (
	"time"

	"github.com/MacJediWizard/checkin/pkg/models"
	"github.com/spf13/cobra"
)

func newAttendanceCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attendance",
		Short: "Record and report attendance",
	}

	cmd.AddCommand(
		newAttendanceCreateCmd(opts),
		newAttendanceCheckInCmd(opts),
		newAttendanceHistoryCmd(opts),
		newAttendanceAnalyticsCmd(opts),
	)

	return cmd
}

func newAttendanceCreateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create <user-id>",
		Short: "Check a user in manually",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			res, err := a.svc.CreateAttendance(cmd.Context(), models.CreateAttendanceRequest{UserID: args[0]})
			if err != nil {
				return err
			}
			return a.printJSON(res)
		}),
	}
}

func newAttendanceCheckInCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "checkin <qr-token>",
		Short: "Check in with a QR code token",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			res, err := a.svc.QRCheckIn(cmd.Context(), models.QRCheckInRequest{QRCodeToken: args[0]})
			if err != nil {
				return err
			}
			return a.printJSON(res)
		}),
	}
}

func newAttendanceHistoryCmd(opts *globalOptions) *cobra.Command {
	var params models.AttendanceHistoryParams

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List check-ins in a date range",
		RunE: runWithApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			res, err := a.svc.AttendanceHistory(cmd.Context(), params)
			if err != nil {
				return err
			}
			return a.printJSON(res)
		}),
	}
	cmd.Flags().StringVar(&params.StartDate, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&params.EndDate, "to", "", "last day, YYYY-MM-DD")
	addPageFlags(cmd, &params.PageParams)

	return cmd
}

func newAttendanceAnalyticsCmd(opts *globalOptions) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Summarize one day of attendance",
		RunE: runWithApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			if date == "" {
				date = time.Now().Format("2006-01-02")
			}
			res, err := a.svc.AttendanceAnalytics(cmd.Context(), models.AttendanceAnalyticsParams{Date: date})
			if err != nil {
				return err
			}
			return a.printJSON(res)
		}),
	}
	cmd.Flags().StringVar(&date, "date", "", "day to summarize, YYYY-MM-DD (default today)")

	return cmd
}

func newQRCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qr",
		Short: "Manage check-in QR codes",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "generate <user-id>",
		Short: "Issue a check-in QR code for a user",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			res, err := a.svc.GenerateQRCode(cmd.Context(), models.GenerateQRRequest{UserID: args[0]})
			if err != nil {
				return err
			}
			return a.printJSON(res)
		}),
	})

	return cmd
}
