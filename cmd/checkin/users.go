package main

import (
	"github.com/MacJediWizard/checkin/pkg/models"
	"github.com/spf13/cobra"
)

func addPageFlags(cmd *cobra.Command, p *models.PageParams) {
	cmd.Flags().IntVar(&p.Page, "page", models.DefaultPage, "page number")
	cmd.Flags().IntVar(&p.Limit, "limit", models.DefaultLimit, "results per page")
}

func newUsersCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Look up users",
	}

	cmd.AddCommand(
		newUsersListCmd(opts),
		newUsersSearchCmd(opts),
		newUsersFilterCmd(opts),
	)

	return cmd
}

func newUsersListCmd(opts *globalOptions) *cobra.Command {
	var page models.PageParams

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all users",
		RunE: runWithApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			res, err := a.svc.ListUsers(cmd.Context(), page)
			if err != nil {
				return err
			}
			return a.printJSON(res)
		}),
	}
	addPageFlags(cmd, &page)

	return cmd
}

func newUsersSearchCmd(opts *globalOptions) *cobra.Command {
	var params models.SearchUserParams

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search users by name or email",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			params.Query = args[0]
			res, err := a.svc.SearchUsers(cmd.Context(), params)
			if err != nil {
				return err
			}
			return a.printJSON(res)
		}),
	}
	addPageFlags(cmd, &params.PageParams)

	return cmd
}

func newUsersFilterCmd(opts *globalOptions) *cobra.Command {
	var params models.FilterUserParams

	cmd := &cobra.Command{
		Use:   "filter <field> <value>",
		Short: "List users whose field matches a value",
		Args:  cobra.ExactArgs(2),
		RunE: runWithApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			params.Field, params.Value = args[0], args[1]
			res, err := a.svc.FilterUsers(cmd.Context(), params)
			if err != nil {
				return err
			}
			return a.printJSON(res)
		}),
	}
	addPageFlags(cmd, &params.PageParams)

	return cmd
}
