package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer e.close()
			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", e.cfg.DBDriver)
			return nil
		},
	}
}

func newUsersCmd(configPath *string) *cobra.Command {
	users := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
	}
	users.AddCommand(&cobra.Command{
		Use:   "verify <email>",
		Short: "Mark a user as verified",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer e.close()

			ctx := cmd.Context()
			svc, err := e.offlineServices(ctx)
			if err != nil {
				return err
			}
			user, err := svc.Users.GetByEmail(ctx, args[0])
			if err != nil {
				return err
			}
			if err := svc.Users.VerifyUser(ctx, user.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "verified %s (%s)\n", user.Email, user.ID)
			return nil
		},
	})
	return users
}

func newSkillsCmd(configPath *string) *cobra.Command {
	skills := &cobra.Command{
		Use:   "skills",
		Short: "Manage the skill catalog",
	}
	skills.AddCommand(&cobra.Command{
		Use:   "add <name>...",
		Short: "Add skills to the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer e.close()

			ctx := cmd.Context()
			svc, err := e.offlineServices(ctx)
			if err != nil {
				return err
			}
			for _, name := range args {
				skill, err := svc.Skills.CreateSkill(ctx, name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s)\n", skill.Name, skill.ID)
			}
			return nil
		},
	})
	return skills
}
