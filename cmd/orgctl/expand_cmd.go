package main

import (
	"github.com/orgmap/backend/internal/domain/organization"
	"github.com/spf13/cobra"
)

type expandOutput struct {
	Notation string   `json:"notation"`
	Ceiling  int      `json:"ceiling"`
	Grades   []string `json:"grades"`
}

func newExpandCmd(env *cliEnv, root *rootOptions) *cobra.Command {
	var ceiling int

	cmd := &cobra.Command{
		Use:   "expand <notation>",
		Short: "Print the grades a notation such as \"MT3 - MT5\" or \"MT7 & Above\" denotes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("ceiling") {
				cfg, err := env.loadConfig(root.configPath)
				if err != nil {
					return withCode(exitUsage, err)
				}
				ceiling = cfg.Import.GradeCeiling
			}

			expander := organization.NewGradeExpander(ceiling)
			grades, err := expander.Expand(args[0])
			if err != nil {
				return withCode(exitValidation, err)
			}
			organization.SortGrades(grades)

			return writeJSON(cmd.OutOrStdout(), expandOutput{
				Notation: args[0],
				Ceiling:  expander.Ceiling(),
				Grades:   grades,
			})
		},
	}

	cmd.Flags().IntVar(&ceiling, "ceiling", 0, "Exclusive upper bound for open-ended ranges (default: import.grade_ceiling)")
	return cmd
}
