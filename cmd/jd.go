package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var jdCmd = &cobra.Command{
	Use:     "jd",
	Aliases: []string{"job-descriptions"},
	Short:   "Manage job descriptions",
}

var jdAddFlags struct {
	title           string
	description     string
	descriptionFile string
}

var jdAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a job description",
	RunE: func(cmd *cobra.Command, args []string) error {
		description := jdAddFlags.description
		if jdAddFlags.descriptionFile != "" {
			data, err := os.ReadFile(jdAddFlags.descriptionFile)
			if err != nil {
				return fmt.Errorf("reading description: %w", err)
			}
			description = string(data)
		}

		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		store, closeDB, err := newStore(cfg, log)
		if err != nil {
			return err
		}
		defer closeDB() //nolint:errcheck

		jd, err := store.AddJobDescription(cmd.Context(), jdAddFlags.title, description)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added job description %d: %s\n", jd.ID, jd.Title)
		return nil
	},
}

var jdListCmd = &cobra.Command{
	Use:   "list",
	Short: "List job descriptions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		store, closeDB, err := newStore(cfg, log)
		if err != nil {
			return err
		}
		defer closeDB() //nolint:errcheck

		jds, err := store.ListJobDescriptions(cmd.Context())
		if err != nil {
			return err
		}

		loc := cfg.Location()
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTITLE\tCREATED")
		for _, jd := range jds {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", jd.ID, jd.Title, jd.CreatedAt.In(loc).Format("2006-01-02 15:04"))
		}
		return tw.Flush()
	},
}

var jdDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a job description and all of its evaluations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 0)
		if err != nil {
			return fmt.Errorf("invalid job description id %q", args[0])
		}

		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		store, closeDB, err := newStore(cfg, log)
		if err != nil {
			return err
		}
		defer closeDB() //nolint:errcheck

		return store.DeleteJobDescription(cmd.Context(), uint(id))
	},
}

func init() {
	jdAddCmd.Flags().StringVar(&jdAddFlags.title, "title", "", "job title")
	jdAddCmd.Flags().StringVar(&jdAddFlags.description, "description", "", "job description text")
	jdAddCmd.Flags().StringVar(&jdAddFlags.descriptionFile, "description-file", "", "read the description from a file")
	_ = jdAddCmd.MarkFlagRequired("title")

	jdCmd.AddCommand(jdAddCmd, jdListCmd, jdDeleteCmd)
}
