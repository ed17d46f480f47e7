package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"
)

func recordingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "recordings",
		Usage: "list or delete recordings",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			recordings, err := st.Recordings().List()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSIZE\tFRAMES\tCREATED")
			for _, rec := range recordings {
				fmt.Fprintf(tw, "%s\t%s\t%dx%d\t%d\t%s\n",
					rec.ID, rec.Name, rec.Width, rec.Height, rec.Frames, rec.CreatedAt.Local().Format(time.DateTime))
			}
			return tw.Flush()
		},
		Subcommands: []*cli.Command{
			{
				Name:      "delete",
				Usage:     "delete a recording and its frames",
				ArgsUsage: "<recording-id>",
				Action: func(c *cli.Context) error {
					id := c.Args().First()
					if id == "" {
						return cli.Exit("delete requires a recording id", 1)
					}
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					st, err := openStore(cfg)
					if err != nil {
						return err
					}
					defer st.Close()

					if err := st.Recordings().Delete(id); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "deleted %s\n", id)
					return nil
				},
			},
		},
	}
}
