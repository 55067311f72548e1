package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"vodmill/internal/store"
)

func newEpisodeCommand(ctx *commandContext) *cobra.Command {
	episodeCmd := &cobra.Command{
		Use:   "episode",
		Short: "Inspect episode processing state",
	}
	episodeCmd.AddCommand(newEpisodeStatusCommand(ctx))
	return episodeCmd
}

func newEpisodeStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <movie-id> <episode-id>",
		Short: "Show the processing state of one episode",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				episode, err := st.GetEpisode(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Movie:     %s\n", episode.MovieID)
				fmt.Fprintf(out, "Episode:   %s\n", episode.EpisodeID)
				fmt.Fprintf(out, "Processed: %s\n", yesNo(episode.IsProcessed))
				if episode.DurationSeconds > 0 {
					fmt.Fprintf(out, "Duration:  %ds\n", episode.DurationSeconds)
				}
				if episode.PlaylistURL != "" {
					fmt.Fprintf(out, "Playlist:  %s\n", episode.PlaylistURL)
				}
				if episode.ThumbnailURL != "" {
					fmt.Fprintf(out, "Thumbnail: %s\n", episode.ThumbnailURL)
				}
				if episode.ProcessingError != "" {
					fmt.Fprintf(out, "Error:     %s\n", episode.ProcessingError)
				}
				fmt.Fprintf(out, "Updated:   %s\n", episode.UpdatedAt.Local().Format(time.RFC3339))
				return nil
			})
		},
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
